// Package scene holds the data model and validator for the node-graph
// scenes installed into the compositor: a flat table of nodes, each
// referencing its input pads by id, plus a set of named outputs that pin a
// node as that output's source. See Validate for the acyclicity,
// reachability, and per-node constraint checks every scene must pass before
// installation.
package scene

import "fmt"

// NodeID identifies one node within a SceneSpec. Node ids are scoped to a
// single scene, not to the registries (compare RendererID).
type NodeID string

// OutputID identifies an external output stream, registered outside the
// scene and referenced by OutputSpec.OutputID.
type OutputID string

// InputID identifies an external input stream, registered outside the scene
// and referenced wherever a NodeSpec's input pad names one directly rather
// than another node.
type InputID string

// RendererID identifies a registered shader, image, or web-renderer
// instance, looked up in the corresponding registry at scene install time.
type RendererID string

// Params is the tagged union of node behaviors. Exactly one field is set,
// selected by the control API's "type" discriminator when the scene is
// decoded from JSON (see api package); Go code constructs one field
// directly instead of going through a discriminator.
type Params struct {
	Shader     *ShaderParams
	Builtin    *BuiltinParams
	Text       *TextParams
	Image      *ImageParams
	Web        *WebParams
	Transition *TransitionParams
}

// ShaderParams selects a registered shader renderer for a node.
type ShaderParams struct {
	ShaderID   RendererID
	Resolution [2]uint32
	// ShaderParamsType and ShaderParamsBytes describe the shader's
	// shader_params uniform, validated against the shader's declared type
	// by shader.ValidateParams at install time.
	ShaderParamsType  string
	ShaderParamsBytes []byte
}

// BuiltinParams selects one of the closed set of built-in renderer kinds.
// Kind names the variant (see builtin package); Spec carries its
// kind-specific, already-decoded configuration.
type BuiltinParams struct {
	Kind string
	Spec any
}

// TextParams renders a text string via the text-layout subsystem.
type TextParams struct {
	Content    string
	FontSize   float32
	Resolution [2]uint32
}

// ImageParams selects a registered still image.
type ImageParams struct {
	ImageID RendererID
}

// WebParams selects a registered web-renderer instance.
type WebParams struct {
	InstanceID RendererID
}

// TransitionParams interpolates between two Params over [StartPTS, EndPTS]
// using Interpolation, rendering the interpolated parameters with the End
// state's renderer. The input-count constraint of a transition node is
// inherited from End, not Start; this asymmetry is deliberate (see
// DESIGN.md).
type TransitionParams struct {
	Start         Params
	End           Params
	Interpolation string
	StartPTS      float64
	EndPTS        float64
}

// NodeSpec is one rendering unit in a scene. InputPads names, in order, the
// nodes or inputs that feed this node; FallbackID, if set, names the node
// substituted for this one when its own fallback strategy determines its
// inputs are unavailable (see rendergraph).
type NodeSpec struct {
	NodeID     NodeID
	InputPads  []NodeID
	Params     Params
	FallbackID *NodeID
}

// OutputSpec pins a registered output stream to the node whose texture it
// should receive each tick.
type OutputSpec struct {
	OutputID OutputID
	InputPad NodeID
}

// SceneSpec is the complete scene graph submitted to Validate: a flat node
// table plus the outputs that reference it.
type SceneSpec struct {
	Nodes   []NodeSpec
	Outputs []OutputSpec
}

// InputCountConstraint bounds how many input pads a node kind accepts.
// Exactly one of Exact or Range is meaningful, selected by IsExact.
type InputCountConstraint struct {
	IsExact     bool
	Exact       int
	LowerBound  int
	UpperBound  int
}

// Accepts reports whether n input pads satisfies the constraint.
func (c InputCountConstraint) Accepts(n int) bool {
	if c.IsExact {
		return n == c.Exact
	}
	return n >= c.LowerBound && n <= c.UpperBound
}

// String renders the constraint for error messages.
func (c InputCountConstraint) String() string {
	if c.IsExact {
		return fmt.Sprintf("exactly %d", c.Exact)
	}
	return fmt.Sprintf("between %d and %d", c.LowerBound, c.UpperBound)
}

// ExactInputs builds an Exact InputCountConstraint.
func ExactInputs(n int) InputCountConstraint {
	return InputCountConstraint{IsExact: true, Exact: n}
}

// RangeInputs builds a Range InputCountConstraint.
func RangeInputs(lower, upper int) InputCountConstraint {
	return InputCountConstraint{LowerBound: lower, UpperBound: upper}
}

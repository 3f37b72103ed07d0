// Package builtin implements the Built-in Transformations (spec.md §2,
// component 4; §4.5): the closed set of parameterized GPU effects every
// scene node can select without supplying its own WGSL — layouts, mirror,
// corner rounding, and layout-interpolating transitions. Each kind is a Go type
// implementing Renderer, dispatched once per node per tick by its JSON
// "type" discriminator, mirroring the teacher's
// RendererBackendType/PipelineType enum-plus-switch dispatch rather than
// reflection-based registration (see DESIGN.md).
package builtin

import (
	"context"
	"fmt"

	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// FallbackStrategy is the fixed per-renderer-kind policy spec.md §4.2
// consults to decide whether a node renders this tick or instead resolves
// to its fallback chain.
type FallbackStrategy int

const (
	// NeverFallback always renders, even with all inputs empty (e.g. Text,
	// Image — nodes whose content does not depend on its input pads).
	NeverFallback FallbackStrategy = iota
	// FallbackIfAllInputsMissing renders unless every input is empty.
	FallbackIfAllInputsMissing
	// FallbackIfAnyInputMissing renders only when every input has content.
	FallbackIfAnyInputMissing
)

// Renderer is the common operation every built-in transformation
// implements, invoked once per node per tick by the render graph with the
// node's already-resolved input textures in declared order.
type Renderer interface {
	// Render draws inputs into target using the renderer's configured
	// parameters. pts is the current tick's presentation timestamp in
	// seconds, used by Transition to compute its interpolation factor.
	Render(ctx context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, pts float64) error

	// InputCountConstraint returns the InputCountConstraint the scene
	// validator checks a node's input_pads count against (spec.md §4.1
	// step 5).
	InputCountConstraint() scene.InputCountConstraint

	// FallbackStrategy returns this renderer kind's fixed fallback policy.
	FallbackStrategy() FallbackStrategy
}

// Constructor builds a Renderer from a node's already-decoded Spec value
// (scene.BuiltinParams.Spec). Registered per kind name in Dispatch.
type Constructor func(spec any) (Renderer, error)

// Dispatch is the closed map of builtin kind name -> Constructor, keyed by
// the control API's node "type" discriminator for builtin/* kinds (e.g.
// "builtin/fit_to_resolution"). Populated by each kind's init().
var Dispatch = map[string]Constructor{}

// New looks up kind in Dispatch and constructs its Renderer from spec.
func New(kind string, spec any) (Renderer, error) {
	ctor, ok := Dispatch[kind]
	if !ok {
		return nil, fmt.Errorf("builtin: unknown renderer kind %q", kind)
	}
	return ctor(spec)
}

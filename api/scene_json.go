package api

import (
	"encoding/json"
	"fmt"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/scene"
)

// Resolution mirrors a node's explicit output resolution in JSON.
type Resolution struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// TextJSON mirrors scene.TextParams (spec.md §3's TextSpec).
type TextJSON struct {
	Content    string     `json:"content"`
	FontSize   float32    `json:"font_size"`
	Resolution Resolution `json:"resolution"`
}

// FixedPositionEntryJSON mirrors builtin.FixedPositionEntry; exactly one of
// Top/Bottom and one of Left/Right must be set (spec.md §4.5).
type FixedPositionEntryJSON struct {
	Top       *float32 `json:"top,omitempty"`
	Bottom    *float32 `json:"bottom,omitempty"`
	Left      *float32 `json:"left,omitempty"`
	Right     *float32 `json:"right,omitempty"`
	WidthPct  float32  `json:"width_pct,omitempty"`
	HeightPct float32  `json:"height_pct,omitempty"`
}

func (e FixedPositionEntryJSON) toBuiltin() builtin.FixedPositionEntry {
	return builtin.FixedPositionEntry{
		Top: e.Top, Bottom: e.Bottom, Left: e.Left, Right: e.Right,
		WidthPct: e.WidthPct, HeightPct: e.HeightPct,
	}
}

// mirrorModeFromJSON decodes spec.md §4.5's MirrorImage "mode" enum.
func mirrorModeFromJSON(s string) (builtin.MirrorMode, error) {
	switch s {
	case "horizontal":
		return builtin.MirrorHorizontal, nil
	case "vertical":
		return builtin.MirrorVertical, nil
	case "both":
		return builtin.MirrorBoth, nil
	default:
		return 0, fmt.Errorf("api: unknown mirror mode %q", s)
	}
}

// ParamsJSON is the tagged-union wire shape for one node's params,
// discriminated by Type — reused both at the top level of a NodeJSON and,
// recursively, for a Transition's start/end states (spec.md §3: "params
// is a tagged variant").
type ParamsJSON struct {
	Type string `json:"type"`

	// shader
	ShaderID     string          `json:"shader_id,omitempty"`
	ShaderParams json.RawMessage `json:"shader_params,omitempty"`
	Resolution   *Resolution     `json:"resolution,omitempty"`

	// text
	Text *TextJSON `json:"text,omitempty"`

	// image
	ImageID string `json:"image_id,omitempty"`

	// web
	InstanceID string `json:"instance_id,omitempty"`

	// builtin/* — kind-specific fields, at most one populated per Type
	FixedPositionLayouts []FixedPositionEntryJSON `json:"layouts,omitempty"`
	MirrorMode           string                   `json:"mode,omitempty"`
	BorderRadius         float32                   `json:"border_radius,omitempty"`

	// transition
	Start         *ParamsJSON `json:"start,omitempty"`
	End           *ParamsJSON `json:"end,omitempty"`
	Interpolation string      `json:"interpolation,omitempty"`
	StartPTS      float64     `json:"start_pts,omitempty"`
	EndPTS        float64     `json:"end_pts,omitempty"`
}

// ToParams converts a decoded ParamsJSON into the scene package's
// scene.Params tagged union, recursing for a Transition's start/end.
func (p ParamsJSON) ToParams() (scene.Params, error) {
	switch {
	case p.Type == "shader":
		if p.Resolution == nil {
			return scene.Params{}, fmt.Errorf("api: shader node missing resolution")
		}
		return scene.Params{Shader: &scene.ShaderParams{
			ShaderID:          scene.RendererID(p.ShaderID),
			Resolution:        [2]uint32{p.Resolution.Width, p.Resolution.Height},
			ShaderParamsBytes: []byte(p.ShaderParams),
		}}, nil

	case p.Type == "text":
		if p.Text == nil {
			return scene.Params{}, fmt.Errorf("api: text node missing text spec")
		}
		return scene.Params{Text: &scene.TextParams{
			Content:    p.Text.Content,
			FontSize:   p.Text.FontSize,
			Resolution: [2]uint32{p.Text.Resolution.Width, p.Text.Resolution.Height},
		}}, nil

	case p.Type == "image":
		return scene.Params{Image: &scene.ImageParams{ImageID: scene.RendererID(p.ImageID)}}, nil

	case p.Type == "web":
		return scene.Params{Web: &scene.WebParams{InstanceID: scene.RendererID(p.InstanceID)}}, nil

	case p.Type == "transition":
		if p.Start == nil || p.End == nil {
			return scene.Params{}, fmt.Errorf("api: transition node missing start/end")
		}
		start, err := p.Start.ToParams()
		if err != nil {
			return scene.Params{}, fmt.Errorf("api: transition start: %w", err)
		}
		end, err := p.End.ToParams()
		if err != nil {
			return scene.Params{}, fmt.Errorf("api: transition end: %w", err)
		}
		interp := p.Interpolation
		if interp == "" {
			interp = "linear"
		}
		return scene.Params{Transition: &scene.TransitionParams{
			Start: start, End: end, Interpolation: interp,
			StartPTS: p.StartPTS, EndPTS: p.EndPTS,
		}}, nil

	case len(p.Type) > len("builtin/") && p.Type[:len("builtin/")] == "builtin/":
		spec, err := p.builtinSpec()
		if err != nil {
			return scene.Params{}, err
		}
		return scene.Params{Builtin: &scene.BuiltinParams{Kind: p.Type, Spec: spec}}, nil

	default:
		return scene.Params{}, fmt.Errorf("api: unknown node type %q", p.Type)
	}
}

// builtinSpec decodes a builtin/* ParamsJSON's kind-specific fields into
// the concrete Spec value its builtin.Dispatch constructor expects
// (scene.BuiltinParams.Spec is `any`, switched on at install time by the
// builtin package's own Constructor).
func (p ParamsJSON) builtinSpec() (any, error) {
	switch p.Type {
	case "builtin/fit_to_resolution", "builtin/fill_to_resolution", "builtin/stretch_to_resolution", "builtin/tiled_layout":
		return nil, nil
	case "builtin/fixed_position_layout":
		layouts := make([]builtin.FixedPositionEntry, len(p.FixedPositionLayouts))
		for i, e := range p.FixedPositionLayouts {
			layouts[i] = e.toBuiltin()
		}
		return builtin.FixedPositionLayoutSpec{Layouts: layouts}, nil
	case "builtin/mirror_image":
		mode, err := mirrorModeFromJSON(p.MirrorMode)
		if err != nil {
			return nil, err
		}
		return builtin.MirrorImageSpec{Mode: mode}, nil
	case "builtin/corners_rounding":
		return builtin.CornersRoundingSpec{BorderRadius: p.BorderRadius}, nil
	default:
		return nil, fmt.Errorf("api: unknown builtin node type %q", p.Type)
	}
}

// NodeJSON is one node in the wire scene specification (spec.md §3, §6).
type NodeJSON struct {
	NodeID     string   `json:"node_id"`
	InputPads  []string `json:"input_pads,omitempty"`
	FallbackID *string  `json:"fallback_id,omitempty"`
	ParamsJSON
}

// OutputJSON pins a registered output to the node feeding it.
type OutputJSON struct {
	OutputID string `json:"output_id"`
	InputPad string `json:"input_pad"`
}

// SceneJSON is the full wire scene specification decoded from an
// update_scene request, or returned by a query=scene response (spec.md
// §3, §6: "{nodes:[…], outputs:[…]}").
type SceneJSON struct {
	Nodes   []NodeJSON   `json:"nodes"`
	Outputs []OutputJSON `json:"outputs"`
}

// ToSceneSpec decodes the wire scene into scene.SceneSpec for
// scene.Validate and the pipeline orchestrator. It does not itself
// resolve registered renderer ids (that happens when the pipeline
// orchestrator builds each node's builtin.Renderer against the installed
// registries) — only structural decoding happens here.
func (s SceneJSON) ToSceneSpec() (scene.SceneSpec, error) {
	spec := scene.SceneSpec{
		Nodes:   make([]scene.NodeSpec, len(s.Nodes)),
		Outputs: make([]scene.OutputSpec, len(s.Outputs)),
	}
	for i, n := range s.Nodes {
		params, err := n.ParamsJSON.ToParams()
		if err != nil {
			return scene.SceneSpec{}, fmt.Errorf("api: node %q: %w", n.NodeID, err)
		}
		pads := make([]scene.NodeID, len(n.InputPads))
		for j, p := range n.InputPads {
			pads[j] = scene.NodeID(p)
		}
		var fallback *scene.NodeID
		if n.FallbackID != nil {
			fb := scene.NodeID(*n.FallbackID)
			fallback = &fb
		}
		spec.Nodes[i] = scene.NodeSpec{
			NodeID:     scene.NodeID(n.NodeID),
			InputPads:  pads,
			Params:     params,
			FallbackID: fallback,
		}
	}
	for i, o := range s.Outputs {
		spec.Outputs[i] = scene.OutputSpec{
			OutputID: scene.OutputID(o.OutputID),
			InputPad: scene.NodeID(o.InputPad),
		}
	}
	return spec, nil
}

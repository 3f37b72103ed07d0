package pipeline

import (
	"fmt"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/scene"
)

// shaderInputRange is the input-pad count a shader node may declare.
// Shader nodes bind inputs into the header's binding_array<texture_2d<f32>,
// 16>, so the upper bound matches the array's fixed size (shader/header.go).
var shaderInputRange = scene.RangeInputs(0, 16)

// constraintLookup implements scene.ConstraintLookup against the installed
// registries and the builtin dispatch table (spec.md §5: "resolution
// happens once per scene swap, not per frame" — this runs once, inside
// Validate, at UpdateScene time).
func (p *Pipeline) constraintLookup(n scene.NodeSpec) (scene.InputCountConstraint, error) {
	return paramsConstraint(n.Params)
}

func paramsConstraint(params scene.Params) (scene.InputCountConstraint, error) {
	switch {
	case params.Shader != nil:
		return shaderInputRange, nil
	case params.Text != nil, params.Image != nil, params.Web != nil:
		return scene.ExactInputs(0), nil
	case params.Builtin != nil:
		r, err := builtin.New(params.Builtin.Kind, params.Builtin.Spec)
		if err != nil {
			return scene.InputCountConstraint{}, err
		}
		return r.InputCountConstraint(), nil
	case params.Transition != nil:
		return paramsConstraint(params.Transition.End)
	default:
		return scene.InputCountConstraint{}, fmt.Errorf("pipeline: node has no params set")
	}
}

// layoutSpecOf reduces params to the builtin.LayoutSpec Transition knows how
// to interpolate, reporting false for any kind Transition treats as a hard
// cut (spec.md §4.5, builtin.LayoutSpec's doc comment).
func layoutSpecOf(params scene.Params) (builtin.LayoutSpec, bool) {
	if params.Builtin == nil {
		return builtin.LayoutSpec{}, false
	}
	switch params.Builtin.Kind {
	case "builtin/fit_to_resolution":
		return builtin.LayoutSpec{Kind: "fit_to_resolution"}, true
	case "builtin/fill_to_resolution":
		return builtin.LayoutSpec{Kind: "fill_to_resolution"}, true
	case "builtin/stretch_to_resolution":
		return builtin.LayoutSpec{Kind: "stretch_to_resolution"}, true
	case "builtin/fixed_position_layout":
		spec, ok := params.Builtin.Spec.(builtin.FixedPositionLayoutSpec)
		if !ok || len(spec.Layouts) != 1 {
			return builtin.LayoutSpec{}, false
		}
		return builtin.LayoutSpec{Kind: "fixed_position_layout", Fixed: spec.Layouts[0]}, true
	default:
		return builtin.LayoutSpec{}, false
	}
}

// buildRenderer resolves params into the builtin.Renderer the render graph
// dispatches to, looking up registered shader/image/web ids against this
// Pipeline's registries. A Shader node's GPU pipeline is built (or reused
// from the per-shader cache) here; texture uploads happen lazily on first
// Render, matching gputexture.NodeTexture's own lazy-allocation convention.
// A Transition whose Start or End is not an interpolatable layout kind is
// built as End's own renderer, a hard cut.
func (p *Pipeline) buildRenderer(params scene.Params) (builtin.Renderer, error) {
	switch {
	case params.Shader != nil:
		return p.buildShaderRenderer(params.Shader)

	case params.Text != nil:
		return newTextRenderer(params.Text), nil

	case params.Image != nil:
		decoded, err := p.images.Get(string(params.Image.ImageID))
		if err != nil {
			return nil, fmt.Errorf("pipeline: image node: %w", err)
		}
		return newImageRenderer(decoded), nil

	case params.Web != nil:
		inst, err := p.webInstances.Get(string(params.Web.InstanceID))
		if err != nil {
			return nil, fmt.Errorf("pipeline: web node: %w", err)
		}
		return newWebRenderer(p.gpu, inst), nil

	case params.Builtin != nil:
		return builtin.New(params.Builtin.Kind, params.Builtin.Spec)

	case params.Transition != nil:
		t := params.Transition
		endConstraint, err := paramsConstraint(t.End)
		if err != nil {
			return nil, fmt.Errorf("pipeline: transition end: %w", err)
		}
		startSpec, startOK := layoutSpecOf(t.Start)
		endSpec, endOK := layoutSpecOf(t.End)
		if !startOK || !endOK {
			return p.buildRenderer(t.End)
		}
		return builtin.New("builtin/transition", builtin.TransitionSpec{
			Start:              startSpec,
			End:                endSpec,
			Interpolation:      t.Interpolation,
			StartPTS:           t.StartPTS,
			EndPTS:             t.EndPTS,
			EndInputConstraint: endConstraint,
		})

	default:
		return nil, fmt.Errorf("pipeline: node has no params set")
	}
}

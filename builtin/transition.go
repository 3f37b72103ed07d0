package builtin

import (
	"context"
	"math"

	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// Interpolations is the fixed lookup of named easing functions Transition
// nodes select by name, matching the teacher's preference for small
// function-value tables over an easing/tweening dependency (see
// DESIGN.md) — no pack repo imports one.
var Interpolations = map[string]func(t float64) float64{
	"linear": func(t float64) float64 { return t },
	"ease_in_out": func(t float64) float64 {
		return (1 - math.Cos(t*math.Pi)) / 2
	},
}

// LayoutSpec is the subset of builtin layout kinds Transition knows how to
// interpolate between: each reduces to a single 4x4 matrix for its sole
// input, so two LayoutSpecs of the same underlying shape can be blended
// element-wise. Transition between any other pair of kinds (mirror,
// corners, shader, image, web, or a layout/non-layout mix) is not
// interpolated — the pipeline builds End's own renderer for such a node
// instead of a Transition, a hard cut used at every pts (see DESIGN.md's
// Open Question on this boundary).
type LayoutSpec struct {
	Kind string // "fit_to_resolution" | "fill_to_resolution" | "stretch_to_resolution" | "fixed_position_layout"
	// Fixed is only meaningful when Kind == "fixed_position_layout" and
	// must have exactly one entry (a Transition's single-input matrix
	// layouts never multiplex several inputs).
	Fixed FixedPositionEntry
}

func matrixForLayoutSpec(s LayoutSpec, srcW, srcH, dstW, dstH uint32) [16]float32 {
	switch s.Kind {
	case "fit_to_resolution":
		return fitMatrix(srcW, srcH, dstW, dstH)
	case "fill_to_resolution":
		return fillMatrix(srcW, srcH, dstW, dstH)
	case "fixed_position_layout":
		return fixedPositionMatrix(s.Fixed)
	default: // "stretch_to_resolution" and anything else
		return stretchMatrix()
	}
}

func lerpMatrix(a, b [16]float32, t float64) [16]float32 {
	var out [16]float32
	for i := range out {
		out[i] = a[i] + float32(t)*(b[i]-a[i])
	}
	return out
}

// TransitionSpec configures a Transition node: it draws its single input
// through a layout matrix interpolated from Start to End over
// [StartPTS, EndPTS] using the named Interpolation function, with End's
// input-count constraint (spec.md
// §4.5 — the "constraint inherited from End" asymmetry is deliberate).
type TransitionSpec struct {
	Start, End          LayoutSpec
	Interpolation       string
	StartPTS, EndPTS    float64
	EndInputConstraint  scene.InputCountConstraint
}

func init() {
	Dispatch["builtin/transition"] = func(spec any) (Renderer, error) {
		s, _ := spec.(TransitionSpec)
		if s.Interpolation == "" {
			s.Interpolation = "linear"
		}
		return &transition{spec: s}, nil
	}
}

type transition struct {
	spec TransitionSpec
}

func (t *transition) InputCountConstraint() scene.InputCountConstraint {
	return t.spec.EndInputConstraint
}

func (t *transition) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }

// progress maps pts to the raw interpolation factor (pts-StartPTS)/(EndPTS-StartPTS),
// clamped to [0,1]; a non-positive span always yields 0.
func (t *transition) progress(pts float64) float64 {
	span := t.spec.EndPTS - t.spec.StartPTS
	var raw float64
	if span > 0 {
		raw = (pts - t.spec.StartPTS) / span
	}
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return raw
}

func (t *transition) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, pts float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return nil
	}
	in := inputs[0]

	ease := Interpolations[t.spec.Interpolation]
	if ease == nil {
		ease = Interpolations["linear"]
	}
	tt := ease(t.progress(pts))

	startM := matrixForLayoutSpec(t.spec.Start, in.Width(), in.Height(), target.Width(), target.Height())
	endM := matrixForLayoutSpec(t.spec.End, in.Width(), in.Height(), target.Width(), target.Height())
	m := lerpMatrix(startM, endM, tt)

	return drawEffect(gpu, in, target, EffectParams{Transform: m, Mode: modePlain}, true)
}

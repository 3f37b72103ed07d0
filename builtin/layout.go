package builtin

import (
	"context"
	"fmt"
	"math"

	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

func init() {
	Dispatch["builtin/fit_to_resolution"] = func(spec any) (Renderer, error) {
		return &fitToResolution{}, nil
	}
	Dispatch["builtin/fill_to_resolution"] = func(spec any) (Renderer, error) {
		return &fillToResolution{}, nil
	}
	Dispatch["builtin/stretch_to_resolution"] = func(spec any) (Renderer, error) {
		return &stretchToResolution{}, nil
	}
	Dispatch["builtin/fixed_position_layout"] = func(spec any) (Renderer, error) {
		s, ok := spec.(FixedPositionLayoutSpec)
		if !ok {
			return nil, fmt.Errorf("builtin: fixed_position_layout: unexpected spec type %T", spec)
		}
		for i, e := range s.Layouts {
			if err := validateFixedPositionEntry(i, e); err != nil {
				return nil, err
			}
		}
		return &fixedPositionLayout{spec: s}, nil
	}
	Dispatch["builtin/tiled_layout"] = func(spec any) (Renderer, error) {
		return &tiledLayout{}, nil
	}
}

func validateFixedPositionEntry(index int, e FixedPositionEntry) error {
	switch {
	case e.Top == nil && e.Bottom == nil:
		return &FixedLayoutTopBottomRequired{Index: index}
	case e.Top != nil && e.Bottom != nil:
		return &FixedLayoutTopBottomOnlyOne{Index: index}
	}
	switch {
	case e.Left == nil && e.Right == nil:
		return &FixedLayoutLeftRightRequired{Index: index}
	case e.Left != nil && e.Right != nil:
		return &FixedLayoutLeftRightOnlyOne{Index: index}
	}
	return nil
}

// FixedPositionEntry anchors one input within a FixedPositionLayout.
// Exactly one of Top/Bottom and exactly one of Left/Right must be set,
// each a fraction of the output's height/width respectively (spec.md
// §4.5). WidthPct/HeightPct default to 1.0 (full output size) if zero.
type FixedPositionEntry struct {
	Top, Bottom   *float32
	Left, Right   *float32
	WidthPct      float32
	HeightPct     float32
}

// FixedPositionLayoutSpec configures a FixedPositionLayout node; Layouts
// must have one entry per input pad. The Constructor only validates each
// entry's anchors; the entry count is checked by Render, which fails with
// FixedLayoutInvalidLayoutCount (InputCountConstraint accepts any count
// of one or more).
type FixedPositionLayoutSpec struct {
	Layouts []FixedPositionEntry
}

type fitToResolution struct{}

func (fitToResolution) InputCountConstraint() scene.InputCountConstraint {
	return scene.ExactInputs(1)
}
func (fitToResolution) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }
func (fitToResolution) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return fmt.Errorf("builtin: fit_to_resolution requires exactly one input")
	}
	m := fitMatrix(inputs[0].Width(), inputs[0].Height(), target.Width(), target.Height())
	return drawEffect(gpu, inputs[0], target, EffectParams{Transform: m, Mode: modePlain}, true)
}

type fillToResolution struct{}

func (fillToResolution) InputCountConstraint() scene.InputCountConstraint {
	return scene.ExactInputs(1)
}
func (fillToResolution) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }
func (fillToResolution) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return fmt.Errorf("builtin: fill_to_resolution requires exactly one input")
	}
	m := fillMatrix(inputs[0].Width(), inputs[0].Height(), target.Width(), target.Height())
	return drawEffect(gpu, inputs[0], target, EffectParams{Transform: m, Mode: modePlain}, true)
}

type stretchToResolution struct{}

func (stretchToResolution) InputCountConstraint() scene.InputCountConstraint {
	return scene.ExactInputs(1)
}
func (stretchToResolution) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }
func (stretchToResolution) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return fmt.Errorf("builtin: stretch_to_resolution requires exactly one input")
	}
	return drawEffect(gpu, inputs[0], target, EffectParams{Transform: stretchMatrix(), Mode: modePlain}, true)
}

type fixedPositionLayout struct {
	spec FixedPositionLayoutSpec
}

// InputCountConstraint deliberately does not cap the upper bound at
// len(l.spec.Layouts): a scene with more input pads than layout entries
// must reach Render and fail with FixedLayoutInvalidLayoutCount, not get
// rejected earlier by the validator's generic input-count check.
func (l *fixedPositionLayout) InputCountConstraint() scene.InputCountConstraint {
	return scene.RangeInputs(1, math.MaxInt)
}
func (l *fixedPositionLayout) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }
func (l *fixedPositionLayout) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(l.spec.Layouts) != len(inputs) {
		return &FixedLayoutInvalidLayoutCount{LayoutCount: len(l.spec.Layouts), InputCount: len(inputs)}
	}
	for i, in := range inputs {
		if in == nil || in.Empty() {
			continue
		}
		m := fixedPositionMatrix(l.spec.Layouts[i])
		if err := drawEffect(gpu, in, target, EffectParams{Transform: m, Mode: modePlain}, i == 0); err != nil {
			return err
		}
	}
	return nil
}

type tiledLayout struct{}

func (tiledLayout) InputCountConstraint() scene.InputCountConstraint {
	return scene.RangeInputs(1, 16)
}
func (tiledLayout) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }
func (tiledLayout) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	count := 0
	for _, in := range inputs {
		if in != nil && !in.Empty() {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	drawn := 0
	for _, in := range inputs {
		if in == nil || in.Empty() {
			continue
		}
		m := tiledMatrix(drawn, count)
		if err := drawEffect(gpu, in, target, EffectParams{Transform: m, Mode: modePlain}, drawn == 0); err != nil {
			return err
		}
		drawn++
	}
	return nil
}

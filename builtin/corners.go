package builtin

import (
	"context"
	"fmt"

	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// CornersRoundingSpec configures a CornersRounding node. BorderRadius is
// expressed as a fraction of the output's height.
type CornersRoundingSpec struct {
	BorderRadius float32
}

func init() {
	Dispatch["builtin/corners_rounding"] = func(spec any) (Renderer, error) {
		s, ok := spec.(CornersRoundingSpec)
		if !ok {
			return nil, fmt.Errorf("builtin: corners_rounding: unexpected spec type %T", spec)
		}
		return &cornersRounding{spec: s}, nil
	}
}

type cornersRounding struct {
	spec CornersRoundingSpec
}

func (cornersRounding) InputCountConstraint() scene.InputCountConstraint {
	return scene.ExactInputs(1)
}
func (cornersRounding) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }

func (c *cornersRounding) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return fmt.Errorf("builtin: corners_rounding requires exactly one input")
	}
	aspect := float32(target.Width()) / float32(target.Height())
	return drawEffect(gpu, inputs[0], target, EffectParams{
		Transform:    stretchMatrix(),
		Mode:         modeCorners,
		BorderRadius: c.spec.BorderRadius,
		Aspect:       aspect,
	}, true)
}

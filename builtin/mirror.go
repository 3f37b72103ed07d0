package builtin

import (
	"context"
	"fmt"

	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// MirrorMode selects which axis MirrorImage flips texture coordinates on.
type MirrorMode int

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorBoth
)

// MirrorImageSpec configures a MirrorImage node.
type MirrorImageSpec struct {
	Mode MirrorMode
}

func init() {
	Dispatch["builtin/mirror_image"] = func(spec any) (Renderer, error) {
		s, ok := spec.(MirrorImageSpec)
		if !ok {
			return nil, fmt.Errorf("builtin: mirror_image: unexpected spec type %T", spec)
		}
		return &mirrorImage{spec: s}, nil
	}
}

type mirrorImage struct {
	spec MirrorImageSpec
}

func (mirrorImage) InputCountConstraint() scene.InputCountConstraint {
	return scene.ExactInputs(1)
}
func (mirrorImage) FallbackStrategy() FallbackStrategy { return FallbackIfAllInputsMissing }

func (m *mirrorImage) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if len(inputs) != 1 || inputs[0] == nil {
		return fmt.Errorf("builtin: mirror_image requires exactly one input")
	}
	var mode uint32
	switch m.spec.Mode {
	case MirrorHorizontal:
		mode = modeMirrorH
	case MirrorVertical:
		mode = modeMirrorV
	case MirrorBoth:
		mode = modeMirrorBoth
	}
	return drawEffect(gpu, inputs[0], target, EffectParams{Transform: stretchMatrix(), Mode: mode}, true)
}

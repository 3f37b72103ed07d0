package pipeline

import (
	"context"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
	"github.com/oxy-systems/scenecompositor/webrenderer"
)

// webRenderer adapts a registered webrenderer.Instance into a builtin.Renderer:
// it has no input pads, and each tick it pulls whatever the browser process
// last composited rather than driving its own content.
type webRenderer struct {
	inst webrenderer.Instance
}

func newWebRenderer(_ *gpucontext.Context, inst webrenderer.Instance) builtin.Renderer {
	return &webRenderer{inst: inst}
}

func (r *webRenderer) InputCountConstraint() scene.InputCountConstraint { return scene.ExactInputs(0) }

// FallbackStrategy is NeverFallback: a Web node has no input pads for the
// render graph to treat as "missing", so fallback propagation never
// applies to it. A browser process that hasn't produced a frame yet just
// leaves the target unproduced for this tick (see Render).
func (r *webRenderer) FallbackStrategy() builtin.FallbackStrategy { return builtin.NeverFallback }

func (r *webRenderer) Render(ctx context.Context, gpu *gpucontext.Context, _ []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	frame, ok := r.inst.LatestFrame(ctx)
	if !ok {
		if target.Allocated() {
			target.MarkEmpty()
		}
		return nil
	}
	return webrenderer.UploadFrame(gpu, frame, target)
}

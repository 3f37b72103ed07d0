package builtin

import (
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
)

// Blit stretches src's full content into dst through the shared effect
// pipeline, clearing dst first. Used by rendergraph to materialize a
// fallback chain's resolved texture into the falling-back node's own
// target, since downstream nodes reference the latter by node id.
func Blit(gpu *gpucontext.Context, src, dst *gputexture.NodeTexture) error {
	return drawEffect(gpu, src, dst, EffectParams{Transform: stretchMatrix(), Mode: modePlain}, true)
}

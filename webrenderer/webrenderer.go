// Package webrenderer defines the interface boundary to the embedded web
// view subsystem (spec.md §1: "implemented against a separate browser
// process via shared memory; its interface to the graph is specified, its
// internals are not"). A Web scene node (scene.WebParams) selects one
// registered Instance by id; the render graph treats it as any other node
// whose Renderer produces an RGBA frame per tick, with its own GPU texture
// upload from whatever the browser process last composited.
package webrenderer

import (
	"context"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
)

// InstanceSpec configures one registered web-renderer instance: the page
// to load and the composited resolution the browser process renders at.
// The control API's register(entity_type="web_renderer") request decodes
// into this.
type InstanceSpec struct {
	URL        string
	Resolution [2]uint32
}

// Frame is one composited RGBA frame handed back from the browser process
// through the out-of-scope shared-memory transport, tightly packed
// row-major RGBA8.
type Frame struct {
	Pixels        []byte
	Width, Height uint32
}

// Instance is a running web-renderer process bound to one registered id.
// Its concrete implementation (spawning/supervising the browser process and
// the shared-memory transport) is out of scope per spec.md §1; this
// interface is the render graph's only contract with it.
type Instance interface {
	// URL returns the page this instance was registered with.
	URL() string

	// Resolution returns the instance's configured composited resolution.
	Resolution() (width, height uint32)

	// LatestFrame returns the most recently composited frame, or ok=false
	// if the browser process has not produced one yet (treated as a
	// missing input by the render graph's fallback propagation).
	LatestFrame(ctx context.Context) (frame Frame, ok bool)

	// Close tears down the browser process. Called when the instance is
	// unregistered.
	Close() error
}

// UploadFrame writes frame's RGBA8 pixels into target, the same per-node
// NodeTexture the builtin/shader renderers write into — it is the one
// piece of this package the render graph calls directly, since everything
// upstream of it (browser process, shared-memory decode) is out of scope.
func UploadFrame(gpu *gpucontext.Context, frame Frame, target *gputexture.NodeTexture) error {
	if err := target.EnsureSize(gpu, frame.Width, frame.Height); err != nil {
		return fmt.Errorf("webrenderer: size target texture: %w", err)
	}
	gpu.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{Texture: target.Texture(), MipLevel: 0, Aspect: wgpu.TextureAspectAll},
		frame.Pixels,
		&wgpu.TextureDataLayout{BytesPerRow: frame.Width * 4, RowsPerImage: frame.Height},
		&wgpu.Extent3D{Width: frame.Width, Height: frame.Height, DepthOrArrayLayers: 1},
	)
	target.MarkProduced()
	return nil
}

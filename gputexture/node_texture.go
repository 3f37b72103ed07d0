// Package gputexture implements the Texture Layer (spec.md §2, component
// 2): the lazily-allocated per-node RGBA render target (NodeTexture), the
// planar YUV triple an input's decoded frames are uploaded into
// (PlanarYUV), and the padded download buffers used to read a composited
// RGBA texture back to CPU-side planar YUV for egress.
package gputexture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// NodeTexture is the per-node GPU render target described in spec.md §3:
// a lazily-allocated RGBA texture, resized on resolution mismatch, that
// additionally tracks whether a frame was produced into it on the current
// tick — the flag the render graph's fallback propagation (§4.2) reads to
// decide whether a node's inputs are "missing."
//
// NodeTexture is not safe for concurrent use; the render graph owns one
// per declared node and only the single render thread touches it.
type NodeTexture struct {
	label string

	texture *wgpu.Texture
	view    *wgpu.TextureView
	storage *wgpu.TextureView // the same view as view, exposed for compute (storage-texture) writes

	width, height uint32
	producedThisTick bool
}

// NewNodeTexture returns an unallocated NodeTexture; GPU resources are
// created on the first EnsureSize call, matching the spec's "lazy RGBA
// target allocated on first use."
func NewNodeTexture(label string) *NodeTexture {
	return &NodeTexture{label: label}
}

// EnsureSize allocates the texture if it has never been sized, or resizes
// it (by releasing and recreating) if width/height no longer match. A
// matching call with the current size is a cheap no-op.
func (n *NodeTexture) EnsureSize(ctx *gpucontext.Context, width, height uint32) error {
	if n.texture != nil && n.width == width && n.height == height {
		return nil
	}
	n.release()

	tex, err := ctx.Device().CreateTexture(&wgpu.TextureDescriptor{
		Label:     n.label,
		Dimension: wgpu.TextureDimension2D,
		Size:      wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		Format:    wgpu.TextureFormatRGBA8Unorm,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopySrc,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("gputexture: allocate node texture %q (%dx%d): %w", n.label, width, height, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("gputexture: create view for %q: %w", n.label, err)
	}

	n.texture = tex
	n.view = view
	n.storage = view
	n.width, n.height = width, height
	n.producedThisTick = false
	return nil
}

// View returns the texture view bound at a shader's input texture array
// slot, or nil if the texture has never been allocated.
func (n *NodeTexture) View() *wgpu.TextureView { return n.view }

// StorageView returns the view used as a compute shader's write target
// (e.g. by the YUV->RGBA conversion pipeline). Identical to View for an
// RGBA8Unorm texture, kept distinct for clarity at call sites.
func (n *NodeTexture) StorageView() *wgpu.TextureView { return n.storage }

// Texture returns the underlying wgpu texture, or nil if unallocated.
func (n *NodeTexture) Texture() *wgpu.Texture { return n.texture }

// Width and Height return the texture's current resolution.
func (n *NodeTexture) Width() uint32  { return n.width }
func (n *NodeTexture) Height() uint32 { return n.height }

// Allocated reports whether EnsureSize has ever succeeded.
func (n *NodeTexture) Allocated() bool { return n.texture != nil }

// MarkProduced records that this tick's render step wrote fresh content
// into the texture. Called after a node renders (not after a fallback
// resolution, which copies another node's already-produced state).
func (n *NodeTexture) MarkProduced() { n.producedThisTick = true }

// MarkEmpty clears the produced flag, e.g. when a stream fallback timeout
// elapses and an input's last frame can no longer be reused.
func (n *NodeTexture) MarkEmpty() { n.producedThisTick = false }

// Empty reports whether this tick's render step has not yet produced a
// frame into this texture — the condition the render graph's fallback
// strategies (NeverFallback / FallbackIfAllInputsMissing /
// FallbackIfAnyInputMissing) test per input.
func (n *NodeTexture) Empty() bool { return !n.producedThisTick }

// Release frees the underlying GPU texture and view. Safe to call on an
// unallocated or already-released NodeTexture.
func (n *NodeTexture) Release() { n.release() }

func (n *NodeTexture) release() {
	if n.view != nil {
		n.view.Release()
		n.view = nil
		n.storage = nil
	}
	if n.texture != nil {
		n.texture.Release()
		n.texture = nil
	}
}

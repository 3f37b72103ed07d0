package gputexture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// OutputPlanes is the GPU-side target of the RGBA->YUV conversion pipeline
// (spec.md §4.2 step 4): three R8 storage textures the compute pipeline
// writes into, each backed by a DownloadBuffer used to read the result
// back to CPU-side Frame.Y/U/V byte slices.
type OutputPlanes struct {
	label string

	yTex, uTex, vTex    *wgpu.Texture
	yView, uView, vView *wgpu.TextureView

	yDownload, uDownload, vDownload *DownloadBuffer

	width, height uint32
}

// NewOutputPlanes returns an unallocated OutputPlanes.
func NewOutputPlanes(label string) *OutputPlanes {
	return &OutputPlanes{label: label}
}

// EnsureSize allocates or resizes the three output planes and their
// download buffers for an even luma resolution of width x height. Output
// resolutions must be even in both dimensions (spec.md §3); callers
// (pipeline.Pipeline.RegisterOutput) reject odd resolutions before this is
// ever called, and this method also returns an error for them.
func (o *OutputPlanes) EnsureSize(ctx *gpucontext.Context, width, height uint32) error {
	if o.yTex != nil && o.width == width && o.height == height {
		return nil
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("gputexture: output resolution %dx%d is not even in both dimensions", width, height)
	}
	o.release()

	mk := func(label string, w, h uint32) (*wgpu.Texture, *wgpu.TextureView, *DownloadBuffer, error) {
		tex, err := ctx.Device().CreateTexture(&wgpu.TextureDescriptor{
			Label:         label,
			Dimension:     wgpu.TextureDimension2D,
			Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			Format:        wgpu.TextureFormatR8Unorm,
			Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopySrc,
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return nil, nil, nil, err
		}
		dl, err := NewDownloadBuffer(ctx, label+" download", w, h, 1)
		if err != nil {
			view.Release()
			tex.Release()
			return nil, nil, nil, err
		}
		return tex, view, dl, nil
	}

	var err error
	o.yTex, o.yView, o.yDownload, err = mk(o.label+" Y", width, height)
	if err != nil {
		return fmt.Errorf("gputexture: allocate output Y plane: %w", err)
	}
	o.uTex, o.uView, o.uDownload, err = mk(o.label+" U", width/2, height/2)
	if err != nil {
		o.release()
		return fmt.Errorf("gputexture: allocate output U plane: %w", err)
	}
	o.vTex, o.vView, o.vDownload, err = mk(o.label+" V", width/2, height/2)
	if err != nil {
		o.release()
		return fmt.Errorf("gputexture: allocate output V plane: %w", err)
	}

	o.width, o.height = width, height
	return nil
}

// YView, UView, VView expose the storage-texture views bound to the
// RGBA->YUV conversion pipeline's write bindings.
func (o *OutputPlanes) YView() *wgpu.TextureView { return o.yView }
func (o *OutputPlanes) UView() *wgpu.TextureView { return o.uView }
func (o *OutputPlanes) VView() *wgpu.TextureView { return o.vView }

// YTexture, UTexture, VTexture expose the underlying textures, used as the
// CopyTextureToBuffer source when downloading.
func (o *OutputPlanes) YTexture() *wgpu.Texture { return o.yTex }
func (o *OutputPlanes) UTexture() *wgpu.Texture { return o.uTex }
func (o *OutputPlanes) VTexture() *wgpu.Texture { return o.vTex }

// Width and Height return the luma plane's current resolution.
func (o *OutputPlanes) Width() uint32  { return o.width }
func (o *OutputPlanes) Height() uint32 { return o.height }

// EncodeDownload appends CopyTextureToBuffer commands for all three planes
// to encoder. Call Submit and then Read on each DownloadBuffer afterward.
func (o *OutputPlanes) EncodeDownload(encoder *wgpu.CommandEncoder) {
	o.yDownload.EncodeCopy(encoder, o.yTex)
	o.uDownload.EncodeCopy(encoder, o.uTex)
	o.vDownload.EncodeCopy(encoder, o.vTex)
}

// ReadPlanes maps and reads back the three planes' tightly-packed bytes,
// after the command buffer containing EncodeDownload's commands has been
// submitted and the device polled to completion. The returned slices are
// freshly allocated and safe to hand off as a Frame's Y/U/V data.
func (o *OutputPlanes) ReadPlanes() (y, u, v []byte, err error) {
	if y, err = o.yDownload.Read(); err != nil {
		return nil, nil, nil, fmt.Errorf("gputexture: read Y plane: %w", err)
	}
	if u, err = o.uDownload.Read(); err != nil {
		return nil, nil, nil, fmt.Errorf("gputexture: read U plane: %w", err)
	}
	if v, err = o.vDownload.Read(); err != nil {
		return nil, nil, nil, fmt.Errorf("gputexture: read V plane: %w", err)
	}
	return y, u, v, nil
}

// Release frees the three planes, their views, and their download buffers.
func (o *OutputPlanes) Release() { o.release() }

func (o *OutputPlanes) release() {
	for _, dl := range []*DownloadBuffer{o.yDownload, o.uDownload, o.vDownload} {
		if dl != nil {
			dl.Release()
		}
	}
	o.yDownload, o.uDownload, o.vDownload = nil, nil, nil
	for _, v := range []*wgpu.TextureView{o.yView, o.uView, o.vView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{o.yTex, o.uTex, o.vTex} {
		if t != nil {
			t.Release()
		}
	}
	o.yTex, o.uTex, o.vTex = nil, nil, nil
	o.yView, o.uView, o.vView = nil, nil, nil
}

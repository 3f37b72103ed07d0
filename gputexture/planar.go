package gputexture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// PlanarYUV is the three-texture staging target an input's decoded frames
// are uploaded into before the YUV->RGBA conversion pipeline runs (spec.md
// §4.2 step 1: "upload its YUV planes to the input's three R8 textures").
// U and V are allocated at half resolution in both dimensions, matching
// 4:2:0 chroma subsampling (spec.md §3).
type PlanarYUV struct {
	label string

	yTex, uTex, vTex *wgpu.Texture
	yView, uView, vView *wgpu.TextureView

	width, height uint32
}

// NewPlanarYUV returns an unallocated PlanarYUV; call EnsureSize before the
// first Upload.
func NewPlanarYUV(label string) *PlanarYUV {
	return &PlanarYUV{label: label}
}

// EnsureSize allocates or resizes the three planes for a luma resolution
// of width x height. width and height are not checked for evenness at this
// layer or anywhere on the input path — only output resolutions are
// rejected when odd, at output registration (spec.md §3); an
// odd-dimensioned input frame is not validated here.
func (p *PlanarYUV) EnsureSize(ctx *gpucontext.Context, width, height uint32) error {
	if p.yTex != nil && p.width == width && p.height == height {
		return nil
	}
	p.release()

	mk := func(label string, w, h uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
		tex, err := ctx.Device().CreateTexture(&wgpu.TextureDescriptor{
			Label:         label,
			Dimension:     wgpu.TextureDimension2D,
			Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			Format:        wgpu.TextureFormatR8Unorm,
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			return nil, nil, err
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return nil, nil, err
		}
		return tex, view, nil
	}

	var err error
	p.yTex, p.yView, err = mk(p.label+" Y", width, height)
	if err != nil {
		return fmt.Errorf("gputexture: allocate Y plane: %w", err)
	}
	p.uTex, p.uView, err = mk(p.label+" U", width/2, height/2)
	if err != nil {
		p.release()
		return fmt.Errorf("gputexture: allocate U plane: %w", err)
	}
	p.vTex, p.vView, err = mk(p.label+" V", width/2, height/2)
	if err != nil {
		p.release()
		return fmt.Errorf("gputexture: allocate V plane: %w", err)
	}

	p.width, p.height = width, height
	return nil
}

// Upload writes y, u, v plane bytes (row-major, tightly packed — the
// caller's Frame data, not GPU-padded) to the three planes via
// queue.WriteTexture, which accepts arbitrary bytesPerRow unlike a
// CopyBufferToTexture command, so no padding is needed on upload (only on
// download — see DownloadBuffer).
func (p *PlanarYUV) Upload(ctx *gpucontext.Context, y, u, v []byte) {
	write := func(tex *wgpu.Texture, data []byte, w, h uint32) {
		ctx.Queue().WriteTexture(
			&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: wgpu.TextureAspectAll},
			data,
			&wgpu.TextureDataLayout{BytesPerRow: w, RowsPerImage: h},
			&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}
	write(p.yTex, y, p.width, p.height)
	write(p.uTex, u, p.width/2, p.height/2)
	write(p.vTex, v, p.width/2, p.height/2)
}

// YView, UView, VView return the three plane views bound to the YUV->RGBA
// conversion pipeline's input bindings.
func (p *PlanarYUV) YView() *wgpu.TextureView { return p.yView }
func (p *PlanarYUV) UView() *wgpu.TextureView { return p.uView }
func (p *PlanarYUV) VView() *wgpu.TextureView { return p.vView }

// Width and Height return the luma plane's current resolution.
func (p *PlanarYUV) Width() uint32  { return p.width }
func (p *PlanarYUV) Height() uint32 { return p.height }

// Release frees the three planes' GPU resources.
func (p *PlanarYUV) Release() { p.release() }

func (p *PlanarYUV) release() {
	for _, v := range []*wgpu.TextureView{p.yView, p.uView, p.vView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{p.yTex, p.uTex, p.vTex} {
		if t != nil {
			t.Release()
		}
	}
	p.yTex, p.uTex, p.vTex = nil, nil, nil
	p.yView, p.uView, p.vView = nil, nil, nil
}

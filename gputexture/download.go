package gputexture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// copyBytesPerRowAlignment is wgpu's required alignment, in bytes, for the
// bytesPerRow field of a buffer<->texture copy. An R8Unorm plane's natural
// row size (width bytes) rarely satisfies it, so every download buffer is
// allocated with each row padded up to this alignment (spec.md §2,
// component 2: "download buffers with 256-byte row padding").
const copyBytesPerRowAlignment = 256

func alignUp(n, align uint32) uint32 {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// DownloadBuffer is a CPU-readable staging buffer sized for one GPU
// texture-to-buffer copy, holding bytesPerPixel bytes per texel padded to
// copyBytesPerRowAlignment per row as wgpu requires. Read() strips the
// padding back out, returning tightly-packed plane bytes matching the
// layout of Frame.Data's Y/U/V fields.
type DownloadBuffer struct {
	ctx *gpucontext.Context

	buffer      *wgpu.Buffer
	width       uint32
	height      uint32
	bytesPerPixel uint32
	paddedBytesPerRow uint32
}

// NewDownloadBuffer allocates a MapRead|CopyDst buffer sized
// height*paddedBytesPerRow(width*bytesPerPixel).
func NewDownloadBuffer(ctx *gpucontext.Context, label string, width, height, bytesPerPixel uint32) (*DownloadBuffer, error) {
	padded := alignUp(width*bytesPerPixel, copyBytesPerRowAlignment)
	buf, err := ctx.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(padded) * uint64(height),
		Usage:            wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("gputexture: create download buffer %q: %w", label, err)
	}
	return &DownloadBuffer{
		ctx:               ctx,
		buffer:            buf,
		width:             width,
		height:            height,
		bytesPerPixel:     bytesPerPixel,
		paddedBytesPerRow: padded,
	}, nil
}

// EncodeCopy appends a CopyTextureToBuffer command reading all of tex's
// mip 0 layer into this buffer, using the padded row stride.
func (d *DownloadBuffer) EncodeCopy(encoder *wgpu.CommandEncoder, tex *wgpu.Texture) {
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: d.buffer,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  d.paddedBytesPerRow,
				RowsPerImage: d.height,
			},
		},
		&wgpu.Extent3D{Width: d.width, Height: d.height, DepthOrArrayLayers: 1},
	)
}

// Read maps the buffer for reading, copies out its contents with row
// padding stripped, and unmaps it. Must be called only after a command
// buffer containing this buffer's EncodeCopy has been submitted and the
// device polled to completion — the caller (rendergraph) owns that
// sequencing since it batches all three planes' downloads into one submit.
func (d *DownloadBuffer) Read() ([]byte, error) {
	mapErr := make(chan error, 1)
	if err := d.buffer.MapAsync(wgpu.MapModeRead, 0, d.buffer.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr <- fmt.Errorf("gputexture: map download buffer: status %v", status)
			return
		}
		mapErr <- nil
	}); err != nil {
		return nil, fmt.Errorf("gputexture: MapAsync: %w", err)
	}

	d.ctx.Device().Poll(true, nil)
	if err := <-mapErr; err != nil {
		return nil, err
	}
	defer d.buffer.Unmap()

	padded := d.buffer.GetMappedRange(0, uint(d.buffer.GetSize()))
	rowBytes := d.width * d.bytesPerPixel
	out := make([]byte, int(rowBytes)*int(d.height))
	for row := uint32(0); row < d.height; row++ {
		src := padded[row*d.paddedBytesPerRow : row*d.paddedBytesPerRow+rowBytes]
		copy(out[row*rowBytes:(row+1)*rowBytes], src)
	}
	return out, nil
}

// Release frees the underlying GPU buffer.
func (d *DownloadBuffer) Release() {
	if d.buffer != nil {
		d.buffer.Release()
		d.buffer = nil
	}
}

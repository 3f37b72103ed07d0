package gputexture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// BuildYUVToRGBABindGroup creates the bind group for one dispatch of the
// context's YUV->RGBA conversion pipeline, reading src's three planes and
// writing dst's storage view.
func BuildYUVToRGBABindGroup(ctx *gpucontext.Context, src *PlanarYUV, dst *NodeTexture) (*wgpu.BindGroup, error) {
	bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "yuv_to_rgba bind group",
		Layout: ctx.Conversions().YUVToRGBALayout(),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: src.YView()},
			{Binding: 1, TextureView: src.UView()},
			{Binding: 2, TextureView: src.VView()},
			{Binding: 3, TextureView: dst.StorageView()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gputexture: yuv_to_rgba bind group: %w", err)
	}
	return bg, nil
}

// BuildRGBAToYUVBindGroup creates the bind group for one dispatch of the
// context's RGBA->YUV conversion pipeline, reading src's color view and
// writing dst's three plane storage views.
func BuildRGBAToYUVBindGroup(ctx *gpucontext.Context, src *NodeTexture, dst *OutputPlanes) (*wgpu.BindGroup, error) {
	bg, err := ctx.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "rgba_to_yuv bind group",
		Layout: ctx.Conversions().RGBAToYUVLayout(),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: src.View()},
			{Binding: 1, TextureView: dst.YView()},
			{Binding: 2, TextureView: dst.UView()},
			{Binding: 3, TextureView: dst.VView()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gputexture: rgba_to_yuv bind group: %w", err)
	}
	return bg, nil
}

// DispatchConversion encodes a compute pass running pipeline over a
// groupCountX x groupCountY x 1 grid of 8x8 workgroups sized to cover
// width x height, with bindGroup set at index 0. Shared by both
// conversion directions and by FillR8.
func DispatchConversion(encoder *wgpu.CommandEncoder, pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, width, height uint32) {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	groupsX := (width + 7) / 8
	groupsY := (height + 7) / 8
	pass.DispatchWorkgroups(groupsX, groupsY, 1)
	pass.End()
}

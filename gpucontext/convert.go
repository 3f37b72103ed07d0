package gpucontext

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// conversionPipelines holds the three fixed-function compute pipelines
// every Context builds once: planar 4:2:0 YUV -> RGBA (texture upload),
// RGBA -> planar 4:2:0 YUV (texture download for egress), and a solid-color
// R8 fill used to seed a freshly-allocated plane with a known value (e.g.
// neutral chroma 128 for a U/V plane with no frame yet). These correspond
// to component 1's "format conversion pipelines (YUV<->RGBA, R8 fill)" in
// spec.md §2, grounded in the teacher's RegisterComputePipeline /
// DispatchCompute path (wgpu_renderer_backend.go) rather than its render
// pipeline path: there is no rasterization here, only a per-texel mapping,
// which is exactly what the teacher itself reserves compute pipelines for
// in its (unused by this package, but structurally identical) compute
// dispatch machinery.
type conversionPipelines struct {
	device *wgpu.Device

	yuvToRGBALayout *wgpu.BindGroupLayout
	yuvToRGBA       *wgpu.ComputePipeline

	rgbaToYUVLayout *wgpu.BindGroupLayout
	rgbaToYUV       *wgpu.ComputePipeline

	r8FillLayout *wgpu.BindGroupLayout
	r8Fill       *wgpu.ComputePipeline
}

// yuvToRGBAShader samples the three full/half-resolution R8 planes and
// writes one premultiplied-free BT.601 RGBA texel per invocation.
const yuvToRGBAShader = `
@group(0) @binding(0) var y_plane: texture_2d<f32>;
@group(0) @binding(1) var u_plane: texture_2d<f32>;
@group(0) @binding(2) var v_plane: texture_2d<f32>;
@group(0) @binding(3) var out_rgba: texture_storage_2d<rgba8unorm, write>;

@compute @workgroup_size(8, 8, 1)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let dims = textureDimensions(out_rgba);
    if (gid.x >= dims.x || gid.y >= dims.y) {
        return;
    }

    let y = textureLoad(y_plane, vec2<i32>(i32(gid.x), i32(gid.y)), 0).r;
    let uv_coord = vec2<i32>(i32(gid.x / 2u), i32(gid.y / 2u));
    let u = textureLoad(u_plane, uv_coord, 0).r - 0.5;
    let v = textureLoad(v_plane, uv_coord, 0).r - 0.5;

    let r = y + 1.402 * v;
    let g = y - 0.344136 * u - 0.714136 * v;
    let b = y + 1.772 * u;

    textureStore(out_rgba, vec2<i32>(i32(gid.x), i32(gid.y)), vec4<f32>(r, g, b, 1.0));
}
`

// rgbaToYUVShader writes the luma plane every invocation and additionally
// writes the (down-sampled, averaged over the 2x2 block) chroma planes on
// invocations whose coordinates are even in both axes.
const rgbaToYUVShader = `
@group(0) @binding(0) var in_rgba: texture_2d<f32>;
@group(0) @binding(1) var out_y: texture_storage_2d<r8unorm, write>;
@group(0) @binding(2) var out_u: texture_storage_2d<r8unorm, write>;
@group(0) @binding(3) var out_v: texture_storage_2d<r8unorm, write>;

fn luma(c: vec3<f32>) -> f32 {
    return 0.299 * c.r + 0.587 * c.g + 0.114 * c.b;
}

fn chroma_u(c: vec3<f32>) -> f32 {
    return (-0.168736 * c.r - 0.331264 * c.g + 0.5 * c.b) + 0.5;
}

fn chroma_v(c: vec3<f32>) -> f32 {
    return (0.5 * c.r - 0.418688 * c.g - 0.081312 * c.b) + 0.5;
}

@compute @workgroup_size(8, 8, 1)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let dims = textureDimensions(in_rgba);
    if (gid.x >= dims.x || gid.y >= dims.y) {
        return;
    }
    let px = vec2<i32>(i32(gid.x), i32(gid.y));
    let c = textureLoad(in_rgba, px, 0).rgb;
    textureStore(out_y, px, vec4<f32>(luma(c), 0.0, 0.0, 1.0));

    if (gid.x % 2u == 0u && gid.y % 2u == 0u) {
        let c01 = textureLoad(in_rgba, px + vec2<i32>(1, 0), 0).rgb;
        let c10 = textureLoad(in_rgba, px + vec2<i32>(0, 1), 0).rgb;
        let c11 = textureLoad(in_rgba, px + vec2<i32>(1, 1), 0).rgb;
        let avg = (c + c01 + c10 + c11) * 0.25;
        let uv_coord = vec2<i32>(i32(gid.x / 2u), i32(gid.y / 2u));
        textureStore(out_u, uv_coord, vec4<f32>(chroma_u(avg), 0.0, 0.0, 1.0));
        textureStore(out_v, uv_coord, vec4<f32>(chroma_v(avg), 0.0, 0.0, 1.0));
    }
}
`

// r8FillShader stores a uniform value across an R8 plane, used to seed a
// newly-allocated chroma plane with neutral (128/255) before any frame has
// arrived, so a stream-fallback texture never shows an uninitialized plane.
const r8FillShader = `
struct FillParams {
    value: f32,
}

@group(0) @binding(0) var<uniform> params: FillParams;
@group(0) @binding(1) var out_plane: texture_storage_2d<r8unorm, write>;

@compute @workgroup_size(8, 8, 1)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let dims = textureDimensions(out_plane);
    if (gid.x >= dims.x || gid.y >= dims.y) {
        return;
    }
    textureStore(out_plane, vec2<i32>(i32(gid.x), i32(gid.y)), vec4<f32>(params.value, 0.0, 0.0, 1.0));
}
`

func newConversionPipelines(device *wgpu.Device) (*conversionPipelines, error) {
	c := &conversionPipelines{device: device}

	var err error
	c.yuvToRGBALayout, c.yuvToRGBA, err = buildComputePipeline(device, "yuv_to_rgba", yuvToRGBAShader, []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageCompute, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 1, Visibility: wgpu.ShaderStageCompute, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 2, Visibility: wgpu.ShaderStageCompute, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 3, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatRGBA8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
	})
	if err != nil {
		return nil, err
	}

	c.rgbaToYUVLayout, c.rgbaToYUV, err = buildComputePipeline(device, "rgba_to_yuv", rgbaToYUVShader, []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageCompute, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 1, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatR8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 2, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatR8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 3, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatR8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
	})
	if err != nil {
		return nil, err
	}

	c.r8FillLayout, c.r8Fill, err = buildComputePipeline(device, "r8_fill", r8FillShader, []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatR8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func buildComputePipeline(device *wgpu.Device, label, source string, entries []wgpu.BindGroupLayoutEntry) (*wgpu.BindGroupLayout, *wgpu.ComputePipeline, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucontext: compile %s: %w", label, err)
	}
	defer module.Release()

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " layout",
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucontext: %s bind group layout: %w", label, err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + " pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, nil, fmt.Errorf("gpucontext: %s pipeline layout: %w", label, err)
	}
	defer pipelineLayout.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		layout.Release()
		return nil, nil, fmt.Errorf("gpucontext: %s pipeline: %w", label, err)
	}

	return layout, pipeline, nil
}

// YUVToRGBALayout returns the bind group layout for the YUV->RGBA pipeline.
func (c *conversionPipelines) YUVToRGBALayout() *wgpu.BindGroupLayout { return c.yuvToRGBALayout }

// YUVToRGBA returns the compute pipeline converting three planar R8
// textures (Y, U, V) into one RGBA storage texture.
func (c *conversionPipelines) YUVToRGBA() *wgpu.ComputePipeline { return c.yuvToRGBA }

// RGBAToYUVLayout returns the bind group layout for the RGBA->YUV pipeline.
func (c *conversionPipelines) RGBAToYUVLayout() *wgpu.BindGroupLayout { return c.rgbaToYUVLayout }

// RGBAToYUV returns the compute pipeline converting one RGBA texture into
// three planar R8 storage textures (Y, U, V).
func (c *conversionPipelines) RGBAToYUV() *wgpu.ComputePipeline { return c.rgbaToYUV }

// R8FillLayout returns the bind group layout for the R8 fill pipeline.
func (c *conversionPipelines) R8FillLayout() *wgpu.BindGroupLayout { return c.r8FillLayout }

// R8Fill returns the compute pipeline that stores a uniform value across an
// R8 storage texture, used to seed freshly-allocated planes.
func (c *conversionPipelines) R8Fill() *wgpu.ComputePipeline { return c.r8Fill }

func (c *conversionPipelines) release() {
	for _, p := range []*wgpu.ComputePipeline{c.yuvToRGBA, c.rgbaToYUV, c.r8Fill} {
		if p != nil {
			p.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{c.yuvToRGBALayout, c.rgbaToYUVLayout, c.r8FillLayout} {
		if l != nil {
			l.Release()
		}
	}
}

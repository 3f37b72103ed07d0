package builtin

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/common"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
)

// effectShaderSource is the shared vertex+fragment pipeline backing the
// layout family, MirrorImage, and CornersRounding — spec.md §4.5's "shared
// matrix-apply shader" generalized with an effect-mode push constant
// rather than one pipeline per kind, since all three only ever differ in
// how the fragment stage samples/masks a single input texture through a
// per-node transform matrix.
const effectShaderSource = `
struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

struct EffectParams {
    transform: mat4x4<f32>,
    mode: u32,       // 0 = plain, 1 = mirror_h, 2 = mirror_v, 3 = mirror_both, 4 = corners
    border_radius: f32,
    aspect: f32,
    _pad: f32,
}

var<push_constant> params: EffectParams;

@group(0) @binding(0) var input_tex: texture_2d<f32>;
@group(1) @binding(0) var input_sampler: sampler;

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = params.transform * vec4<f32>(in.position, 0.0, 1.0);
    out.uv = in.uv;
    return out;
}

fn mirrored_uv(uv: vec2<f32>) -> vec2<f32> {
    var out = uv;
    if (params.mode == 1u || params.mode == 3u) {
        out.x = 1.0 - out.x;
    }
    if (params.mode == 2u || params.mode == 3u) {
        out.y = 1.0 - out.y;
    }
    return out;
}

fn corner_alpha(uv: vec2<f32>) -> f32 {
    let px = vec2<f32>(uv.x * params.aspect, uv.y);
    let size = vec2<f32>(params.aspect, 1.0);
    let r = params.border_radius;
    let d = max(abs(px - size * 0.5) - (size * 0.5 - vec2<f32>(r, r)), vec2<f32>(0.0, 0.0));
    let dist = length(d) - r;
    return 1.0 - smoothstep(0.0, 1.5 / max(params.aspect, 1.0) * 0.01, dist);
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let uv = mirrored_uv(in.uv);
    var color = textureSample(input_tex, input_sampler, uv);
    if (params.mode == 4u) {
        color.a = color.a * corner_alpha(in.uv);
    }
    return color;
}
`

// EffectParams is the Go-side mirror of the shared pipeline's push
// constant block.
type EffectParams struct {
	Transform    [16]float32
	Mode         uint32
	BorderRadius float32
	Aspect       float32
	_pad         float32
}

const (
	modePlain uint32 = 0
	modeMirrorH uint32 = 1
	modeMirrorV uint32 = 2
	modeMirrorBoth uint32 = 3
	modeCorners uint32 = 4
)

type effectPipeline struct {
	pipeline        *wgpu.RenderPipeline
	textureLayout   *wgpu.BindGroupLayout
	samplerLayout   *wgpu.BindGroupLayout
	samplerBindGroup *wgpu.BindGroup
	vertexBuffer    *wgpu.Buffer
}

var (
	effectPipelinesMu sync.Mutex
	effectPipelines   = map[*gpucontext.Context]*effectPipeline{}
)

// unitQuadVertices is six vertices (two triangles) covering clip space
// [-1,1]x[-1,1] with the per-node transform matrix applied in the vertex
// shader, matching every layout's "4x4 transformation matrix per input".
var unitQuadVertices = []float32{
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, -1, 0, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

func getEffectPipeline(gpu *gpucontext.Context) (*effectPipeline, error) {
	effectPipelinesMu.Lock()
	defer effectPipelinesMu.Unlock()

	if p, ok := effectPipelines[gpu]; ok {
		return p, nil
	}

	device := gpu.Device()
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "builtin effect shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: effectShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("builtin: compile shared effect shader: %w", err)
	}
	defer module.Release()

	textureLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "effect texture layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("builtin: texture bind group layout: %w", err)
	}

	samplerLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "effect sampler layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
		},
	})
	if err != nil {
		textureLayout.Release()
		return nil, fmt.Errorf("builtin: sampler bind group layout: %w", err)
	}

	samplerBindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "effect sampler bind group",
		Layout: samplerLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: gpu.SharedSampler()},
		},
	})
	if err != nil {
		textureLayout.Release()
		samplerLayout.Release()
		return nil, fmt.Errorf("builtin: sampler bind group: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "effect pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{textureLayout, samplerLayout},
		PushConstantRanges: []wgpu.PushConstantRange{
			{Stages: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment, Start: 0, End: 80},
		},
	})
	if err != nil {
		textureLayout.Release()
		samplerLayout.Release()
		samplerBindGroup.Release()
		return nil, fmt.Errorf("builtin: pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	renderPipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "builtin effect pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: 16,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: wgpu.TextureFormatRGBA8Unorm,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
					Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		textureLayout.Release()
		samplerLayout.Release()
		samplerBindGroup.Release()
		return nil, fmt.Errorf("builtin: create render pipeline: %w", err)
	}

	vbuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "effect unit quad",
		Size:             uint64(len(unitQuadVertices) * 4),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("builtin: create vertex buffer: %w", err)
	}
	gpu.Queue().WriteBuffer(vbuf, 0, common.SliceToBytes(unitQuadVertices))

	p := &effectPipeline{
		pipeline:         renderPipeline,
		textureLayout:    textureLayout,
		samplerLayout:    samplerLayout,
		samplerBindGroup: samplerBindGroup,
		vertexBuffer:     vbuf,
	}
	effectPipelines[gpu] = p
	return p, nil
}

// drawEffect renders one input through the shared effect pipeline into
// target, with params controlling the vertex transform and fragment mode.
// clear selects whether the render pass clears target first (the first
// draw of a multi-input layout) or loads its existing content (subsequent
// tiles/positions drawn into the same target).
func drawEffect(gpu *gpucontext.Context, input, target *gputexture.NodeTexture, params EffectParams, clear bool) error {
	p, err := getEffectPipeline(gpu)
	if err != nil {
		return err
	}

	textureBindGroup, err := gpu.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "effect texture bind group",
		Layout: p.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: input.View()},
		},
	})
	if err != nil {
		return fmt.Errorf("builtin: texture bind group: %w", err)
	}
	defer textureBindGroup.Release()

	encoder, err := gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("builtin: command encoder: %w", err)
	}

	loadOp := wgpu.LoadOpLoad
	if clear {
		loadOp = wgpu.LoadOpClear
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    target.View(),
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, textureBindGroup, nil)
	pass.SetBindGroup(1, p.samplerBindGroup, nil)
	pass.SetPushConstants(wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, 0, structToBytes(&params))
	pass.SetVertexBuffer(0, p.vertexBuffer, 0, wgpu.WholeSize)
	pass.Draw(6, 1, 0, 0)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("builtin: finish command buffer: %w", err)
	}
	gpu.Queue().Submit(cmd)
	cmd.Release()
	encoder.Release()

	target.MarkProduced()
	return nil
}

func structToBytes(p *EffectParams) []byte {
	return common.StructToBytes(p)
}

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/common"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
	"github.com/oxy-systems/scenecompositor/shader"
)

// shaderInputSlots is the fixed size of the header's
// binding_array<texture_2d<f32>, 16> — every shader pipeline's group 0 bind
// group has exactly this many entries regardless of a node's declared
// input_pads count, with unused slots filled by the GPU context's empty
// texture (shader/header.go).
const shaderInputSlots = 16

// shaderQuadVertices is the unit clip-space quad every shader node draws,
// matching the header's VertexInput layout (position, uv).
var shaderQuadVertices = []float32{
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, -1, 0, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

// compiledShaderPipeline is the GPU-side pipeline object and layouts built
// once per registered shader and shared by every node that selects it — the
// pipeline's vertex/fragment stages and bind group layouts depend only on
// the shader's parsed source, never on a node's inputs or shader_params
// bytes (SPEC_FULL.md §4.3). Modeled on builtin.getEffectPipeline's
// per-context cache, generalized to key by shader id as well since multiple
// distinct user shaders can be registered at once.
type compiledShaderPipeline struct {
	sh shader.Shader

	renderPipeline *wgpu.RenderPipeline
	group0Layout   *wgpu.BindGroupLayout
	group1Layout   *wgpu.BindGroupLayout // nil when the shader declares no params
	group2Layout   *wgpu.BindGroupLayout

	// group2 is the shared-sampler bind group, identical for every node
	// instance of this shader, held by a shaderBindGroup for its Release()
	// lifecycle rather than a bare unwrapped field.
	group2 *shaderBindGroup
	// emptyGroup1 backs group 1 when the shader has no params: WebGPU still
	// requires a bind group bound at every index covered by the pipeline
	// layout, so a params-less shader still needs an (empty) group 1.
	emptyGroup1 *shaderBindGroup

	vertexBuffer *wgpu.Buffer
}

type shaderPipelineKey struct {
	gpu *gpucontext.Context
	id  string
}

var (
	shaderPipelinesMu sync.Mutex
	shaderPipelines   = map[shaderPipelineKey]*compiledShaderPipeline{}
)

func getOrBuildShaderPipeline(gpu *gpucontext.Context, sh shader.Shader) (*compiledShaderPipeline, error) {
	shaderPipelinesMu.Lock()
	defer shaderPipelinesMu.Unlock()

	key := shaderPipelineKey{gpu: gpu, id: sh.Key()}
	if cp, ok := shaderPipelines[key]; ok {
		return cp, nil
	}

	device := gpu.Device()
	module, err := device.CreateShaderModule(sh.Module())
	if err != nil {
		return nil, fmt.Errorf("pipeline: shader %q: compile module: %w", sh.Key(), err)
	}
	defer module.Release()

	group0Desc := sh.BindGroupLayoutDescriptor(0)
	group0Layout, err := device.CreateBindGroupLayout(&group0Desc)
	if err != nil {
		return nil, fmt.Errorf("pipeline: shader %q: group 0 layout: %w", sh.Key(), err)
	}

	var group1Layout *wgpu.BindGroupLayout
	if sh.HasParams() {
		group1Desc := sh.BindGroupLayoutDescriptor(1)
		group1Layout, err = device.CreateBindGroupLayout(&group1Desc)
		if err != nil {
			group0Layout.Release()
			return nil, fmt.Errorf("pipeline: shader %q: group 1 layout: %w", sh.Key(), err)
		}
	} else {
		group1Layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: "shader " + sh.Key() + " empty group 1",
		})
		if err != nil {
			group0Layout.Release()
			return nil, fmt.Errorf("pipeline: shader %q: empty group 1 layout: %w", sh.Key(), err)
		}
	}

	group2Desc := sh.BindGroupLayoutDescriptor(2)
	group2Layout, err := device.CreateBindGroupLayout(&group2Desc)
	if err != nil {
		group0Layout.Release()
		group1Layout.Release()
		return nil, fmt.Errorf("pipeline: shader %q: group 2 layout: %w", sh.Key(), err)
	}

	group2BindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "shader " + sh.Key() + " sampler bind group",
		Layout: group2Layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: gpu.SharedSampler()},
		},
	})
	if err != nil {
		group0Layout.Release()
		group1Layout.Release()
		group2Layout.Release()
		return nil, fmt.Errorf("pipeline: shader %q: sampler bind group: %w", sh.Key(), err)
	}
	group2 := newShaderBindGroup(group2BindGroup, nil)

	var emptyGroup1 *shaderBindGroup
	if !sh.HasParams() {
		bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "shader " + sh.Key() + " empty group 1 bind group",
			Layout: group1Layout,
		})
		if err != nil {
			group0Layout.Release()
			group1Layout.Release()
			group2Layout.Release()
			group2.Release()
			return nil, fmt.Errorf("pipeline: shader %q: empty group 1 bind group: %w", sh.Key(), err)
		}
		emptyGroup1 = newShaderBindGroup(bg, nil)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "shader " + sh.Key() + " pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{group0Layout, group1Layout, group2Layout},
		PushConstantRanges: []wgpu.PushConstantRange{
			{Stages: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment, Start: 0, End: 16},
		},
	})
	if err != nil {
		group0Layout.Release()
		group1Layout.Release()
		group2Layout.Release()
		group2.Release()
		emptyGroup1.Release()
		return nil, fmt.Errorf("pipeline: shader %q: pipeline layout: %w", sh.Key(), err)
	}
	defer pipelineLayout.Release()

	renderPipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "shader " + sh.Key() + " render pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: sh.VertexEntryPoint(),
			Buffers:    sh.VertexLayout(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: sh.FragmentEntryPoint(),
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
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		group0Layout.Release()
		group1Layout.Release()
		group2Layout.Release()
		group2.Release()
		emptyGroup1.Release()
		return nil, fmt.Errorf("pipeline: shader %q: create render pipeline: %w", sh.Key(), err)
	}

	vbuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "shader " + sh.Key() + " unit quad",
		Size:  uint64(len(shaderQuadVertices) * 4),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		group0Layout.Release()
		group1Layout.Release()
		group2Layout.Release()
		group2.Release()
		emptyGroup1.Release()
		renderPipeline.Release()
		return nil, fmt.Errorf("pipeline: shader %q: vertex buffer: %w", sh.Key(), err)
	}
	gpu.Queue().WriteBuffer(vbuf, 0, common.SliceToBytes(shaderQuadVertices))

	cp := &compiledShaderPipeline{
		sh:             sh,
		renderPipeline: renderPipeline,
		group0Layout:   group0Layout,
		group1Layout:   group1Layout,
		group2Layout:   group2Layout,
		group2:         group2,
		emptyGroup1:    emptyGroup1,
		vertexBuffer:   vbuf,
	}
	shaderPipelines[key] = cp
	return cp, nil
}

// shaderRenderer is the builtin.Renderer for a Shader scene node (spec.md
// §4.3): it draws its declared inputs through its registered shader's
// compiled pipeline, rebuilding the group 0 input-texture-array bind group
// every tick (inputs are a different set of NodeTextures each time) while
// reusing the group 1 (shader_params) bind group for the node's lifetime —
// shader_params is immutable once a node is installed (scene.ShaderParams
// has no mutation operation).
type shaderRenderer struct {
	cp     *compiledShaderPipeline
	params *scene.ShaderParams

	group1     *shaderBindGroup // lazily built; nil until first Render if HasParams
	group1Init bool
}

func (p *Pipeline) buildShaderRenderer(params *scene.ShaderParams) (builtin.Renderer, error) {
	sh, err := p.shaders.Get(string(params.ShaderID))
	if err != nil {
		return nil, fmt.Errorf("pipeline: shader node: %w", err)
	}
	cp, err := getOrBuildShaderPipeline(p.gpu, sh)
	if err != nil {
		return nil, err
	}
	return &shaderRenderer{cp: cp, params: params}, nil
}

func (r *shaderRenderer) InputCountConstraint() scene.InputCountConstraint { return shaderInputRange }
func (r *shaderRenderer) FallbackStrategy() builtin.FallbackStrategy       { return builtin.FallbackIfAllInputsMissing }

func (r *shaderRenderer) ensureGroup1(gpu *gpucontext.Context) error {
	if r.group1Init {
		return nil
	}
	r.group1Init = true
	if !r.cp.sh.HasParams() {
		return nil
	}

	size := r.cp.sh.ParamsSize()
	if size == 0 {
		size = uint64(len(r.params.ShaderParamsBytes))
	}
	buf, err := gpu.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "shader " + r.cp.sh.Key() + " params",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("pipeline: shader params buffer: %w", err)
	}
	if len(r.params.ShaderParamsBytes) > 0 {
		gpu.Queue().WriteBuffer(buf, 0, r.params.ShaderParamsBytes)
	}

	bg, err := gpu.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "shader " + r.cp.sh.Key() + " params bind group",
		Layout: r.cp.group1Layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Offset: 0, Size: size},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("pipeline: shader params bind group: %w", err)
	}

	r.group1 = newShaderBindGroup(bg, buf)
	return nil
}

// inputTextureViews fills the fixed 16-slot group 0 array: a node's i-th
// declared input pad binds at slot i; any slot beyond the node's declared
// input count, or whose input resolved to an empty texture this tick, is
// filled with the context's 1x1 empty texture (shader/header.go).
func inputTextureViews(gpu *gpucontext.Context, inputs []*gputexture.NodeTexture) []*wgpu.TextureView {
	views := make([]*wgpu.TextureView, shaderInputSlots)
	for i := range views {
		if i < len(inputs) && inputs[i] != nil && !inputs[i].Empty() {
			views[i] = inputs[i].View()
		} else {
			views[i] = gpu.EmptyTextureView()
		}
	}
	return views
}

func (r *shaderRenderer) Render(_ context.Context, gpu *gpucontext.Context, inputs []*gputexture.NodeTexture, target *gputexture.NodeTexture, pts float64) error {
	if err := r.ensureGroup1(gpu); err != nil {
		return err
	}

	group0BindGroup, err := gpu.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "shader " + r.cp.sh.Key() + " input textures",
		Layout: r.cp.group0Layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureViews: inputTextureViews(gpu, inputs)},
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline: shader %q: input textures bind group: %w", r.cp.sh.Key(), err)
	}
	defer group0BindGroup.Release()

	encoder, err := gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("pipeline: shader %q: command encoder: %w", r.cp.sh.Key(), err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    target.View(),
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(r.cp.renderPipeline)
	pass.SetBindGroup(0, group0BindGroup, nil)
	if r.group1 != nil {
		pass.SetBindGroup(1, r.group1.BindGroup(), nil)
	} else {
		pass.SetBindGroup(1, r.cp.emptyGroup1.BindGroup(), nil)
	}
	pass.SetBindGroup(2, r.cp.group2.BindGroup(), nil)

	cparams := shader.CommonShaderParameters{
		TimePts:          float32(pts),
		InputCount:       uint32(len(inputs)),
		OutputResolution: r.params.Resolution,
	}
	pass.SetPushConstants(wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, 0, common.StructToBytes(&cparams))
	pass.SetVertexBuffer(0, r.cp.vertexBuffer, 0, wgpu.WholeSize)
	pass.Draw(6, 1, 0, 0)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("pipeline: shader %q: finish command buffer: %w", r.cp.sh.Key(), err)
	}
	gpu.Queue().Submit(cmd)
	cmd.Release()
	encoder.Release()

	target.MarkProduced()
	return nil
}


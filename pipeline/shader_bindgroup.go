package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// shaderBindGroup owns one resolved shader bind group allocation: the bind
// group bound at draw time and — only for group 1's shader_params
// allocation — the uniform buffer backing it. The shared group-2 sampler
// bind group and a params-less shader's empty group 1 have no buffer,
// since they bind gpucontext.Context's shared sampler or nothing at all.
//
// Bind group *layouts* are never owned here: every shader bind group in
// this package is created against a layout that lives on
// compiledShaderPipeline for the shader's process lifetime (group0Layout,
// group1Layout, group2Layout), shared by every node that selects the
// shader, so layout teardown is compiledShaderPipeline's responsibility,
// not any one node's. This replaces a generic multi-binding provider that
// would otherwise track layouts, samplers, and vertex/index buffers no
// shader bind group here ever uses — each one binds exactly one resource
// at binding 0.
type shaderBindGroup struct {
	group  *wgpu.BindGroup
	buffer *wgpu.Buffer
}

// newShaderBindGroup wraps an already-created bind group. buffer is the
// optional uniform buffer backing it, owned by this allocation.
func newShaderBindGroup(group *wgpu.BindGroup, buffer *wgpu.Buffer) *shaderBindGroup {
	return &shaderBindGroup{group: group, buffer: buffer}
}

// BindGroup returns the bind group for SetBindGroup calls at draw time.
func (g *shaderBindGroup) BindGroup() *wgpu.BindGroup {
	if g == nil {
		return nil
	}
	return g.group
}

// Release tears down the bind group and, if owned, its buffer.
func (g *shaderBindGroup) Release() {
	if g == nil {
		return
	}
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
	if g.buffer != nil {
		g.buffer.Release()
		g.buffer = nil
	}
}

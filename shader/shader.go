// Package shader parses user-supplied WGSL shader source for Shader scene
// nodes, validates it against the fixed binding header and push-constant
// contract, and exposes the parsed layout metadata needed to build a render
// pipeline with three bind groups per the shader contract.
package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-systems/scenecompositor/internal/wgslsim"
)

// ShaderType identifies a WGSL entry point's shader stage.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader stage.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader stage.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key    string
	source string
	module *wgpu.ShaderModuleDescriptor

	vertexEntryPoint   string
	fragmentEntryPoint string

	vertexLayout []wgpu.VertexBufferLayout

	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string

	paramsTypeName string
	paramsSize     uint64
	hasParams      bool
}

// Shader is a parsed, header-validated user WGSL module ready for pipeline
// construction. Every Shader has exactly one vertex entry point (vs_main),
// one fragment entry point (fs_main), a vertex buffer layout matching the
// header's VertexInput struct, and up to three bind groups: group 0 (the
// shared input texture array), group 1 (the shader's own uniform
// parameters, optional), and group 2 (the shared sampler).
type Shader interface {
	// Key returns the registry identifier this shader was registered under.
	Key() string

	// Source returns the full WGSL source, unmodified from what was validated.
	Source() string

	// Module returns the wgpu shader module descriptor built from Source.
	Module() *wgpu.ShaderModuleDescriptor

	// VertexEntryPoint returns "vs_main".
	VertexEntryPoint() string

	// FragmentEntryPoint returns "fs_main".
	FragmentEntryPoint() string

	// VertexLayout returns the vertex buffer layout matching the header's
	// VertexInput struct, derived from the user module's own struct of that name.
	VertexLayout() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns the layout descriptor for a bind group index.
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns all parsed bind group layout descriptors,
	// keyed by group index (0, 1 if present, 2).
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable name bound at (group, binding).
	BindGroupVarName(group, binding int) string

	// HasParams reports whether the shader declares a (group=1, binding=0) uniform.
	HasParams() bool

	// ParamsTypeName returns the WGSL type name bound at (group=1, binding=0),
	// or "" if HasParams is false.
	ParamsTypeName() string

	// ParamsSize returns the byte size of the (group=1, binding=0) uniform type,
	// used to size the GPU buffer backing shader_params.
	ParamsSize() uint64
}

var _ Shader = &shader{}

// NewShader parses and validates source against the fixed binding header
// (Header) and builds the layout metadata needed for pipeline construction.
// Unlike the engine this package is adapted from, this constructor never
// panics: a malformed or non-conformant user shader is an ordinary error,
// reported at shader registration, not a programmer error.
func NewShader(key, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %q: empty source", key)
	}

	if err := ValidateAgainstHeader(source); err != nil {
		return nil, fmt.Errorf("shader %q: %w", key, err)
	}

	s := &shader{
		key:    key,
		source: source,
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}

	s.vertexEntryPoint = parseEntryPoint(source, ShaderTypeVertex)
	s.fragmentEntryPoint = parseEntryPoint(source, ShaderTypeFragment)

	cleaned := wgslsim.StripComments(source)
	structs := wgslsim.ParseStructBlocks(cleaned)
	for _, st := range structs {
		if st.Name != headerVertexInputName {
			continue
		}
		if layout, ok := buildVertexBufferLayout(st); ok {
			s.vertexLayout = []wgpu.VertexBufferLayout{layout}
		}
		break
	}

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	descs, varNames := parseBindGroupLayouts(source, visibility)
	s.bindGroupLayoutDescriptors = descs
	s.bindingVarNames = varNames

	if names, ok := varNames[1]; ok {
		if _, ok := names[0]; ok {
			s.hasParams = true
		}
	}
	if s.hasParams {
		if typeName, ok := paramsTypeNameAt(cleaned, 1, 0); ok {
			s.paramsTypeName = typeName
			sizes := wgslsim.ComputeStructSizes(structs)
			if layout, ok := wgslsim.ResolveTypeLayout(typeName, sizes); ok {
				s.paramsSize = layout.Size
			}
		}
	}

	return s, nil
}

func (s *shader) Key() string                          { return s.key }
func (s *shader) Source() string                       { return s.source }
func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.module }
func (s *shader) VertexEntryPoint() string             { return s.vertexEntryPoint }
func (s *shader) FragmentEntryPoint() string           { return s.fragmentEntryPoint }
func (s *shader) VertexLayout() []wgpu.VertexBufferLayout {
	return s.vertexLayout
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) HasParams() bool        { return s.hasParams }
func (s *shader) ParamsTypeName() string { return s.paramsTypeName }
func (s *shader) ParamsSize() uint64     { return s.paramsSize }

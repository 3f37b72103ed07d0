package shader

import (
	"strings"
	"testing"
)

const validUserSource = `
struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

struct CommonShaderParameters {
    time_pts: f32,
    input_count: u32,
    output_resolution: vec2<u32>,
}

struct ShaderParams {
    strength: f32,
}

var<push_constant> common_params: CommonShaderParameters;

@group(0) @binding(0) var input_textures: binding_array<texture_2d<f32>, 16>;
@group(1) @binding(0) var<uniform> params: ShaderParams;
@group(2) @binding(0) var linear_sampler: sampler;

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = vec4<f32>(input.position, 0.0, 1.0);
    out.uv = input.uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(input_textures[0], linear_sampler, in.uv) * params.strength;
}
`

func TestNewShader_ValidSource(t *testing.T) {
	s, err := NewShader("passthrough", validUserSource)
	if err != nil {
		t.Fatalf("NewShader returned error for conforming source: %v", err)
	}
	if s.VertexEntryPoint() != "vs_main" {
		t.Errorf("VertexEntryPoint() = %q, want vs_main", s.VertexEntryPoint())
	}
	if s.FragmentEntryPoint() != "fs_main" {
		t.Errorf("FragmentEntryPoint() = %q, want fs_main", s.FragmentEntryPoint())
	}
	if len(s.VertexLayout()) != 1 {
		t.Fatalf("VertexLayout() returned %d layouts, want 1", len(s.VertexLayout()))
	}
	if !s.HasParams() {
		t.Error("HasParams() = false, want true for a shader declaring (group=1, binding=0)")
	}
	if s.ParamsTypeName() != "ShaderParams" {
		t.Errorf("ParamsTypeName() = %q, want ShaderParams", s.ParamsTypeName())
	}
	if s.ParamsSize() != 4 {
		t.Errorf("ParamsSize() = %d, want 4 (one f32 field)", s.ParamsSize())
	}
}

func TestNewShader_EmptySource(t *testing.T) {
	if _, err := NewShader("empty", ""); err == nil {
		t.Fatal("NewShader with empty source should error")
	}
}

func TestNewShader_MissingFragmentEntryPoint(t *testing.T) {
	source := strings.Replace(validUserSource, "@fragment\nfn fs_main", "fn fs_main_renamed", 1)
	if _, err := NewShader("no-fragment", source); err == nil {
		t.Fatal("NewShader should reject a module missing fs_main")
	}
}

func TestNewShader_MissingGroup0Binding(t *testing.T) {
	source := strings.Replace(validUserSource,
		"@group(0) @binding(0) var input_textures: binding_array<texture_2d<f32>, 16>;", "", 1)
	if _, err := NewShader("no-group0", source); err == nil {
		t.Fatal("NewShader should reject a module missing the header's group(0) binding")
	}
}

func TestNewShader_WrongPushConstantShape(t *testing.T) {
	source := strings.Replace(validUserSource,
		"struct CommonShaderParameters {\n    time_pts: f32,\n    input_count: u32,\n    output_resolution: vec2<u32>,\n}",
		"struct CommonShaderParameters {\n    time_pts: f32,\n}", 1)
	if _, err := NewShader("wrong-push-constant", source); err == nil {
		t.Fatal("NewShader should reject a push-constant struct that doesn't match the header's shape")
	}
}

func TestNewShader_VertexArgWrongTypeName(t *testing.T) {
	source := strings.Replace(validUserSource, "fn vs_main(input: VertexInput)", "fn vs_main(input: WrongInput)", 1)
	if _, err := NewShader("wrong-vertex-arg", source); err == nil {
		t.Fatal("NewShader should reject vs_main taking a type other than VertexInput")
	}
}

func TestTypesEqual_VectorShortAndLongFormsMatch(t *testing.T) {
	idx := newTypeIndex(nil)
	a, ok := buildType("vec2f", idx, map[string]bool{})
	if !ok {
		t.Fatal("buildType(vec2f) failed")
	}
	b, ok := buildType("vec2<f32>", idx, map[string]bool{})
	if !ok {
		t.Fatal("buildType(vec2<f32>) failed")
	}
	if !typesEqual(a, b) {
		t.Error("vec2f and vec2<f32> should be structurally equivalent")
	}
}

func TestValidateParams_NoBindingInShader(t *testing.T) {
	source := strings.Replace(validUserSource, "@group(1) @binding(0) var<uniform> params: ShaderParams;", "", 1)
	source = strings.Replace(source, "* params.strength", "", 1)
	s, err := NewShader("no-params", source)
	if err != nil {
		t.Fatalf("NewShader failed: %v", err)
	}
	if err := ValidateParams(s, "", false); err != ErrNoBindingInShader {
		t.Errorf("ValidateParams() = %v, want ErrNoBindingInShader", err)
	}
	if err := ValidateParams(s, "", true); err != nil {
		t.Errorf("ValidateParams() with empty params on a shader with no binding should succeed, got %v", err)
	}
}

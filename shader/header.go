package shader

import (
	"sync"

	"github.com/oxy-systems/scenecompositor/internal/wgslsim"
)

// headerVertexInputName is the struct name every user shader's vs_main
// argument must use, matching the fixed header's VertexInput struct.
const headerVertexInputName = "VertexInput"

// headerCommonParamsName is the struct name of the push-constant block every
// user shader must declare.
const headerCommonParamsName = "CommonShaderParameters"

// Header is the fixed WGSL module every user shader is validated against.
// It declares the three-bind-group contract (group 0: shared input texture
// array, group 2: shared sampler), the CommonShaderParameters push-constant
// struct, and the VertexInput struct a conforming vs_main must accept.
// group 1 (the shader's own uniform parameters) is left to the user module;
// the header has no opinion on its type beyond "whatever is declared there
// is what shader_params is validated against" (see ValidateParams).
const Header = `
struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) uv: vec2<f32>,
}

struct CommonShaderParameters {
    time_pts: f32,
    input_count: u32,
    output_resolution: vec2<u32>,
}

var<push_constant> common_params: CommonShaderParameters;

@group(0) @binding(0) var input_textures: binding_array<texture_2d<f32>, 16>;

@group(2) @binding(0) var linear_sampler: sampler;
`

// CommonShaderParameters is the Go-side mirror of the WGSL push-constant
// struct every shader pipeline is built with. Field order and types match
// the WGSL struct above exactly; see common.StructToBytes for how this is
// uploaded.
type CommonShaderParameters struct {
	TimePts          float32
	InputCount       uint32
	OutputResolution [2]uint32
}

type headerGlobal struct {
	group        int
	binding      int
	addressSpace string
	typeName     string
}

type parsedHeader struct {
	globals      []headerGlobal
	pushConstant string // type name, e.g. "CommonShaderParameters"
	structs      []wgslsim.Struct
}

var (
	headerOnce   sync.Once
	headerParsed parsedHeader
)

func getParsedHeader() parsedHeader {
	headerOnce.Do(func() {
		cleaned := wgslsim.StripComments(Header)
		headerParsed.structs = wgslsim.ParseStructBlocks(cleaned)
		headerParsed.globals = parseGlobals(cleaned)
		headerParsed.pushConstant = parsePushConstantType(cleaned)
	})
	return headerParsed
}

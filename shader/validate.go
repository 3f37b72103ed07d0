package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oxy-systems/scenecompositor/internal/wgslsim"
)

var pushConstantRegex = regexp.MustCompile(`var<push_constant>\s+\w+\s*:\s*(\w+)\s*;`)

// parseGlobals extracts every @group(N) @binding(M) declaration from
// comment-stripped WGSL source as headerGlobal values.
func parseGlobals(cleaned string) []headerGlobal {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	globals := make([]headerGlobal, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		globals = append(globals, headerGlobal{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return globals
}

// parsePushConstantType extracts the type name of the module's
// var<push_constant> declaration, or "" if none is present.
func parsePushConstantType(cleaned string) string {
	if m := pushConstantRegex.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	return ""
}

// paramsTypeNameAt returns the type name declared at (group, binding) in
// comment-stripped WGSL source, if any.
func paramsTypeNameAt(cleaned string, group, binding int) (string, bool) {
	for _, g := range parseGlobals(cleaned) {
		if g.group == group && g.binding == binding {
			return g.typeName, true
		}
	}
	return "", false
}

// ValidateAgainstHeader checks source against Header per the shader
// contract: every header global must appear in source with the same
// (group, binding) address space and a structurally equivalent type, the
// push-constant block must match CommonShaderParameters, and vs_main/fs_main
// must exist with vs_main taking exactly one VertexInput argument that is
// structurally equivalent to the header's.
func ValidateAgainstHeader(source string) error {
	hdr := getParsedHeader()
	cleaned := wgslsim.StripComments(source)

	userStructs := wgslsim.ParseStructBlocks(cleaned)
	headerIdx := newTypeIndex(hdr.structs)
	userIdx := newTypeIndex(userStructs)

	userGlobals := parseGlobals(cleaned)
	for _, hg := range hdr.globals {
		match, ok := findGlobal(userGlobals, hg.group, hg.binding)
		if !ok {
			return fmt.Errorf("missing header binding (group=%d, binding=%d)", hg.group, hg.binding)
		}
		if match.addressSpace != hg.addressSpace {
			return fmt.Errorf("binding (group=%d, binding=%d) has address space %q, header requires %q",
				hg.group, hg.binding, match.addressSpace, hg.addressSpace)
		}
		if !typeNamesEquivalent(hg.typeName, headerIdx, match.typeName, userIdx) {
			return fmt.Errorf("binding (group=%d, binding=%d) type %q is not structurally equivalent to header type %q",
				hg.group, hg.binding, match.typeName, hg.typeName)
		}
	}

	if hdr.pushConstant != "" {
		userPush := parsePushConstantType(cleaned)
		if userPush == "" {
			return fmt.Errorf("missing var<push_constant> declaration of type %s", headerCommonParamsName)
		}
		if !typeNamesEquivalent(hdr.pushConstant, headerIdx, userPush, userIdx) {
			return fmt.Errorf("push-constant type %q is not structurally equivalent to header type %q", userPush, hdr.pushConstant)
		}
	}

	if parseEntryPoint(source, ShaderTypeFragment) == "" {
		return fmt.Errorf("missing fs_main fragment entry point")
	}

	vertexArgType := parseVertexArgType(source)
	if vertexArgType == "" {
		return fmt.Errorf("missing vs_main vertex entry point with exactly one argument")
	}
	if vertexArgType != headerVertexInputName {
		return fmt.Errorf("vs_main argument type %q does not match header type %q", vertexArgType, headerVertexInputName)
	}
	if !typeNamesEquivalent(headerVertexInputName, headerIdx, vertexArgType, userIdx) {
		return fmt.Errorf("vs_main argument type %q is not structurally equivalent to header's %s", vertexArgType, headerVertexInputName)
	}

	return nil
}

func findGlobal(globals []headerGlobal, group, binding int) (headerGlobal, bool) {
	for _, g := range globals {
		if g.group == group && g.binding == binding {
			return g, true
		}
	}
	return headerGlobal{}, false
}

// typeNamesEquivalent resolves nameA through idxA and nameB through idxB and
// compares the resulting wgslType trees with typesEqual. Separate indices are
// required because the header and a user module routinely declare a struct
// with the identical name (VertexInput, CommonShaderParameters) — resolving
// both sides through one shared name-keyed index would silently collapse
// them into a single entry and compare it to itself.
func typeNamesEquivalent(nameA string, idxA *typeIndex, nameB string, idxB *typeIndex) bool {
	ta, ok := buildType(nameA, idxA, map[string]bool{})
	if !ok {
		return false
	}
	tb, ok := buildType(nameB, idxB, map[string]bool{})
	if !ok {
		return false
	}
	return typesEqual(ta, tb)
}

// ValidateParams checks that a user-supplied shader_params value's declared
// WGSL type name matches the type bound at (group=1, binding=0) in s by
// shape. Per the shader contract, a non-empty params value with no such
// binding in the shader is always an error (NoBindingInShader), independent
// of shape.
func ValidateParams(s Shader, paramsTypeName string, paramsEmpty bool) error {
	if !s.HasParams() {
		if paramsEmpty {
			return nil
		}
		return ErrNoBindingInShader
	}
	if paramsEmpty {
		return fmt.Errorf("shader %q declares shader_params at (group=1, binding=0) but none were supplied", s.Key())
	}

	cleaned := wgslsim.StripComments(s.Source())
	userStructs := wgslsim.ParseStructBlocks(cleaned)
	idx := newTypeIndex(userStructs)
	if !typeNamesEquivalent(s.ParamsTypeName(), idx, paramsTypeName, idx) {
		return fmt.Errorf("shader_params type %q does not match shader %q's declared type %q",
			paramsTypeName, s.Key(), s.ParamsTypeName())
	}
	return nil
}

// ErrNoBindingInShader is returned when shader_params is supplied but the
// shader declares no (group=1, binding=0) uniform to receive it.
var ErrNoBindingInShader = fmt.Errorf("shader_params supplied but shader has no (group=1, binding=0) binding")

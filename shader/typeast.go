package shader

import (
	"strconv"
	"strings"

	"github.com/oxy-systems/scenecompositor/internal/wgslsim"
)

// wgslType is the typed representation of a WGSL type used for structural
// equivalence checks between the fixed header and a user shader module. It
// extends the teacher's regex-based struct/type parser with just enough
// structure to walk two types in lock-step, rather than introducing a full
// WGSL grammar.
type wgslType interface {
	isWgslType()
}

type scalarType struct{ name string } // f32, i32, u32, f16, bool

type vectorType struct {
	elem string // f32, i32, u32, f16
	dims int    // 2, 3, 4
}

type matrixType struct {
	elem    string
	cols    int
	rows    int
}

type atomicType struct{ elem string }

// arrayType models array<T, N> (size != nil) and array<T> (size == nil, runtime-sized).
type arrayType struct {
	elem wgslType
	size *uint64
}

// bindingArrayType models binding_array<T, N>.
type bindingArrayType struct {
	elem wgslType
	size uint64
}

type sampledTextureType struct {
	dim          string
	multisampled bool
	sampleType   string // f32, i32, u32, depth
}

type storageTextureType struct {
	dim    string
	format string
	access string
}

type samplerType struct{ comparison bool }

type structMember struct {
	name     string
	location int
	typ      wgslType
}

type structTypeNode struct {
	name    string
	members []structMember
	size    uint64
}

func (scalarType) isWgslType()         {}
func (vectorType) isWgslType()         {}
func (matrixType) isWgslType()         {}
func (atomicType) isWgslType()         {}
func (arrayType) isWgslType()          {}
func (bindingArrayType) isWgslType()   {}
func (sampledTextureType) isWgslType() {}
func (storageTextureType) isWgslType() {}
func (samplerType) isWgslType()        {}
func (structTypeNode) isWgslType()     {}

// typeIndex bundles the struct definitions and computed sizes needed to
// resolve a type name into a wgslType, so buildType can recurse into
// struct members and nested arrays.
type typeIndex struct {
	structsByName map[string]wgslsim.Struct
	sizes         map[string]wgslsim.TypeLayout
}

func newTypeIndex(structs []wgslsim.Struct) *typeIndex {
	idx := &typeIndex{
		structsByName: make(map[string]wgslsim.Struct, len(structs)),
		sizes:         wgslsim.ComputeStructSizes(structs),
	}
	for _, s := range structs {
		idx.structsByName[s.Name] = s
	}
	return idx
}

// buildType resolves a WGSL type name string into a wgslType. visiting guards
// against infinite recursion on (invalid) self-referential structs.
func buildType(typeName string, idx *typeIndex, visiting map[string]bool) (wgslType, bool) {
	typeName = strings.TrimSpace(typeName)

	if layout, ok := wgslsim.PrimitiveLayouts[typeName]; ok {
		_ = layout
		switch {
		case isScalarName(typeName):
			return scalarType{typeName}, true
		case strings.HasPrefix(typeName, "vec"):
			return buildVectorOrMatrix(typeName)
		case strings.HasPrefix(typeName, "mat"):
			return buildVectorOrMatrix(typeName)
		case strings.HasPrefix(typeName, "atomic<"):
			_, param := wgslsim.SplitTypeParams(typeName)
			return atomicType{param}, true
		}
	}

	switch {
	case typeName == "sampler":
		return samplerType{false}, true
	case typeName == "sampler_comparison":
		return samplerType{true}, true
	case strings.HasPrefix(typeName, "binding_array<"):
		inner := strings.TrimSuffix(strings.TrimPrefix(typeName, "binding_array<"), ">")
		parts := wgslsim.SplitAtTopLevelCommas(inner)
		elem, ok := buildType(strings.TrimSpace(parts[0]), idx, visiting)
		if !ok {
			return nil, false
		}
		if len(parts) < 2 {
			return nil, false
		}
		n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, false
		}
		return bindingArrayType{elem, n}, true
	case strings.HasPrefix(typeName, "array<"):
		inner := strings.TrimSuffix(strings.TrimPrefix(typeName, "array<"), ">")
		parts := wgslsim.SplitAtTopLevelCommas(inner)
		elem, ok := buildType(strings.TrimSpace(parts[0]), idx, visiting)
		if !ok {
			return nil, false
		}
		if len(parts) < 2 {
			return arrayType{elem, nil}, true
		}
		n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			// composite/non-literal constant array length: rejected per the
			// structural equivalence rule, not representable here.
			return nil, false
		}
		return arrayType{elem, &n}, true
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := wgslsim.SplitTypeParams(typeName)
		parts := strings.SplitN(params, ",", 2)
		format, access := "", ""
		if len(parts) >= 1 {
			format = strings.TrimSpace(parts[0])
		}
		if len(parts) >= 2 {
			access = strings.TrimSpace(parts[1])
		}
		return storageTextureType{base, format, access}, true
	case strings.HasPrefix(typeName, "texture_depth_"):
		return sampledTextureType{typeName, strings.Contains(typeName, "multisampled"), "depth"}, true
	case strings.HasPrefix(typeName, "texture_"):
		base, param := wgslsim.SplitTypeParams(typeName)
		return sampledTextureType{base, strings.Contains(base, "multisampled"), param}, true
	}

	if visiting[typeName] {
		return nil, false
	}
	if s, ok := idx.structsByName[typeName]; ok {
		visiting[typeName] = true
		defer delete(visiting, typeName)

		node := structTypeNode{name: s.Name}
		if layout, ok := idx.sizes[s.Name]; ok {
			node.size = layout.Size
		}

		offset := uint64(0)
		maxAlign := uint64(1)
		for _, f := range s.Fields {
			if f.IsBuiltin {
				continue
			}
			fieldType, ok := buildType(f.TypeName, idx, visiting)
			if !ok {
				return nil, false
			}
			fieldLayout, ok := wgslsim.ResolveTypeLayout(f.TypeName, idx.sizes)
			if !ok {
				return nil, false
			}
			offset = wgslsim.RoundUpAlign(fieldLayout.Align, offset)
			node.members = append(node.members, structMember{
				name:     f.Name,
				location: f.Location,
				typ:      fieldType,
			})
			offset += fieldLayout.Size
			if fieldLayout.Align > maxAlign {
				maxAlign = fieldLayout.Align
			}
		}

		return node, true
	}

	return nil, false
}

func isScalarName(name string) bool {
	switch name {
	case "f32", "i32", "u32", "f16", "bool":
		return true
	default:
		return false
	}
}

func buildVectorOrMatrix(typeName string) (wgslType, bool) {
	base, param := wgslsim.SplitTypeParams(typeName)
	switch {
	case strings.HasPrefix(base, "vec"):
		dims, err := strconv.Atoi(base[3:4])
		if err != nil {
			return nil, false
		}
		elem := param
		if elem == "" {
			// short forms: vec2f, vec3i, vec4u, vec2h
			elem = shortVectorElem(base)
		}
		return vectorType{elem, dims}, true
	case strings.HasPrefix(base, "mat"):
		// matCxR<elem>
		if len(base) < 6 {
			return nil, false
		}
		cols, err1 := strconv.Atoi(base[3:4])
		rows, err2 := strconv.Atoi(base[5:6])
		if err1 != nil || err2 != nil {
			return nil, false
		}
		return matrixType{param, cols, rows}, true
	}
	return nil, false
}

func shortVectorElem(base string) string {
	if len(base) == 0 {
		return "f32"
	}
	switch base[len(base)-1] {
	case 'f':
		return "f32"
	case 'i':
		return "i32"
	case 'u':
		return "u32"
	case 'h':
		return "f16"
	default:
		return "f32"
	}
}

// typesEqual walks a and b simultaneously and reports whether they are
// structurally equivalent per the shader contract's equivalence rule:
// scalars/vectors/matrices/atomics/images/samplers compare by inner
// representation; structs compare by member count, total size, per-member
// (name, location) and recursive type; arrays/binding arrays compare by
// base type and size (Dynamic matches only Dynamic; Constant(a) matches
// Constant(b) by value regardless of declared sign). Member offsets and
// array strides are not compared on their own.
func typesEqual(a, b wgslType) bool {
	switch av := a.(type) {
	case scalarType:
		bv, ok := b.(scalarType)
		return ok && av.name == bv.name
	case vectorType:
		bv, ok := b.(vectorType)
		return ok && av.elem == bv.elem && av.dims == bv.dims
	case matrixType:
		bv, ok := b.(matrixType)
		return ok && av.elem == bv.elem && av.cols == bv.cols && av.rows == bv.rows
	case atomicType:
		bv, ok := b.(atomicType)
		return ok && av.elem == bv.elem
	case samplerType:
		bv, ok := b.(samplerType)
		return ok && av.comparison == bv.comparison
	case sampledTextureType:
		bv, ok := b.(sampledTextureType)
		return ok && av.dim == bv.dim && av.multisampled == bv.multisampled && av.sampleType == bv.sampleType
	case storageTextureType:
		bv, ok := b.(storageTextureType)
		return ok && av.dim == bv.dim && av.format == bv.format && av.access == bv.access
	case arrayType:
		bv, ok := b.(arrayType)
		if !ok {
			return false
		}
		if (av.size == nil) != (bv.size == nil) {
			return false
		}
		if av.size != nil && *av.size != *bv.size {
			return false
		}
		return typesEqual(av.elem, bv.elem)
	case bindingArrayType:
		bv, ok := b.(bindingArrayType)
		return ok && av.size == bv.size && typesEqual(av.elem, bv.elem)
	case structTypeNode:
		bv, ok := b.(structTypeNode)
		if !ok {
			return false
		}
		if len(av.members) != len(bv.members) || av.size != bv.size {
			return false
		}
		for i := range av.members {
			ma, mb := av.members[i], bv.members[i]
			if ma.name != mb.name || ma.location != mb.location {
				return false
			}
			if !typesEqual(ma.typ, mb.typ) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Package wgslsim holds the struct-layout and type-resolution primitives shared
// by the shader package's pipeline builder and its fixed-header equivalence
// checker. It understands only the subset of WGSL needed to compute buffer
// layouts and compare type shapes: struct bodies, field attributes, and the
// primitive/vector/matrix/array type grammar. It is not a WGSL parser.
package wgslsim

import (
	"regexp"
	"strconv"
	"strings"
)

// TypeLayout holds the byte size and alignment for a WGSL type per the WGSL
// specification. Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type TypeLayout struct {
	Size  uint64
	Align uint64
}

// Field represents a single field extracted from a WGSL struct body.
type Field struct {
	Name      string
	TypeName  string
	Location  int
	IsBuiltin bool
}

// Struct represents a WGSL struct block extracted from source.
type Struct struct {
	Name   string
	Fields []Field
}

// PrimitiveLayouts maps WGSL primitive, vector, matrix, and atomic type names
// to their byte size and alignment.
var PrimitiveLayouts = map[string]TypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"vec2<f16>": {4, 4},
	"vec2h":     {4, 4},
	"vec4<f16>": {8, 8},
	"vec4h":     {8, 8},

	"mat2x2<f32>": {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x4<f32>": {64, 16},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex       = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)
)

// RoundUpAlign rounds value up to the next multiple of alignment. Alignment
// must be a power of two.
func RoundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// ResolveTypeLayout resolves a WGSL type name to its size and alignment using
// primitives and previously-computed struct layouts. Handles fixed-size and
// runtime-sized arrays. Returns false for unknown types.
func ResolveTypeLayout(typeName string, knownTypes map[string]TypeLayout) (TypeLayout, bool) {
	if layout, ok := PrimitiveLayouts[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		inner := typeName[6 : len(typeName)-1]
		parts := strings.SplitN(inner, ",", 2)
		elemType := strings.TrimSpace(parts[0])

		elemLayout, ok := ResolveTypeLayout(elemType, knownTypes)
		if !ok {
			return TypeLayout{}, false
		}

		if len(parts) == 2 {
			countStr := strings.TrimSpace(parts[1])
			count, err := strconv.ParseUint(countStr, 10, 64)
			if err != nil {
				return TypeLayout{}, false
			}
			stride := RoundUpAlign(elemLayout.Align, elemLayout.Size)
			return TypeLayout{count * stride, elemLayout.Align}, true
		}

		stride := RoundUpAlign(elemLayout.Align, elemLayout.Size)
		return TypeLayout{stride, elemLayout.Align}, true
	}

	return TypeLayout{}, false
}

// ComputeStructLayout computes the byte size and alignment of a single WGSL
// struct. If the struct's last field is a runtime-sized array, the returned
// size is the offset of that array (the fixed-size prefix). Builtin fields
// are skipped, as they are not part of the buffer layout.
func ComputeStructLayout(s Struct, knownTypes map[string]TypeLayout) (TypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)

	for _, field := range s.Fields {
		if field.IsBuiltin {
			continue
		}

		fieldLayout, ok := ResolveTypeLayout(field.TypeName, knownTypes)
		if !ok {
			if strings.HasPrefix(field.TypeName, "array<") && !strings.Contains(field.TypeName, ",") {
				offset = RoundUpAlign(maxAlign, offset)
				if offset == 0 {
					inner := field.TypeName[6 : len(field.TypeName)-1]
					elemType := strings.TrimSpace(inner)
					if elemLayout, elemOk := ResolveTypeLayout(elemType, knownTypes); elemOk {
						return TypeLayout{RoundUpAlign(elemLayout.Align, elemLayout.Size), elemLayout.Align}, true
					}
				}
				return TypeLayout{offset, maxAlign}, true
			}
			return TypeLayout{}, false
		}

		offset = RoundUpAlign(fieldLayout.Align, offset)
		offset += fieldLayout.Size

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}
	}

	size := RoundUpAlign(maxAlign, offset)
	return TypeLayout{size, maxAlign}, true
}

// ComputeStructSizes computes the byte size and alignment of every parsed
// struct, resolving inter-struct dependencies iteratively.
func ComputeStructSizes(structs []Struct) map[string]TypeLayout {
	resolved := make(map[string]TypeLayout, len(structs))
	remaining := make([]Struct, len(structs))
	copy(remaining, structs)

	for {
		progress := false
		next := remaining[:0]

		for _, s := range remaining {
			if layout, ok := ComputeStructLayout(s, resolved); ok {
				resolved[s.Name] = layout
				progress = true
			} else {
				next = append(next, s)
			}
		}

		remaining = next
		if !progress || len(remaining) == 0 {
			break
		}
	}

	return resolved
}

// SplitTypeParams splits a parameterized WGSL type into its base name and
// parameter string. For "texture_2d<f32>" returns ("texture_2d", "f32"). For
// a type with no parameters, returns (typeName, "").
func SplitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	base = before
	params = strings.TrimSpace(strings.TrimSuffix(after, ">"))
	return base, params
}

// StripComments removes both line and block comments from WGSL source.
func StripComments(source string) string {
	return StripLineComments(StripBlockComments(source))
}

// StripLineComments removes single-line // comments from WGSL source.
func StripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// StripBlockComments removes /* ... */ comments from WGSL source, handling
// nesting per the WGSL specification.
func StripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// SplitAtTopLevelCommas splits s at commas that are not nested inside angle
// brackets, so that parameterized types like array<T, N> parse as one field.
func SplitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ParseStructBlocks finds all struct { ... } blocks in comment-stripped WGSL
// source and parses their fields, including @location and @builtin attributes.
func ParseStructBlocks(source string) []Struct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]Struct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, Struct{
			Name:   match[1],
			Fields: parseStructFields(match[2]),
		})
	}

	return structs
}

func parseStructFields(body string) []Field {
	lines := SplitAtTopLevelCommas(body)
	fields := make([]Field, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field Field

		if builtinRegex.MatchString(line) {
			field.IsBuiltin = true
		}

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.Location = loc
			}
		} else {
			field.Location = -1
		}

		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			field.Name = fm[1]
			field.TypeName = strings.TrimSpace(fm[2])
		} else {
			continue
		}

		fields = append(fields, field)
	}

	return fields
}

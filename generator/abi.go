package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bsekura/vulkan-bindings/parser"
)

// primitiveGoTypes maps registry C primitives to their Go ABI equivalents
// on the 64-bit platform ABI the bindings target.
var primitiveGoTypes = map[string]string{
	"char":     "int8",
	"float":    "float32",
	"double":   "float64",
	"int8_t":   "int8",
	"uint8_t":  "uint8",
	"int16_t":  "int16",
	"uint16_t": "uint16",
	"int32_t":  "int32",
	"uint32_t": "uint32",
	"int64_t":  "int64",
	"uint64_t": "uint64",
	"size_t":   "uintptr",
	"int":      "int32",
}

var primitiveSizes = map[string]int{
	"char": 1, "int8_t": 1, "uint8_t": 1,
	"int16_t": 2, "uint16_t": 2,
	"float": 4, "int32_t": 4, "uint32_t": 4, "int": 4,
	"double": 8, "int64_t": 8, "uint64_t": 8, "size_t": 8,
}

const pointerSize = 8

// goType renders the Go type for a registry type reference with the given
// pointer level and optional fixed array length.
func (g *Generator) goType(name string, pointerLevel int, arrayLen string) string {
	base := g.goBaseType(name, &pointerLevel)
	t := strings.Repeat("*", pointerLevel) + base
	if arrayLen != "" {
		t = "[" + g.arrayLenExpr(arrayLen) + "]" + t
	}
	return t
}

// goBaseType resolves the unqualified Go type. void collapses into
// unsafe.Pointer, consuming one pointer level.
func (g *Generator) goBaseType(name string, pointerLevel *int) string {
	if name == "void" {
		if *pointerLevel > 0 {
			*pointerLevel--
			return "unsafe.Pointer"
		}
		return ""
	}
	if t, ok := primitiveGoTypes[name]; ok {
		return t
	}
	return publicTypeName(name)
}

// arrayLenExpr renders a fixed array length: a numeric literal stays as
// is, a registry constant name becomes the emitted constant.
func (g *Generator) arrayLenExpr(arrayLen string) string {
	if _, err := strconv.Atoi(arrayLen); err == nil {
		return arrayLen
	}
	return publicConstName(arrayLen)
}

// arrayLenValue resolves a fixed array length to its numeric value,
// following one level of constant indirection.
func (g *Generator) arrayLenValue(arrayLen string) (int, error) {
	if n, err := strconv.Atoi(arrayLen); err == nil {
		return n, nil
	}
	for _, c := range g.fr.Constant {
		if c.Name == arrayLen {
			if n, err := strconv.Atoi(c.Value); err == nil {
				return n, nil
			}
			return g.arrayLenValue(c.Value)
		}
	}
	return 0, fmt.Errorf("array length %s does not resolve to an integer", arrayLen)
}

// typeLayout computes (size, alignment) for a registry type under the
// 64-bit ABI. It is used to size emitted union declarations; types are
// walked in dependency order so members are always computable.
func (g *Generator) typeLayout(name string) (size, align int, err error) {
	if s, ok := primitiveSizes[name]; ok {
		return s, s, nil
	}
	if cached, ok := g.layouts[name]; ok {
		return cached.size, cached.align, nil
	}

	td := g.fr.Registry.Type(name)
	if td == nil {
		return 0, 0, fmt.Errorf("layout of undeclared type %s", name)
	}

	switch {
	case td.Alias != "":
		size, align, err = g.typeLayout(td.Alias)
	case td.Kind == parser.KindHandle, td.Kind == parser.KindFuncPointer, td.Kind == parser.KindOpaque:
		size, align = pointerSize, pointerSize
	case td.Kind == parser.KindEnum, td.Kind == parser.KindBitmask:
		w := td.Width
		if w == 0 {
			w = 32
		}
		size, align = w/8, w/8
	case td.Kind == parser.KindBase:
		if td.Underlying == "" {
			size, align = pointerSize, pointerSize
		} else {
			size, align, err = g.typeLayout(td.Underlying)
		}
	case td.Kind == parser.KindStruct:
		size, align, err = g.structLayout(td)
	case td.Kind == parser.KindUnion:
		size, align, err = g.unionLayout(td)
	default:
		err = fmt.Errorf("layout of %s kind %s", name, td.Kind)
	}
	if err == nil {
		g.layouts[name] = layout{size, align}
	}
	return size, align, err
}

func (g *Generator) memberLayout(m parser.Member) (size, align int, err error) {
	if m.PointerLevel > 0 {
		size, align = pointerSize, pointerSize
	} else if size, align, err = g.typeLayout(m.Type); err != nil {
		return 0, 0, err
	}
	if m.ArrayLen != "" {
		n, err := g.arrayLenValue(m.ArrayLen)
		if err != nil {
			return 0, 0, err
		}
		size *= n
	}
	return size, align, nil
}

func (g *Generator) structLayout(td *parser.TypeDef) (int, int, error) {
	offset, maxAlign := 0, 1
	for _, m := range td.Members {
		s, a, err := g.memberLayout(m)
		if err != nil {
			return 0, 0, fmt.Errorf("%s.%s: %w", td.Name, m.Name, err)
		}
		if a > maxAlign {
			maxAlign = a
		}
		offset = alignUp(offset, a) + s
	}
	return alignUp(offset, maxAlign), maxAlign, nil
}

func (g *Generator) unionLayout(td *parser.TypeDef) (int, int, error) {
	maxSize, maxAlign := 0, 1
	for _, m := range td.Members {
		s, a, err := g.memberLayout(m)
		if err != nil {
			return 0, 0, fmt.Errorf("%s.%s: %w", td.Name, m.Name, err)
		}
		if s > maxSize {
			maxSize = s
		}
		if a > maxAlign {
			maxAlign = a
		}
	}
	return alignUp(maxSize, maxAlign), maxAlign, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

type layout struct {
	size, align int
}

package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bsekura/vulkan-bindings/parser"
)

// emitConstants writes the API constants in declaration order, then one
// const block per kept enum/bitmask type in emission order.
func (g *Generator) emitConstants(buf *bytes.Buffer) error {
	if v := g.fr.Registry.HeaderVersion; v != "" {
		fmt.Fprintf(buf, "// HEADER_VERSION is the registry patch version the bindings were generated from.\n")
		fmt.Fprintf(buf, "const HEADER_VERSION = %s\n\n", v)
	}

	if len(g.fr.Constant) > 0 {
		fmt.Fprintf(buf, "const (\n")
		for _, c := range g.fr.Constant {
			fmt.Fprintf(buf, "\t%s = %s\n", publicConstName(c.Name), constLiteral(c.Value))
		}
		fmt.Fprintf(buf, ")\n\n")
	}

	for _, td := range g.fr.Types {
		if td.Alias != "" || (td.Kind != parser.KindEnum && td.Kind != parser.KindBitmask) {
			continue
		}
		if td.Kind == parser.KindBitmask && td.Underlying != "" && g.fr.HasType(td.Underlying) {
			// The FlagBits enum emits this block itself.
			continue
		}
		values := g.fr.Enums[enumBlockName(td)]
		if len(values) == 0 {
			continue
		}
		typeName := publicTypeName(enumBlockName(td))
		if td.Kind == parser.KindBitmask {
			// The FlagBits enum was filtered out; type values as the mask.
			typeName = publicTypeName(td.Name)
		}
		fmt.Fprintf(buf, "const (\n")
		for _, v := range values {
			if v.Alias != "" {
				fmt.Fprintf(buf, "\t%s = %s\n", publicConstName(v.Name), publicConstName(v.Alias))
				continue
			}
			fmt.Fprintf(buf, "\t%s %s = %s\n", publicConstName(v.Name), typeName, constLiteral(v.Value))
		}
		fmt.Fprintf(buf, ")\n\n")
	}
	return nil
}

// enumBlockName is the name the registry files enum values under: the
// type itself for enums, the requires= FlagBits block for bitmasks.
func enumBlockName(td *parser.TypeDef) string {
	if td.Kind == parser.KindBitmask && td.Underlying != "" {
		return td.Underlying
	}
	return td.Name
}

// constLiteral translates the registry's C literal spellings to Go.
func constLiteral(v string) string {
	if strings.HasPrefix(v, "VK_") {
		// Alias of another constant.
		return publicConstName(v)
	}
	switch v {
	case "(~0U)":
		return "^uint32(0)"
	case "(~1U)":
		return "^uint32(1)"
	case "(~2U)":
		return "^uint32(2)"
	case "(~0ULL)", "(~0UL)":
		return "^uint64(0)"
	}
	v = strings.TrimSuffix(v, "F")
	v = strings.TrimSuffix(v, "ULL")
	v = strings.TrimSuffix(v, "U")
	return v
}

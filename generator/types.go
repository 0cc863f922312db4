package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bsekura/vulkan-bindings/parser"
)

// emitTypes writes every kept TypeDef in resolver order, so a declaration
// never precedes the declarations it depends on.
func (g *Generator) emitTypes(buf *bytes.Buffer) error {
	for _, td := range g.fr.Types {
		if td.Alias != "" {
			fmt.Fprintf(buf, "type %s = %s\n\n", publicTypeName(td.Name), publicTypeName(td.Alias))
			continue
		}
		switch td.Kind {
		case parser.KindBase:
			g.emitBase(buf, td)
		case parser.KindHandle:
			g.emitHandle(buf, td)
		case parser.KindEnum, parser.KindBitmask:
			g.emitEnum(buf, td)
		case parser.KindStruct:
			if err := g.emitStruct(buf, td); err != nil {
				return err
			}
		case parser.KindUnion:
			if err := g.emitUnion(buf, td); err != nil {
				return err
			}
		case parser.KindFuncPointer:
			g.emitFuncPointer(buf, td)
		case parser.KindOpaque:
			fmt.Fprintf(buf, "// %s is an opaque platform type.\ntype %s uintptr\n\n",
				publicTypeName(td.Name), publicTypeName(td.Name))
		}
	}
	return nil
}

func (g *Generator) emitBase(buf *bytes.Buffer, td *parser.TypeDef) {
	name := publicTypeName(td.Name)
	if td.Underlying == "" {
		fmt.Fprintf(buf, "type %s uintptr\n\n", name)
		return
	}
	underlying := td.Underlying
	if t, ok := primitiveGoTypes[underlying]; ok {
		underlying = t
	} else {
		underlying = publicTypeName(underlying)
	}
	fmt.Fprintf(buf, "type %s = %s\n\n", name, underlying)
}

func (g *Generator) emitHandle(buf *bytes.Buffer, td *parser.TypeDef) {
	name := publicTypeName(td.Name)
	if td.Dispatchable {
		fmt.Fprintf(buf, "// %s is a dispatchable handle.\ntype %s uintptr\n\n", name, name)
	} else {
		fmt.Fprintf(buf, "// %s is a non-dispatchable handle.\ntype %s uint64\n\n", name, name)
	}
}

func (g *Generator) emitEnum(buf *bytes.Buffer, td *parser.TypeDef) {
	underlying := "int32"
	if td.Kind == parser.KindBitmask {
		underlying = "uint32"
	}
	if td.Width == 64 {
		if td.Kind == parser.KindBitmask {
			underlying = "uint64"
		} else {
			underlying = "int64"
		}
	}
	fmt.Fprintf(buf, "type %s %s\n\n", publicTypeName(td.Name), underlying)
}

func (g *Generator) emitStruct(buf *bytes.Buffer, td *parser.TypeDef) error {
	fmt.Fprintf(buf, "type %s struct {\n", publicTypeName(td.Name))
	for _, m := range td.Members {
		t := g.goType(m.Type, m.PointerLevel, m.ArrayLen)
		fmt.Fprintf(buf, "\t%s %s\n", exportedField(m.Name), t)
	}
	fmt.Fprintf(buf, "}\n\n")
	return nil
}

// emitUnion renders a C union as a fixed-size byte array matching the
// union's 64-bit ABI layout, with the member views recorded in the doc
// comment. Callers reinterpret through unsafe the way C code would.
func (g *Generator) emitUnion(buf *bytes.Buffer, td *parser.TypeDef) error {
	size, _, err := g.typeLayout(td.Name)
	if err != nil {
		return err
	}
	name := publicTypeName(td.Name)
	var views []string
	for _, m := range td.Members {
		views = append(views, fmt.Sprintf("%s %s", m.Name, g.goType(m.Type, m.PointerLevel, m.ArrayLen)))
	}
	fmt.Fprintf(buf, "// %s is a C union: %s.\ntype %s [%d]byte\n\n",
		name, strings.Join(views, ", "), name, size)
	return nil
}

func (g *Generator) emitFuncPointer(buf *bytes.Buffer, td *parser.TypeDef) {
	var params []string
	for _, m := range td.Members {
		params = append(params, fmt.Sprintf("%s %s", m.Name, g.goType(m.Type, m.PointerLevel, "")))
	}
	ret := g.fnReturnType(td.Underlying)
	if ret != "" {
		ret = " " + ret
	}
	fmt.Fprintf(buf, "type %s func(%s)%s\n\n", publicTypeName(td.Name), strings.Join(params, ", "), ret)
}

// fnReturnType maps a funcpointer's raw C return spelling to Go.
func (g *Generator) fnReturnType(c string) string {
	switch c {
	case "", "void":
		return ""
	case "void*":
		return "unsafe.Pointer"
	}
	level := strings.Count(c, "*")
	base := strings.TrimRight(c, "*")
	if t, ok := primitiveGoTypes[base]; ok {
		base = t
	} else {
		base = publicTypeName(base)
	}
	return strings.Repeat("*", level) + base
}

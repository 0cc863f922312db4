package generator

import (
	"bytes"
	"fmt"
	"strings"
)

// emitCommands writes one function-pointer type per kept command, with
// parameter order and types preserved exactly. Aliased commands share the
// alias target's type.
func (g *Generator) emitCommands(buf *bytes.Buffer) error {
	for _, cmd := range g.fr.Commands {
		if cmd.Alias != "" {
			fmt.Fprintf(buf, "type %s = %s\n\n", fnTypeName(cmd.Name), fnTypeName(cmd.Alias))
			continue
		}

		var params []string
		for _, p := range cmd.Params {
			t := g.goType(p.Type, p.PointerLevel, "")
			if p.ArrayLen != "" {
				// C array parameters decay to a pointer at the call ABI.
				t = "*[" + g.arrayLenExpr(p.ArrayLen) + "]" + t
			}
			params = append(params, fmt.Sprintf("%s %s", p.Name, t))
		}

		ret := ""
		if cmd.ReturnType != "void" {
			ret = " " + g.goType(cmd.ReturnType, 0, "")
		}

		fmt.Fprintf(buf, "// %s mirrors PFN_%s.\n", fnTypeName(cmd.Name), cmd.Name)
		fmt.Fprintf(buf, "type %s func(%s)%s\n\n", fnTypeName(cmd.Name), strings.Join(params, ", "), ret)
	}
	return nil
}

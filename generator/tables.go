package generator

import (
	"bytes"
	"fmt"

	"github.com/bsekura/vulkan-bindings/parser"
)

// dispatch classifies a command by its first parameter, deciding which
// proc-addr root resolves it at runtime.
type dispatch int

const (
	dispatchGlobal dispatch = iota
	dispatchInstance
	dispatchDevice
)

func classify(cmd *parser.Command) dispatch {
	if len(cmd.Params) == 0 {
		return dispatchGlobal
	}
	switch cmd.Params[0].Type {
	case "VkInstance", "VkPhysicalDevice":
		return dispatchInstance
	case "VkDevice", "VkQueue", "VkCommandBuffer":
		// vkGetDeviceProcAddr itself is resolved from the instance.
		if cmd.Name == "vkGetDeviceProcAddr" {
			return dispatchInstance
		}
		return dispatchDevice
	default:
		return dispatchGlobal
	}
}

// emitTables writes one command-table struct and one loader routine per
// kept feature group. A table holds exactly the group's kept commands, in
// the group's declaration order; a command in several groups appears in
// each of their tables.
func (g *Generator) emitTables(buf *bytes.Buffer) error {
	kept := make(map[string]bool, len(g.fr.Commands))
	for _, cmd := range g.fr.Commands {
		kept[cmd.Name] = true
	}

	for _, fg := range g.fr.Features {
		entries := loadEntriesFor(fg, g.fr.Registry, func(name string) bool { return kept[name] })
		if len(entries) == 0 {
			continue
		}

		var nGlobal, nInstance, nDevice int
		for _, name := range fg.Commands {
			if !kept[name] {
				continue
			}
			cmd := g.fr.Registry.Command(name)
			if cmd.Alias != "" {
				cmd = g.fr.Registry.Command(cmd.Alias)
			}
			switch classify(cmd) {
			case dispatchGlobal:
				nGlobal++
			case dispatchInstance:
				nInstance++
			case dispatchDevice:
				nDevice++
			}
		}

		table := tableTypeName(fg.Name)
		fmt.Fprintf(buf, "// %s holds the commands of %s\n", table, fg.Name)
		fmt.Fprintf(buf, "// (%d global, %d instance, %d device).\n", nGlobal, nInstance, nDevice)
		fmt.Fprintf(buf, "type %s struct {\n", table)
		for _, name := range fg.Commands {
			if !kept[name] {
				continue
			}
			fmt.Fprintf(buf, "\t%s %s\n", publicCommandName(name), fnTypeName(name))
		}
		fmt.Fprintf(buf, "}\n\n")

		loads, err := expandLoads(entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, "// Load resolves every command in the table through addr, called\n")
		fmt.Fprintf(buf, "// once per entry point with parent. Entry points the runtime does\n")
		fmt.Fprintf(buf, "// not export stay nil; callers check before use.\n")
		fmt.Fprintf(buf, "func (t *%s) Load(parent uintptr, addr GetProcAddrFunc) {\n", table)
		fmt.Fprint(buf, loads)
		fmt.Fprintf(buf, "}\n\n")
	}
	return nil
}

package generator

import (
	"strings"
	"text/template"

	"github.com/bsekura/vulkan-bindings/parser"
)

// loadEntry is one (table field, entry-point name) pair expanded into a
// loader assignment. Symbol is always taken verbatim from a validated
// Command entity, never from a re-typed literal: the lookup string must
// match the registry's canonical name exactly.
type loadEntry struct {
	Field  string
	Symbol string
}

var loadTmpl = template.Must(template.New("load").Parse(
	`{{range .}}	register(&t.{{.Field}}, addr(parent, "{{.Symbol}}"))
{{end}}`))

// expandLoads renders the repetitive per-command assignment block of a
// loader routine from its declarative entry list.
func expandLoads(entries []loadEntry) (string, error) {
	var sb strings.Builder
	if err := loadTmpl.Execute(&sb, entries); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// loadEntriesFor builds the entry list of one feature group's table. The
// lookup symbol resolves aliases to nothing: an aliased command is loaded
// under its own name, which is what the runtime exports.
func loadEntriesFor(fg *parser.FeatureGroup, reg *parser.Registry, kept func(string) bool) []loadEntry {
	var entries []loadEntry
	for _, name := range fg.Commands {
		if !kept(name) {
			continue
		}
		cmd := reg.Command(name)
		entries = append(entries, loadEntry{
			Field:  publicCommandName(cmd.Name),
			Symbol: cmd.Name,
		})
	}
	return entries
}

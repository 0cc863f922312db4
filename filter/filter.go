// Package filter removes platform-gated registry entities according to a
// configuration of supported platform tags, keeping the dependency graph
// consistent.
package filter

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bsekura/vulkan-bindings/parser"
	"github.com/bsekura/vulkan-bindings/resolver"
)

// DanglingReferenceError reports a filter outcome that would remove a type
// still referenced by a kept entity. Emitting such a reference would
// produce uncompilable bindings, so this is fatal.
type DanglingReferenceError struct {
	Name     string
	Referrer string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: %s still referenced by %s after filtering", e.Name, e.Referrer)
}

// Result is the filtered view of a resolved registry. Types keeps the
// resolver's topological order; commands, constants and features keep
// declaration order.
type Result struct {
	Registry *parser.Registry
	Types    []*parser.TypeDef
	Commands []*parser.Command
	Constant []*parser.Constant
	Enums    map[string][]parser.EnumValue
	Features []*parser.FeatureGroup
}

// HasType reports whether a type survived filtering.
func (r *Result) HasType(name string) bool {
	for _, td := range r.Types {
		if td.Name == name {
			return true
		}
	}
	return false
}

// Apply removes every feature group, command, type and constant gated by a
// platform outside cfg.Supported, then verifies that nothing a kept entity
// references was removed. A command reachable through any retained feature
// group is kept even if another of its groups is excluded.
func Apply(reg *parser.Registry, res *resolver.Resolution, cfg Config) (*Result, error) {
	supported := make(map[string]bool, len(cfg.Supported))
	for _, tag := range cfg.Supported {
		supported[tag] = true
	}
	platformOK := func(tag string) bool { return tag == "" || supported[tag] }

	keptFeatures := make(map[string]bool)
	var features []*parser.FeatureGroup
	for _, fg := range reg.Features {
		if !platformOK(fg.Platform) {
			log.WithField("feature", fg.Name).WithField("platform", fg.Platform).
				Debug("excluded by platform")
			continue
		}
		keptFeatures[fg.Name] = true
		features = append(features, fg)
	}

	// Union semantics: a command survives if any of its groups survives.
	// Commands outside every feature group have no reachable surface and
	// are dropped with their exclusive types.
	keptCommands := make(map[string]bool)
	var commands []*parser.Command
	for _, cmd := range reg.Commands {
		target := cmd
		if cmd.Alias != "" {
			target = reg.Command(cmd.Alias)
		}
		for _, f := range target.Features {
			if keptFeatures[f] {
				keptCommands[cmd.Name] = true
				commands = append(commands, cmd)
				break
			}
		}
	}

	keptTypes := make(map[string]bool)
	var types []*parser.TypeDef
	for _, td := range res.Order {
		if !platformOK(td.Platform) {
			continue
		}
		if excludedByFeatures(td.Name, reg, keptFeatures) {
			continue
		}
		keptTypes[td.Name] = true
		types = append(types, td)
	}

	out := &Result{
		Registry: reg,
		Types:    types,
		Commands: commands,
		Features: features,
		Enums:    make(map[string][]parser.EnumValue),
	}

	// Constants and enum values introduced by an excluded feature group go
	// with it; core entries (empty Feature) always stay.
	featureOK := func(name string) bool { return name == "" || keptFeatures[name] }
	for _, c := range reg.Constants {
		if featureOK(c.Feature) {
			out.Constant = append(out.Constant, c)
		}
	}
	for name, values := range reg.Enums {
		for _, v := range values {
			if featureOK(v.Feature) {
				out.Enums[name] = append(out.Enums[name], v)
			}
		}
	}

	if err := checkReferences(reg, out, keptTypes); err != nil {
		return nil, err
	}

	if cfg.Prune {
		pruneUnreferenced(out, res.Graph)
	}

	log.WithFields(log.Fields{
		"types":    len(out.Types),
		"commands": len(out.Commands),
		"features": len(out.Features),
	}).Debug("registry filtered")

	return out, nil
}

// excludedByFeatures reports whether a type is reachable only through excluded
// feature groups. A type named by no group at all is core surface and is
// kept; a type named by at least one kept group is kept (union semantics).
func excludedByFeatures(name string, reg *parser.Registry, keptFeatures map[string]bool) bool {
	gated := false
	for _, fg := range reg.Features {
		for _, t := range fg.Types {
			if t != name {
				continue
			}
			if keptFeatures[fg.Name] {
				return false
			}
			gated = true
		}
	}
	return gated
}

// checkReferences verifies referential completeness: every kept command
// and type may only reference kept types.
func checkReferences(reg *parser.Registry, out *Result, keptTypes map[string]bool) error {
	typeOK := func(name string) bool {
		return parser.IsPrimitive(name) || keptTypes[name]
	}

	for _, cmd := range out.Commands {
		if cmd.Alias != "" {
			continue
		}
		if !typeOK(cmd.ReturnType) {
			return &DanglingReferenceError{Name: cmd.ReturnType, Referrer: cmd.Name}
		}
		for _, p := range cmd.Params {
			if !typeOK(p.Type) {
				return &DanglingReferenceError{Name: p.Type, Referrer: cmd.Name}
			}
		}
	}

	for _, td := range out.Types {
		if td.Alias != "" && !typeOK(td.Alias) {
			return &DanglingReferenceError{Name: td.Alias, Referrer: td.Name}
		}
		for _, m := range td.Members {
			if !typeOK(m.Type) {
				return &DanglingReferenceError{Name: m.Type, Referrer: td.Name}
			}
		}
		if td.Kind == parser.KindFuncPointer && td.Underlying != "" {
			if ret := parser.ResultType(td.Underlying); !typeOK(ret) {
				return &DanglingReferenceError{Name: ret, Referrer: td.Name}
			}
		}
	}
	return nil
}

// pruneUnreferenced drops types unreachable from any kept command,
// walking the dependency graph transitively. Referenced types are never
// dropped, so the referential invariant is preserved by construction.
func pruneUnreferenced(out *Result, g *resolver.Graph) {
	reachable := make(map[string]bool)

	var mark func(name string)
	mark = func(name string) {
		if parser.IsPrimitive(name) || reachable[name] {
			return
		}
		reachable[name] = true
		td := out.Registry.Type(name)
		if td == nil {
			return
		}
		if td.Alias != "" {
			mark(td.Alias)
		}
		if td.Underlying != "" {
			// Funcpointer returns carry their C pointer suffix.
			mark(parser.ResultType(td.Underlying))
		}
		for _, m := range td.Members {
			mark(m.Type)
		}
		for _, d := range g.Deps(name) {
			mark(d)
		}
	}

	for _, cmd := range out.Commands {
		if cmd.Alias != "" {
			continue
		}
		mark(cmd.ReturnType)
		for _, p := range cmd.Params {
			mark(p.Type)
		}
	}

	kept := out.Types[:0]
	for _, td := range out.Types {
		if reachable[td.Name] {
			kept = append(kept, td)
		}
	}
	out.Types = kept
}

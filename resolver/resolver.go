// Package resolver orders registry types by dependency and resolves which
// feature groups each command belongs to.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bsekura/vulkan-bindings/parser"
)

// CycleError reports a true cycle among type declarations. The registry
// should never contain one; this is a defensive abort, not recoverable.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic type dependency: %s", strings.Join(e.Members, " -> "))
}

// Graph is the directed dependency graph over TypeDefs. Edges point from a
// dependent type to the types it needs declared first. Built once here,
// read-only for the filter and generator.
type Graph struct {
	deps      map[string][]string // type -> dependencies, declaration order
	referrers map[string][]string // type -> types that depend on it
}

// Deps returns the declaration-order dependencies of a type.
func (g *Graph) Deps(name string) []string { return g.deps[name] }

// Referrers returns the types that depend on name.
func (g *Graph) Referrers(name string) []string { return g.referrers[name] }

// Resolution is the resolver output: a total order over TypeDefs in which
// every type appears after everything it depends on, plus the graph it was
// derived from. Command feature membership is written back onto the
// registry's Command entities.
type Resolution struct {
	Order []*parser.TypeDef
	Graph *Graph
}

// Resolve computes the type ordering and command feature membership.
// The ordering is deterministic: ties are broken by original declaration
// order, so identical input yields an identical order.
func Resolve(reg *parser.Registry) (*Resolution, error) {
	g := buildGraph(reg)

	order, err := topoSort(reg, g)
	if err != nil {
		return nil, err
	}

	resolveFeatures(reg)

	log.WithFields(log.Fields{
		"ordered":  len(order),
		"features": len(reg.Features),
	}).Debug("registry resolved")

	return &Resolution{Order: order, Graph: g}, nil
}

// buildGraph collects type-to-type edges. Handles are opaque leaves: a
// member holding a handle never creates an edge, which is what keeps
// self-referential handle structs out of cycle territory. Pointer members
// likewise need no forward declaration in the emitted Go, so only by-value
// references become edges.
func buildGraph(reg *parser.Registry) *Graph {
	g := &Graph{
		deps:      make(map[string][]string),
		referrers: make(map[string][]string),
	}

	addEdge := func(from, to string) {
		if parser.IsPrimitive(to) || from == to {
			return
		}
		dep := reg.Type(to)
		if dep == nil || dep.Kind == parser.KindHandle {
			return
		}
		for _, d := range g.deps[from] {
			if d == to {
				return
			}
		}
		g.deps[from] = append(g.deps[from], to)
		g.referrers[to] = append(g.referrers[to], from)
	}

	for _, td := range reg.Types {
		switch {
		case td.Alias != "":
			addEdge(td.Name, td.Alias)
		case td.Kind == parser.KindBitmask && td.Underlying != "":
			addEdge(td.Name, td.Underlying)
		case td.Kind == parser.KindBase && td.Underlying != "":
			addEdge(td.Name, td.Underlying)
		case td.Kind == parser.KindStruct || td.Kind == parser.KindUnion:
			for _, m := range td.Members {
				if m.PointerLevel == 0 {
					addEdge(td.Name, m.Type)
				}
			}
		case td.Kind == parser.KindFuncPointer:
			for _, m := range td.Members {
				if m.PointerLevel == 0 {
					addEdge(td.Name, m.Type)
				}
			}
		}
	}
	return g
}

// topoSort is a deterministic Kahn sort: the ready set is drained in
// declaration order.
func topoSort(reg *parser.Registry, g *Graph) ([]*parser.TypeDef, error) {
	indegree := make(map[string]int, len(reg.Types))
	for _, td := range reg.Types {
		indegree[td.Name] = len(g.deps[td.Name])
	}

	var ready []*parser.TypeDef
	for _, td := range reg.Types {
		if indegree[td.Name] == 0 {
			ready = append(ready, td)
		}
	}

	order := make([]*parser.TypeDef, 0, len(reg.Types))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool {
			return ready[i].DeclIndex < ready[j].DeclIndex
		})
		td := ready[0]
		ready = ready[1:]
		order = append(order, td)

		for _, ref := range g.referrers[td.Name] {
			indegree[ref]--
			if indegree[ref] == 0 {
				ready = append(ready, reg.Type(ref))
			}
		}
	}

	if len(order) < len(reg.Types) {
		return nil, &CycleError{Members: findCycle(reg, g, indegree)}
	}
	return order, nil
}

// findCycle shrinks the unsorted remainder to one actual cycle for the
// error report, walking dependencies until a node repeats.
func findCycle(reg *parser.Registry, g *Graph, indegree map[string]int) []string {
	remaining := make(map[string]bool)
	start := ""
	for _, td := range reg.Types {
		if indegree[td.Name] > 0 {
			remaining[td.Name] = true
			if start == "" {
				start = td.Name
			}
		}
	}

	seen := make(map[string]int)
	var path []string
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			return append(path[at:], cur)
		}
		seen[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, d := range g.deps[cur] {
			if remaining[d] {
				next = d
				break
			}
		}
		if next == "" {
			// Should not happen: every remaining node has a remaining dep.
			return path
		}
		cur = next
	}
}

// resolveFeatures appends each feature group's name to the Features list
// of every command it requires, in group declaration order. A command
// required by several groups belongs to all of them (union semantics).
func resolveFeatures(reg *parser.Registry) {
	for _, fg := range reg.Features {
		for _, name := range fg.Commands {
			cmd := reg.Command(name)
			member := false
			for _, f := range cmd.Features {
				if f == fg.Name {
					member = true
					break
				}
			}
			if !member {
				cmd.Features = append(cmd.Features, fg.Name)
			}
		}
	}
}

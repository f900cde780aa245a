package depgraph

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	"github.com/alecthomas/zerodi/internal/strcase"
)

// Edge is a single merged dependency of a service.
type Edge struct {
	// From is the service receiving the dependency.
	From model.TypeKey `json:"-"`
	// Origin is the service that declared the dependency, which is From at level 0.
	Origin     model.TypeKey          `json:"origin"`
	Capability model.TypeKey          `json:"capability"`
	Member     string                 `json:"member"`
	Source     model.DependencySource `json:"source"`
	// Level is 0 for the service's own dependencies, 1 for its base, and so on.
	Level    int            `json:"level"`
	External bool           `json:"external,omitempty"`
	Position token.Position `json:"-"`
}

type edgeKey struct {
	capability model.TypeKey
	member     string
}

func (e Edge) key() edgeKey { return edgeKey{e.Capability, e.Member} }

func (e Edge) describe() string {
	if e.Level == 0 {
		return e.Source.String()
	}
	return fmt.Sprintf("%s (inherited from %s)", e.Source, e.Origin)
}

// Graph of merged service dependencies.
type Graph struct {
	source model.Source
	// Declarations with bases before derived types.
	order        []*model.Declaration
	edges        map[model.TypeKey][]Edge
	implementers map[model.TypeKey][]*model.Declaration
}

const (
	unvisited = iota
	visiting
	merged
)

// Collect merges the dependencies of every declaration in source.
func Collect(source model.Source, naming strcase.Naming, reporter *diag.Reporter) *Graph {
	decls := source.Declarations()
	g := &Graph{
		source:       source,
		order:        make([]*model.Declaration, 0, len(decls)),
		edges:        make(map[model.TypeKey][]Edge, len(decls)),
		implementers: make(map[model.TypeKey][]*model.Declaration),
	}
	for _, decl := range decls {
		if decl.Abstract {
			continue
		}
		g.implementers[decl.Key] = append(g.implementers[decl.Key], decl)
		for _, iface := range decl.Interfaces {
			g.implementers[iface] = append(g.implementers[iface], decl)
		}
	}
	state := make(map[model.TypeKey]int, len(decls))
	for _, decl := range decls {
		g.merge(decl, naming, reporter, state)
	}
	g.findUnresolved(reporter)
	return g
}

// Source the graph was built from.
func (g *Graph) Source() model.Source { return g.source }

// Order returns all declarations, each base type before the types derived from it.
func (g *Graph) Order() []*model.Declaration { return g.order }

// Edges returns the merged dependencies of a service.
func (g *Graph) Edges(service model.TypeKey) []Edge { return g.edges[service] }

// Implementers returns the non-abstract services that can satisfy capability, in declaration order.
func (g *Graph) Implementers(capability model.TypeKey) []*model.Declaration {
	return g.implementers[capability.Elem()]
}

// Chain returns service followed by its base types, nearest first.
func (g *Graph) Chain(service model.TypeKey) []model.TypeKey {
	var chain []model.TypeKey
	seen := map[model.TypeKey]bool{}
	for key := service; key != "" && !seen[key]; {
		seen[key] = true
		chain = append(chain, key)
		decl, ok := g.source.Lookup(key)
		if !ok {
			break
		}
		key = decl.Base
	}
	return chain
}

func (g *Graph) merge(decl *model.Declaration, naming strcase.Naming, reporter *diag.Reporter, state map[model.TypeKey]int) []Edge {
	switch state[decl.Key] {
	case merged:
		return g.edges[decl.Key]
	case visiting:
		return nil
	}
	state[decl.Key] = visiting

	var edges []Edge
	index := map[edgeKey]int{}
	add := func(edge Edge) {
		if existing, ok := index[edge.key()]; ok {
			kept := edges[existing]
			pos := edge.Position
			if edge.Level > 0 {
				pos = kept.Position
			}
			reporter.Report(diag.DuplicateDependency, decl.Key, pos, edge.Capability, edge.Member, kept.describe())
			return
		}
		index[edge.key()] = len(edges)
		edges = append(edges, edge)
	}

	requests := decl.Dependencies()
	for _, source := range []model.DependencySource{model.SourceExplicit, model.SourceMember} {
		for _, request := range requests {
			if request.Source != source {
				continue
			}
			member := request.Member
			if source == model.SourceExplicit {
				member = naming.With(request.Naming).MemberName(request.Capability.Name())
			}
			add(Edge{
				From:       decl.Key,
				Origin:     decl.Key,
				Capability: request.Capability,
				Member:     member,
				Source:     request.Source,
				External:   request.External,
				Position:   request.Position,
			})
		}
	}

	if base, ok := g.source.Lookup(decl.Base); ok {
		if state[base.Key] == visiting {
			reporter.Report(diag.InheritanceCycle, decl.Key, decl.Position, g.describeInheritanceCycle(base.Key))
		} else {
			for _, edge := range g.merge(base, naming, reporter, state) {
				edge.From = decl.Key
				edge.Level++
				add(edge)
			}
		}
	}

	for _, embedded := range decl.Embedded {
		reporter.Report(diag.IgnoredEmbedding, decl.Key, decl.Position, embedded, decl.Base)
	}

	state[decl.Key] = merged
	g.edges[decl.Key] = edges
	g.order = append(g.order, decl)
	return edges
}

func (g *Graph) describeInheritanceCycle(start model.TypeKey) string {
	chain := []string{string(start)}
	for key := start; ; {
		decl, ok := g.source.Lookup(key)
		if !ok || decl.Base == "" {
			break
		}
		key = decl.Base
		chain = append(chain, string(key))
		if key == start || len(chain) > len(g.source.Declarations()) {
			break
		}
	}
	return strings.Join(chain, " -> ")
}

func (g *Graph) findUnresolved(reporter *diag.Reporter) {
	for _, decl := range g.source.Declarations() {
		for _, edge := range g.edges[decl.Key] {
			if edge.Level != 0 || edge.Source != model.SourceExplicit || edge.External {
				continue
			}
			if len(g.Implementers(edge.Capability)) == 0 {
				reporter.Report(diag.UnresolvedDependency, decl.Key, edge.Position, edge.Capability, decl.Key)
			}
		}
	}
}

package depgraph

import (
	"slices"
	"strings"

	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
)

// Cycles finds dependency cycles between services and reports each distinct cycle once.
//
// An edge runs from a service to every implementer of each capability it requires. External
// dependencies are not part of the graph. Services are first grouped into strongly connected
// components, then every elementary cycle inside a component is enumerated starting from its
// earliest declared service. Cycles visiting the same set of services are reported once. A
// service that requires its own type forms a cycle of length one.
func (g *Graph) Cycles(reporter *diag.Reporter) [][]model.TypeKey {
	decls := g.source.Declarations()
	order := make(map[model.TypeKey]int, len(decls))
	successors := make(map[model.TypeKey][]model.TypeKey, len(decls))
	for i, decl := range decls {
		order[decl.Key] = i
		successors[decl.Key] = g.successors(decl.Key)
	}
	component := components(decls, successors)

	seen := map[string]bool{}
	var cycles [][]model.TypeKey
	for _, start := range decls {
		var (
			path   []model.TypeKey
			onPath = map[model.TypeKey]bool{}
			search func(key model.TypeKey)
		)
		search = func(key model.TypeKey) {
			path = append(path, key)
			onPath[key] = true
			for _, next := range successors[key] {
				switch {
				case next == start.Key:
					cycle := slices.Clone(path)
					id := cycleID(cycle)
					if seen[id] {
						continue
					}
					seen[id] = true
					cycles = append(cycles, cycle)
					reporter.Report(diag.DependencyCycle, start.Key, start.Position, describeCycle(cycle))

				case component[next] == component[start.Key] && order[next] > order[start.Key] && !onPath[next]:
					search(next)
				}
			}
			path = path[:len(path)-1]
			delete(onPath, key)
		}
		search(start.Key)
	}
	return cycles
}

// successors of a service, in edge order.
func (g *Graph) successors(service model.TypeKey) []model.TypeKey {
	var out []model.TypeKey
	for _, edge := range g.edges[service] {
		if edge.External {
			continue
		}
		for _, impl := range g.Implementers(edge.Capability) {
			if !slices.Contains(out, impl.Key) {
				out = append(out, impl.Key)
			}
		}
	}
	return out
}

// components labels every service with its strongly connected component (Tarjan).
func components(decls []*model.Declaration, successors map[model.TypeKey][]model.TypeKey) map[model.TypeKey]int {
	var (
		counter   int
		index     = map[model.TypeKey]int{}
		low       = map[model.TypeKey]int{}
		onStack   = map[model.TypeKey]bool{}
		stack     []model.TypeKey
		component = make(map[model.TypeKey]int, len(decls))
		connect   func(key model.TypeKey)
	)
	connect = func(key model.TypeKey) {
		counter++
		index[key] = counter
		low[key] = counter
		stack = append(stack, key)
		onStack[key] = true
		for _, next := range successors[key] {
			switch {
			case index[next] == 0:
				connect(next)
				low[key] = min(low[key], low[next])
			case onStack[next]:
				low[key] = min(low[key], index[next])
			}
		}
		if low[key] != index[key] {
			return
		}
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component[top] = index[key]
			if top == key {
				return
			}
		}
	}
	for _, decl := range decls {
		if index[decl.Key] == 0 {
			connect(decl.Key)
		}
	}
	return component
}

// cycleID identifies a cycle by its set of services.
func cycleID(cycle []model.TypeKey) string {
	keys := make([]string, len(cycle))
	for i, key := range cycle {
		keys[i] = string(key)
	}
	slices.Sort(keys)
	return strings.Join(keys, "\x00")
}

func describeCycle(cycle []model.TypeKey) string {
	parts := make([]string, 0, len(cycle)+1)
	for _, key := range cycle {
		parts = append(parts, string(key))
	}
	parts = append(parts, string(cycle[0]))
	return strings.Join(parts, " -> ")
}

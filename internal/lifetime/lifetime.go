// Package lifetime assigns effective lifetimes to services and checks that services never
// outlive their dependencies.
package lifetime

import (
	"strings"

	"github.com/alecthomas/zerodi/internal/depgraph"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
)

// Assignment is the effective lifetime of a single service.
type Assignment struct {
	Lifetime model.Lifetime
	// Declared is true if the lifetime comes from an annotation on the service or one of its bases.
	Declared bool
	// From is the service carrying the annotation, or "" if the default was used.
	From model.TypeKey
}

// Own reports whether the lifetime was annotated on service itself.
func (a Assignment) Own(service model.TypeKey) bool { return a.Declared && a.From == service }

// Table of effective lifetimes keyed by service.
type Table map[model.TypeKey]Assignment

// Resolve the effective lifetime of every service in graph.
//
// The first lifetime annotated on a service wins, and any further annotations are reported.
// A service without annotations inherits from its nearest annotated base, falling back to
// fallback.
func Resolve(graph *depgraph.Graph, fallback model.Lifetime, reporter *diag.Reporter) Table {
	table := make(Table, len(graph.Order()))
	for _, decl := range graph.Order() {
		annotations := decl.Lifetimes()
		if len(annotations) > 0 {
			chosen := annotations[0].Lifetime
			if len(annotations) > 1 {
				names := make([]string, 0, len(annotations))
				for _, annotation := range annotations {
					names = append(names, annotation.Lifetime.String())
				}
				reporter.Report(diag.MultipleLifetimes, decl.Key, annotations[1].Position, strings.Join(names, ", "), chosen)
			}
			table[decl.Key] = Assignment{Lifetime: chosen, Declared: true, From: decl.Key}
			continue
		}
		if base, ok := table[decl.Base]; ok && base.Declared {
			table[decl.Key] = base
			continue
		}
		table[decl.Key] = Assignment{Lifetime: fallback}
	}
	return table
}

type violation struct {
	origin     model.TypeKey
	capability model.TypeKey
	member     string
	dependency model.Lifetime
}

// Validate reports singletons that depend on shorter-lived services.
//
// Only dependencies resolving to exactly one service are checked, and external dependencies are
// skipped. A violation is identified by the service that introduced the dependency, so one
// introduced by a base type is reported once, on the first service in which it manifests.
func Validate(graph *depgraph.Graph, table Table, reporter *diag.Reporter) {
	reported := map[violation]bool{}
	for _, decl := range graph.Order() {
		if table[decl.Key].Lifetime != model.Singleton {
			continue
		}
		for _, edge := range graph.Edges(decl.Key) {
			if edge.External {
				continue
			}
			implementers := graph.Implementers(edge.Capability)
			if len(implementers) != 1 {
				continue
			}
			dependency := implementers[0]
			var rule diag.Rule
			switch table[dependency.Key].Lifetime {
			case model.Scoped:
				rule = diag.SingletonDependsOnScoped
			case model.Transient:
				rule = diag.SingletonDependsOnTransient
			default:
				continue
			}
			key := violation{edge.Origin, edge.Capability, edge.Member, table[dependency.Key].Lifetime}
			if reported[key] {
				continue
			}
			reported[key] = true
			reporter.Report(rule, decl.Key, edge.Position, decl.Key, dependency.Key, edge.Member, edge.Origin, edge.Level)
		}
	}
}

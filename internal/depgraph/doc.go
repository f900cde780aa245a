// Package depgraph merges the dependency declarations of every service into a single
// dependency graph, and finds cycles in that graph.
//
// Each service's dependencies are collected from three places, in this order:
//
//  1. The explicit dependency list (//di:inject), in declaration order. Member names are derived
//     from the capability type using the configured naming convention.
//  2. Members marked for injection (`inject:""` struct tags), using the member's own name.
//  3. The merged dependencies of the base type (the embedded declaration), each tagged with an
//     inheritance level one greater than in the base.
//
// Entries are unique by (capability, member). A later entry colliding with an earlier one is
// dropped and reported, so a service's own declarations always take precedence over those it
// inherits.
//
// The result is a flat, level-tagged list of edges per service. Later stages never walk the
// inheritance hierarchy again.
package depgraph

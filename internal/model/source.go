package model

import (
	"go/token"
	"iter"
	"slices"
)

// Source supplies the declarations for one build.
type Source interface {
	// Declarations returns every declaration in a stable order.
	Declarations() []*Declaration
	// Lookup returns the declaration for a type, if any.
	Lookup(key TypeKey) (*Declaration, bool)
	// Kind classifies any named type known to the source.
	Kind(key TypeKey) TypeKind
	// Invalid returns the directives that were ignored because they could not be applied.
	Invalid() []*InvalidDirective
}

// InvalidDirective is a directive that was ignored because it could not be parsed or applied.
type InvalidDirective struct {
	// Service is the type the directive is attached to, which may not be a declaration.
	Service  TypeKey
	Position token.Position
	// Directive is the directive name, eg. "when".
	Directive string
	Message   string
}

// Set is an immutable [Source] built from a list of declaration fragments.
type Set struct {
	declarations []*Declaration
	index        map[TypeKey]*Declaration
	kinds        map[TypeKey]TypeKind
	invalid      []*InvalidDirective
}

var _ Source = (*Set)(nil)

// NewSet merges fragments sharing a key into a single declaration and indexes the result.
//
// Declarations keep the order in which their first fragment appears. kinds classifies named
// types that are not themselves declarations, such as interfaces. Declarations are always
// [KindConcrete].
func NewSet(fragments []*Declaration, kinds map[TypeKey]TypeKind) *Set {
	s := &Set{
		index: make(map[TypeKey]*Declaration, len(fragments)),
		kinds: make(map[TypeKey]TypeKind, len(kinds)+len(fragments)),
	}
	for key, kind := range kinds {
		s.kinds[key] = kind
	}
	for _, fragment := range fragments {
		existing, ok := s.index[fragment.Key]
		if !ok {
			decl := *fragment
			decl.Interfaces = slices.Clone(fragment.Interfaces)
			decl.ConfigMembers = slices.Clone(fragment.ConfigMembers)
			decl.Embedded = slices.Clone(fragment.Embedded)
			decl.Annotations = slices.Clone(fragment.Annotations)
			s.index[decl.Key] = &decl
			s.declarations = append(s.declarations, &decl)
			s.kinds[decl.Key] = KindConcrete
			continue
		}
		existing.Abstract = existing.Abstract || fragment.Abstract
		if existing.Base == "" {
			existing.Base = fragment.Base
		}
		existing.Interfaces = appendUnique(existing.Interfaces, fragment.Interfaces...)
		existing.ConfigMembers = appendUnique(existing.ConfigMembers, fragment.ConfigMembers...)
		existing.Embedded = appendUnique(existing.Embedded, fragment.Embedded...)
		existing.Annotations = append(existing.Annotations, fragment.Annotations...)
	}
	return s
}

func (s *Set) Declarations() []*Declaration { return s.declarations }

// All iterates over declarations in order.
func (s *Set) All() iter.Seq[*Declaration] { return slices.Values(s.declarations) }

func (s *Set) Lookup(key TypeKey) (*Declaration, bool) {
	decl, ok := s.index[key]
	return decl, ok
}

func (s *Set) Kind(key TypeKey) TypeKind { return s.kinds[key] }

func (s *Set) Invalid() []*InvalidDirective { return s.invalid }

// WithInvalid returns a copy of the set that also carries invalid directives.
func (s *Set) WithInvalid(invalid ...*InvalidDirective) *Set {
	out := *s
	out.invalid = append(slices.Clone(s.invalid), invalid...)
	return &out
}

func appendUnique[T comparable](to []T, values ...T) []T {
	for _, value := range values {
		if !slices.Contains(to, value) {
			to = append(to, value)
		}
	}
	return to
}

// Package model is the in-memory representation of annotated service declarations.
package model

import (
	"go/token"
	"path"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/zerodi/internal/strcase"
)

// TypeKey is the fully qualified identity of a type, as produced by types.TypeString(t, nil).
//
// eg. "github.com/example/app.UserStore" or "*github.com/example/app.UserStore".
type TypeKey string

// Name returns the simple name of the type, without package path or pointer.
func (k TypeKey) Name() string {
	name := path.Base(strings.TrimLeft(string(k), "*"))
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Elem returns the key with any leading pointer indirection removed.
func (k TypeKey) Elem() TypeKey { return TypeKey(strings.TrimLeft(string(k), "*")) }

func (k TypeKey) String() string { return string(k) }

// TypeKind classifies a named type.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindConcrete
	KindInterface
)

func (k TypeKind) String() string {
	switch k {
	case KindConcrete:
		return "concrete"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Lifetime of a service.
type Lifetime int

const (
	// LifetimeNone means no lifetime has been assigned.
	LifetimeNone Lifetime = iota
	// Transient services are constructed for every request.
	Transient
	// Scoped services are constructed once per logical operation.
	Scoped
	// Singleton services are constructed once per process.
	Singleton
)

// ParseLifetime parses a lifetime name, case-insensitively.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(s) {
	case "transient":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	case "singleton":
		return Singleton, nil
	}
	return LifetimeNone, errors.Errorf("unknown lifetime %q, expected transient, scoped or singleton", s)
}

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return "none"
	}
}

func (l Lifetime) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Lifetime) UnmarshalText(text []byte) error {
	lifetime, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = lifetime
	return nil
}

// Declaration of a single service type, merged from all of its fragments.
type Declaration struct {
	Key      TypeKey
	Position token.Position
	// Abstract declarations are only used as a base for other declarations.
	Abstract bool
	// Base is the declaration this one inherits from, or "".
	Base TypeKey
	// Embedded lists declarations embedded after Base. They are not inherited from.
	Embedded []TypeKey
	// Interfaces implemented by the type, in a stable order.
	Interfaces []TypeKey
	// ConfigMembers are the names of members bound from configuration.
	ConfigMembers []string
	// Annotations in declaration order.
	Annotations []Annotation
}

// Lifetimes returns the lifetime annotations of the declaration in declaration order.
func (d *Declaration) Lifetimes() []*LifetimeAnnotation { return annotationsOf[*LifetimeAnnotation](d) }

// Dependencies returns the raw dependency requests of the declaration in declaration order.
func (d *Declaration) Dependencies() []*DependencyRequest { return annotationsOf[*DependencyRequest](d) }

// Conditions returns the raw conditional-registration requests of the declaration.
func (d *Declaration) Conditions() []*ConditionRequest { return annotationsOf[*ConditionRequest](d) }

// Exposures returns the raw interface-exposure requests of the declaration, including skips.
func (d *Declaration) Exposures() []*ExposureRequest { return annotationsOf[*ExposureRequest](d) }

// Implements reports whether the declaration implements the interface iface.
func (d *Declaration) Implements(iface TypeKey) bool {
	for _, candidate := range d.Interfaces {
		if candidate == iface {
			return true
		}
	}
	return false
}

func annotationsOf[T Annotation](d *Declaration) []T {
	var out []T
	for _, annotation := range d.Annotations {
		if annotation, ok := annotation.(T); ok {
			out = append(out, annotation)
		}
	}
	return out
}

// Annotation is one raw directive attached to a declaration.
//
//sumtype:decl
type Annotation interface {
	AnnotationPosition() token.Position
	annotation()
}

// LifetimeAnnotation declares the lifetime of a service.
type LifetimeAnnotation struct {
	Position token.Position
	Lifetime Lifetime
}

func (*LifetimeAnnotation) annotation()                          {}
func (l *LifetimeAnnotation) AnnotationPosition() token.Position { return l.Position }

// DependencySource records how a dependency was declared.
type DependencySource int

const (
	// SourceExplicit dependencies come from an explicit dependency list.
	SourceExplicit DependencySource = iota
	// SourceMember dependencies come from a member marked for injection.
	SourceMember
)

func (s DependencySource) String() string {
	if s == SourceMember {
		return "member"
	}
	return "explicit"
}

func (s DependencySource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DependencyRequest is a single requested capability.
type DependencyRequest struct {
	Position   token.Position
	Capability TypeKey
	Source     DependencySource
	// Member is the member name for member-marker requests. Explicit requests derive it from Naming.
	Member string
	// Naming overrides the default naming convention for explicit requests.
	Naming strcase.Override
	// External dependencies are managed outside the container and are not validated.
	External bool
}

func (*DependencyRequest) annotation()                          {}
func (d *DependencyRequest) AnnotationPosition() token.Position { return d.Position }

// ConfigCondition compares a configuration key.
type ConfigCondition struct {
	Key       string
	Equals    *string
	NotEquals []string
}

// ConditionRequest is a single raw conditional-registration request.
//
// A nil slice means the clause is absent. A non-nil slice may contain the empty string,
// which is a valid environment name.
type ConditionRequest struct {
	Position     token.Position
	EnvEquals    []string
	EnvNotEquals []string
	Config       *ConfigCondition
}

func (*ConditionRequest) annotation()                          {}
func (c *ConditionRequest) AnnotationPosition() token.Position { return c.Position }

// RegistrationMode selects which bindings an exposure request produces.
type RegistrationMode int

const (
	// ModeDefault is ModeInterfaces when interfaces are listed, ModeAll otherwise.
	ModeDefault RegistrationMode = iota
	// ModeSelf binds the concrete type only.
	ModeSelf
	// ModeInterfaces binds interfaces only.
	ModeInterfaces
	// ModeAll binds the concrete type and interfaces.
	ModeAll
	// ModeSkip suppresses bindings.
	ModeSkip
)

func (m RegistrationMode) String() string {
	switch m {
	case ModeSelf:
		return "self"
	case ModeInterfaces:
		return "interfaces"
	case ModeAll:
		return "all"
	case ModeSkip:
		return "skip"
	default:
		return "default"
	}
}

// Sharing controls whether bindings of one concrete type share an instance.
type Sharing int

const (
	Separate Sharing = iota
	Shared
)

func (s Sharing) String() string {
	if s == Shared {
		return "shared"
	}
	return "separate"
}

// ExposureRequest asks for (or, in ModeSkip, suppresses) bindings of a service.
type ExposureRequest struct {
	Position   token.Position
	Mode       RegistrationMode
	Sharing    Sharing
	Interfaces []TypeKey
}

func (*ExposureRequest) annotation()                          {}
func (e *ExposureRequest) AnnotationPosition() token.Position { return e.Position }

// Package modeltest builds declarations for tests.
package modeltest

import (
	"go/token"
	"strings"

	"github.com/alecthomas/zerodi/internal/model"
)

type Option func(d *model.Declaration)

// Service creates a declaration for key.
//
// Each annotation is positioned on its own line of a file named after the service.
func Service(key model.TypeKey, options ...Option) *model.Declaration {
	d := &model.Declaration{
		Key:      key,
		Position: token.Position{Filename: strings.ToLower(key.Name()) + ".go", Line: 1, Column: 1},
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func next(d *model.Declaration) token.Position {
	pos := d.Position
	pos.Line += len(d.Annotations) + 1
	return pos
}

func Abstract() Option { return func(d *model.Declaration) { d.Abstract = true } }

func Base(key model.TypeKey) Option { return func(d *model.Declaration) { d.Base = key } }

// Embeds adds declarations embedded after the base.
func Embeds(keys ...model.TypeKey) Option {
	return func(d *model.Declaration) { d.Embedded = append(d.Embedded, keys...) }
}

func Implements(interfaces ...model.TypeKey) Option {
	return func(d *model.Declaration) { d.Interfaces = append(d.Interfaces, interfaces...) }
}

func ConfigMembers(names ...string) Option {
	return func(d *model.Declaration) { d.ConfigMembers = append(d.ConfigMembers, names...) }
}

func Lifetime(lifetime model.Lifetime) Option {
	return func(d *model.Declaration) {
		d.Annotations = append(d.Annotations, &model.LifetimeAnnotation{Position: next(d), Lifetime: lifetime})
	}
}

// Inject adds explicit dependency list entries.
func Inject(capabilities ...model.TypeKey) Option {
	return func(d *model.Declaration) {
		for _, capability := range capabilities {
			d.Annotations = append(d.Annotations, &model.DependencyRequest{
				Position:   next(d),
				Capability: capability,
				Source:     model.SourceExplicit,
			})
		}
	}
}

// InjectExternal adds an explicit dependency on an externally managed capability.
func InjectExternal(capability model.TypeKey) Option {
	return func(d *model.Declaration) {
		d.Annotations = append(d.Annotations, &model.DependencyRequest{
			Position:   next(d),
			Capability: capability,
			Source:     model.SourceExplicit,
			External:   true,
		})
	}
}

// Member adds a member-marker dependency.
func Member(name string, capability model.TypeKey) Option {
	return func(d *model.Declaration) {
		d.Annotations = append(d.Annotations, &model.DependencyRequest{
			Position:   next(d),
			Capability: capability,
			Source:     model.SourceMember,
			Member:     name,
		})
	}
}

func When(request model.ConditionRequest) Option {
	return func(d *model.Declaration) {
		request.Position = next(d)
		d.Annotations = append(d.Annotations, &request)
	}
}

func Expose(mode model.RegistrationMode, sharing model.Sharing, interfaces ...model.TypeKey) Option {
	return func(d *model.Declaration) {
		d.Annotations = append(d.Annotations, &model.ExposureRequest{
			Position:   next(d),
			Mode:       mode,
			Sharing:    sharing,
			Interfaces: interfaces,
		})
	}
}

func Skip(interfaces ...model.TypeKey) Option {
	return Expose(model.ModeSkip, model.Separate, interfaces...)
}

// NewSet creates a set in which every implemented interface, plus interfaces, is an interface type.
func NewSet(interfaces []model.TypeKey, decls ...*model.Declaration) *model.Set {
	kinds := map[model.TypeKey]model.TypeKind{}
	for _, iface := range interfaces {
		kinds[iface] = model.KindInterface
	}
	for _, decl := range decls {
		for _, iface := range decl.Interfaces {
			kinds[iface] = model.KindInterface
		}
	}
	return model.NewSet(decls, kinds)
}

// String returns a pointer to s, for optional condition values.
func String(s string) *string { return &s }

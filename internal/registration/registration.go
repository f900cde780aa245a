// Package registration plans the container bindings of each service.
package registration

import (
	"go/token"
	"slices"
	"strings"

	"github.com/alecthomas/zerodi/internal/conditional"
	"github.com/alecthomas/zerodi/internal/depgraph"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/lifetime"
	"github.com/alecthomas/zerodi/internal/model"
)

// Entry is a single binding of a service type.
type Entry struct {
	// Concrete service type providing the instance.
	Concrete model.TypeKey `json:"concrete"`
	// Exposed is the type the binding is resolvable as, which is Concrete for the concrete binding.
	Exposed  model.TypeKey  `json:"exposed"`
	Lifetime model.Lifetime `json:"lifetime"`
	// Shared entries of one concrete type must be satisfied by a single factory per scope.
	Shared    bool   `json:"shared"`
	Condition string `json:"condition"`
}

// ServicePlan is the complete plan for a single service.
type ServicePlan struct {
	Service   model.TypeKey   `json:"service"`
	Position  token.Position  `json:"-"`
	Lifetime  model.Lifetime  `json:"lifetime"`
	Condition string          `json:"condition"`
	// Abstract services are never registered. Their plan only carries their dependencies.
	Abstract bool `json:"abstract,omitempty"`
	// Bases of the service, nearest first.
	Bases        []model.TypeKey `json:"bases,omitempty"`
	Entries      []Entry         `json:"entries"`
	Dependencies []depgraph.Edge `json:"dependencies"`
}

// Plan for all services, in declaration order.
type Plan struct {
	Services []*ServicePlan `json:"services"`
}

// Entries returns every entry of the plan in order.
func (p *Plan) Entries() []Entry {
	var out []Entry
	for _, service := range p.Services {
		out = append(out, service.Entries...)
	}
	return out
}

// Lookup the plan of a service.
func (p *Plan) Lookup(service model.TypeKey) (*ServicePlan, bool) {
	for _, plan := range p.Services {
		if plan.Service == service {
			return plan, true
		}
	}
	return nil, false
}

// PlanService determines the bindings of decl.
//
// Abstract declarations are never registered and produce a plan without entries. Otherwise the concrete
// type is bound when the service declares a lifetime (directly or through its base) or a
// condition, or when an exposure asks for it. Interfaces are bound as listed by exposure
// requests, or all implemented interfaces when the service has a lifetime or condition and
// no exposure requests. Skip requests are applied last.
func PlanService(graph *depgraph.Graph, decl *model.Declaration, assignment lifetime.Assignment, condition conditional.Expr, reporter *diag.Reporter) *ServicePlan {
	plan := &ServicePlan{
		Service:      decl.Key,
		Position:     decl.Position,
		Lifetime:     assignment.Lifetime,
		Condition:    conditional.Render(condition),
		Abstract:     decl.Abstract,
		Bases:        graph.Chain(decl.Key)[1:],
		Dependencies: graph.Edges(decl.Key),
	}
	exposures := decl.Exposures()
	if decl.Abstract {
		for _, exposure := range exposures {
			reporter.Report(diag.RegistrationOnAbstractType, decl.Key, exposure.Position, exposure.Mode.String()+" request")
		}
		return plan
	}
	conditions := decl.Conditions()
	if len(conditions) > 0 && !assignment.Declared {
		reporter.Report(diag.ConditionWithoutLifetime, decl.Key, conditions[0].Position, assignment.Lifetime)
	}

	p := &planner{graph: graph, decl: decl, reporter: reporter}
	p.concrete = assignment.Declared || len(conditions) > 0

	var skips []*model.ExposureRequest
	requested := false
	for _, exposure := range exposures {
		if exposure.Mode == model.ModeSkip {
			skips = append(skips, exposure)
			continue
		}
		requested = true
		p.expose(exposure)
	}
	if !requested && p.concrete {
		p.interfaces = slices.Clone(decl.Interfaces)
	}
	for _, skip := range skips {
		p.skip(skip)
	}

	bindings := len(p.interfaces)
	if p.concrete {
		bindings++
	}
	if !p.shared && len(decl.ConfigMembers) > 0 && bindings > 1 {
		p.shared = true
		reporter.Report(diag.SharingForcedByConfig, decl.Key, decl.Position, strings.Join(decl.ConfigMembers, ", "))
	}

	entry := func(exposed model.TypeKey) Entry {
		return Entry{
			Concrete:  decl.Key,
			Exposed:   exposed,
			Lifetime:  plan.Lifetime,
			Shared:    p.shared,
			Condition: plan.Condition,
		}
	}
	if p.concrete {
		plan.Entries = append(plan.Entries, entry(decl.Key))
	}
	for _, iface := range p.interfaces {
		plan.Entries = append(plan.Entries, entry(iface))
	}
	return plan
}

type planner struct {
	graph    *depgraph.Graph
	decl     *model.Declaration
	reporter *diag.Reporter

	concrete   bool
	shared     bool
	interfaces []model.TypeKey
}

func (p *planner) expose(exposure *model.ExposureRequest) {
	mode := exposure.Mode
	if mode == model.ModeDefault {
		mode = model.ModeAll
		if len(exposure.Interfaces) > 0 {
			mode = model.ModeInterfaces
		}
	}
	if exposure.Sharing == model.Shared {
		p.shared = true
	}
	if mode == model.ModeSelf || mode == model.ModeAll {
		p.concrete = true
	}
	if mode == model.ModeSelf {
		return
	}
	if len(exposure.Interfaces) == 0 {
		p.add(p.decl.Interfaces...)
		return
	}
	seen := map[model.TypeKey]bool{}
	for _, iface := range exposure.Interfaces {
		switch {
		case p.graph.Source().Kind(iface) != model.KindInterface:
			p.reporter.Report(diag.NotAnInterface, p.decl.Key, exposure.Position, iface)
		case seen[iface]:
			p.reporter.Report(diag.DuplicateInterface, p.decl.Key, exposure.Position, iface)
		case !p.decl.Implements(iface):
			p.reporter.Report(diag.InterfaceNotImplemented, p.decl.Key, exposure.Position, p.decl.Key, iface)
		default:
			p.add(iface)
		}
		seen[iface] = true
	}
}

func (p *planner) add(interfaces ...model.TypeKey) {
	for _, iface := range interfaces {
		if !slices.Contains(p.interfaces, iface) {
			p.interfaces = append(p.interfaces, iface)
		}
	}
}

func (p *planner) skip(skip *model.ExposureRequest) {
	if len(skip.Interfaces) == 0 {
		if !p.concrete && len(p.interfaces) == 0 {
			p.reporter.Report(diag.NoOpSkip, p.decl.Key, skip.Position, "all bindings")
		}
		p.concrete = false
		p.interfaces = nil
		return
	}
	for _, target := range skip.Interfaces {
		switch {
		case target == p.decl.Key && p.concrete:
			p.concrete = false
		case slices.Contains(p.interfaces, target):
			p.interfaces = slices.DeleteFunc(p.interfaces, func(iface model.TypeKey) bool { return iface == target })
		default:
			p.reporter.Report(diag.NoOpSkip, p.decl.Key, skip.Position, target)
		}
	}
}

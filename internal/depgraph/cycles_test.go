package depgraph

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	. "github.com/alecthomas/zerodi/internal/model/modeltest" //nolint
	"github.com/alecthomas/zerodi/internal/strcase"
)

func cycles(t *testing.T, decls ...*model.Declaration) ([][]model.TypeKey, []diag.Diagnostic) {
	t.Helper()
	reporter := diag.NewReporter(nil)
	graph := Collect(NewSet(nil, decls...), strcase.DefaultNaming(), reporter)
	found := graph.Cycles(reporter)
	var cycleDiagnostics []diag.Diagnostic
	for _, d := range reporter.Diagnostics() {
		if d.Code == diag.DependencyCycle.Code {
			cycleDiagnostics = append(cycleDiagnostics, d)
		}
	}
	return found, cycleDiagnostics
}

func TestCycles(t *testing.T) {
	const (
		a model.TypeKey = "app.A"
		b model.TypeKey = "app.B"
		c model.TypeKey = "app.C"
		i model.TypeKey = "app.IB"
	)
	tests := []struct {
		name     string
		decls    []*model.Declaration
		expected [][]model.TypeKey
	}{
		{
			name: "Acyclic",
			decls: []*model.Declaration{
				Service(a, Inject(b, c)),
				Service(b, Inject(c)),
				Service(c),
			},
		},
		{
			name: "TwoCycle",
			decls: []*model.Declaration{
				Service(a, Inject(b)),
				Service(b, Inject(a)),
			},
			expected: [][]model.TypeKey{{a, b}},
		},
		{
			name: "SelfDependency",
			decls: []*model.Declaration{
				Service(a, Inject(a)),
			},
			expected: [][]model.TypeKey{{a}},
		},
		{
			name: "ThroughInterface",
			decls: []*model.Declaration{
				Service(a, Inject(i)),
				Service(b, Implements(i), Member("a", "*app.A")),
			},
			expected: [][]model.TypeKey{{a, b}},
		},
		{
			name: "DuplicateEdgesReportedOnce",
			decls: []*model.Declaration{
				Service(a, Inject(b), Member("again", b)),
				Service(b, Inject(a)),
			},
			expected: [][]model.TypeKey{{a, b}},
		},
		{
			name: "ThreeCycle",
			decls: []*model.Declaration{
				Service(a, Inject(b)),
				Service(b, Inject(c)),
				Service(c, Inject(a)),
			},
			expected: [][]model.TypeKey{{a, b, c}},
		},
		{
			name: "CycleThroughFinishedService",
			decls: []*model.Declaration{
				Service(a, Inject(c, b)),
				Service(b, Inject(c)),
				Service(c, Inject(a)),
			},
			expected: [][]model.TypeKey{{a, c}, {a, b, c}},
		},
		{
			name: "SameServicesInBothDirections",
			decls: []*model.Declaration{
				Service(a, Inject(b, c)),
				Service(b, Inject(a, c)),
				Service(c, Inject(a, b)),
			},
			expected: [][]model.TypeKey{{a, b}, {a, b, c}, {a, c}, {b, c}},
		},
		{
			name: "SeparateComponents",
			decls: []*model.Declaration{
				Service(a, Inject(b)),
				Service(b, Inject(a)),
				Service(c, Inject(c, a)),
			},
			expected: [][]model.TypeKey{{a, b}, {c}},
		},
		{
			name: "ExternalEdgesIgnored",
			decls: []*model.Declaration{
				Service(a, InjectExternal(b)),
				Service(b, Inject(a)),
			},
		},
		{
			name: "InheritedEdge",
			decls: []*model.Declaration{
				Service(c, Abstract(), Inject(a)),
				Service(a, Base(c)),
			},
			expected: [][]model.TypeKey{{a}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, diagnostics := cycles(t, tt.decls...)
			assert.Equal(t, tt.expected, found)
			assert.Equal(t, len(tt.expected), len(diagnostics))
		})
	}
}

func TestCycleDiagnosticNamesChain(t *testing.T) {
	_, diagnostics := cycles(t,
		Service("app.A", Inject("app.B")),
		Service("app.B", Inject("app.A")),
	)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, "dependency cycle: app.A -> app.B -> app.A", diagnostics[0].Message)
	assert.Equal(t, diag.Error, diagnostics[0].Severity)
}

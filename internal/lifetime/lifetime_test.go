package lifetime

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/zerodi/internal/depgraph"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	. "github.com/alecthomas/zerodi/internal/model/modeltest" //nolint
	"github.com/alecthomas/zerodi/internal/strcase"
)

const (
	cache   model.TypeKey = "app.Cache"
	session model.TypeKey = "app.Session"
	repo    model.TypeKey = "app.IRepository"
	sqlRepo model.TypeKey = "app.SQLRepository"
	memRepo model.TypeKey = "app.MemoryRepository"
	base    model.TypeKey = "app.BaseJob"
	jobA    model.TypeKey = "app.CleanupJob"
	jobB    model.TypeKey = "app.ReportJob"
	jobC    model.TypeKey = "app.AuditJob"
)

func analyse(t *testing.T, fallback model.Lifetime, decls ...*model.Declaration) (Table, []diag.Diagnostic) {
	t.Helper()
	reporter := diag.NewReporter(nil)
	graph := depgraph.Collect(NewSet(nil, decls...), strcase.DefaultNaming(), reporter)
	table := Resolve(graph, fallback, reporter)
	Validate(graph, table, reporter)
	return table, reporter.Diagnostics()
}

func TestValidateDependencyLifetime(t *testing.T) {
	tests := []struct {
		name       string
		dependency model.Lifetime
		expected   []diag.Code
		severity   diag.Severity
	}{
		{"Scoped", model.Scoped, []diag.Code{diag.SingletonDependsOnScoped.Code}, diag.Error},
		{"Transient", model.Transient, []diag.Code{diag.SingletonDependsOnTransient.Code}, diag.Warning},
		{"Singleton", model.Singleton, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diagnostics := analyse(t, model.Scoped,
				Service(session, Lifetime(tt.dependency)),
				Service(cache, Lifetime(model.Singleton), Inject(session)),
			)
			var actual []diag.Code
			for _, d := range diagnostics {
				actual = append(actual, d.Code)
			}
			assert.Equal(t, tt.expected, actual)
			if len(diagnostics) > 0 {
				assert.Equal(t, tt.severity, diagnostics[0].Severity)
				assert.Equal(t, cache, diagnostics[0].Service)
			}
		})
	}
}

func TestValidatePermittedCombinations(t *testing.T) {
	for _, consumer := range []model.Lifetime{model.Scoped, model.Transient} {
		for _, dependency := range []model.Lifetime{model.Singleton, model.Scoped, model.Transient} {
			_, diagnostics := analyse(t, model.Scoped,
				Service(session, Lifetime(dependency)),
				Service(cache, Lifetime(consumer), Inject(session)),
			)
			assert.Equal(t, 0, len(diagnostics), "%s -> %s", consumer, dependency)
		}
	}
}

func TestValidateDefaultLifetimeApplies(t *testing.T) {
	// session has no annotation and receives the default.
	_, diagnostics := analyse(t, model.Transient,
		Service(session),
		Service(cache, Lifetime(model.Singleton), Inject(session)),
	)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, diag.SingletonDependsOnTransient.Code, diagnostics[0].Code)
}

func TestValidateSkipsAmbiguousAndExternal(t *testing.T) {
	_, diagnostics := analyse(t, model.Scoped,
		Service(sqlRepo, Implements(repo), Lifetime(model.Scoped)),
		Service(memRepo, Implements(repo), Lifetime(model.Scoped)),
		Service(session, Lifetime(model.Scoped)),
		Service(cache, Lifetime(model.Singleton), Inject(repo), InjectExternal(session)),
	)
	assert.Equal(t, 0, len(diagnostics))
}

func TestValidateInheritedViolationReportedOnce(t *testing.T) {
	_, diagnostics := analyse(t, model.Scoped,
		Service(session, Lifetime(model.Scoped)),
		Service(base, Abstract(), Lifetime(model.Singleton), Inject(session)),
		Service(jobA, Base(base)),
		Service(jobB, Base(base)),
	)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, base, diagnostics[0].Service)
	assert.Contains(t, diagnostics[0].Message, "inheritance level 0")
}

func TestValidateDerivedLifetimeManifestsNewViolation(t *testing.T) {
	_, diagnostics := analyse(t, model.Scoped,
		Service(session, Lifetime(model.Transient)),
		Service(base, Abstract(), Lifetime(model.Scoped), Inject(session)),
		Service(jobA, Base(base)),
		Service(jobB, Base(base), Lifetime(model.Singleton)),
		Service(jobC, Base(base), Lifetime(model.Singleton)),
	)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, diag.SingletonDependsOnTransient.Code, diagnostics[0].Code)
	assert.Equal(t, jobB, diagnostics[0].Service)
	assert.Contains(t, diagnostics[0].Message, "introduced by app.BaseJob at inheritance level 1")
}

func TestResolve(t *testing.T) {
	table, diagnostics := analyse(t, model.Transient,
		Service(base, Abstract(), Lifetime(model.Singleton)),
		Service(jobA, Base(base)),
		Service(jobB, Base(base), Lifetime(model.Scoped)),
		Service(jobC, Lifetime(model.Scoped), Lifetime(model.Singleton)),
		Service(cache),
	)
	assert.Equal(t, Assignment{model.Singleton, true, base}, table[jobA])
	assert.False(t, table[jobA].Own(jobA))
	assert.Equal(t, Assignment{model.Scoped, true, jobB}, table[jobB])
	assert.True(t, table[jobB].Own(jobB))
	assert.Equal(t, Assignment{model.Scoped, true, jobC}, table[jobC])
	assert.Equal(t, Assignment{Lifetime: model.Transient}, table[cache])

	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, diag.MultipleLifetimes.Code, diagnostics[0].Code)
	assert.Equal(t, jobC, diagnostics[0].Service)
	assert.Equal(t, "multiple lifetimes declared (scoped, singleton), using scoped", diagnostics[0].Message)
}

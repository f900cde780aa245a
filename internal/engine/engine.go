// Package engine runs the complete analysis pipeline over a set of declarations.
package engine

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alecthomas/zerodi/internal/conditional"
	"github.com/alecthomas/zerodi/internal/config"
	"github.com/alecthomas/zerodi/internal/depgraph"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/lifetime"
	"github.com/alecthomas/zerodi/internal/logging"
	"github.com/alecthomas/zerodi/internal/model"
	"github.com/alecthomas/zerodi/internal/registration"
)

// Result of an analysis.
type Result struct {
	Plan        *registration.Plan
	Cycles      [][]model.TypeKey
	Diagnostics []diag.Diagnostic
}

// HasErrors returns true if any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}

// Emit all diagnostics to sink, in order.
func (r *Result) Emit(sink diag.Sink) {
	for _, d := range r.Diagnostics {
		sink.Report(d)
	}
}

type analyseOptions struct {
	logger      *slog.Logger
	concurrency int
}

type Option func(*analyseOptions)

// WithLogger sets the logger used to trace pipeline stages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *analyseOptions) { o.logger = logger }
}

// WithConcurrency limits the number of services analysed concurrently.
func WithConcurrency(n int) Option {
	return func(o *analyseOptions) { o.concurrency = n }
}

// Analyse source with cfg.
//
// Analysis always completes. Every finding, including a failure while analysing an individual
// service, is reported as a diagnostic, and the plan contains whatever remains valid. The
// result depends only on source and cfg.
func Analyse(source model.Source, cfg config.Config, options ...Option) *Result {
	opts := &analyseOptions{
		logger:      logging.Discard(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, option := range options {
		option(opts)
	}
	logger := opts.logger
	reporter := diag.NewReporter(cfg.Severity)

	for _, invalid := range source.Invalid() {
		rule := diag.InvalidDirective
		if invalid.Directive == "when" {
			rule = diag.MalformedCondition
		}
		reporter.Report(rule, invalid.Service, invalid.Position, invalid.Message)
	}

	graph := depgraph.Collect(source, cfg.Naming, reporter)
	logger.Debug("Collected dependencies", "services", len(graph.Order()))

	cycles := graph.Cycles(reporter)
	logger.Debug("Detected cycles", "cycles", len(cycles))

	table := lifetime.Resolve(graph, cfg.DefaultLifetime, reporter)
	if cfg.ValidateLifetimes {
		lifetime.Validate(graph, table, reporter)
		logger.Debug("Validated lifetimes")
	}

	decls := source.Declarations()
	plans := make([]*registration.ServicePlan, len(decls))
	reporters := make([]*diag.Reporter, len(decls))
	wg := errgroup.Group{}
	wg.SetLimit(max(opts.concurrency, 1))
	for i, decl := range decls {
		reporters[i] = reporter.Fork()
		wg.Go(func() error {
			plans[i] = planService(graph, decl, table[decl.Key], reporters[i])
			return nil
		})
	}
	_ = wg.Wait()

	result := &Result{Plan: &registration.Plan{}, Cycles: cycles}
	for i, plan := range plans {
		reporter.Merge(reporters[i])
		if plan != nil {
			result.Plan.Services = append(result.Plan.Services, plan)
		}
	}
	result.Diagnostics = reporter.Diagnostics()
	logger.Debug("Planned registrations", "services", len(result.Plan.Services), "diagnostics", len(result.Diagnostics))
	return result
}

// planService composes and plans a single service, converting a panic into a diagnostic.
func planService(graph *depgraph.Graph, decl *model.Declaration, assignment lifetime.Assignment, reporter *diag.Reporter) (plan *registration.ServicePlan) {
	defer func() {
		if err := recover(); err != nil {
			reporter.Report(diag.InternalError, decl.Key, decl.Position, err)
			plan = nil
		}
	}()
	condition := conditional.Compose(decl, reporter)
	return registration.PlanService(graph, decl, assignment, condition, reporter)
}

package conditional

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	. "github.com/alecthomas/zerodi/internal/model/modeltest" //nolint
)

const svc model.TypeKey = "app.PaymentGateway"

func compose(t *testing.T, requests ...model.ConditionRequest) (string, []diag.Code) {
	t.Helper()
	options := []Option{Lifetime(model.Scoped)}
	for _, request := range requests {
		options = append(options, When(request))
	}
	reporter := diag.NewReporter(nil)
	expr := Compose(Service(svc, options...), reporter)
	var codes []diag.Code
	for _, d := range reporter.Diagnostics() {
		codes = append(codes, d.Code)
	}
	return Render(expr), codes
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		requests []model.ConditionRequest
		expected string
		codes    []diag.Code
	}{
		{
			name:     "NoConditions",
			expected: "always",
		},
		{
			name:     "SingleEnvironment",
			requests: []model.ConditionRequest{{EnvEquals: []string{"Production"}}},
			expected: `env == "production"`,
		},
		{
			name:     "EnvironmentAlternatives",
			requests: []model.ConditionRequest{{EnvEquals: []string{"Production", "Staging"}}},
			expected: `(env == "production") OR (env == "staging")`,
		},
		{
			name:     "EnvironmentCaseInsensitiveDuplicates",
			requests: []model.ConditionRequest{{EnvEquals: []string{"Production", "PRODUCTION"}}},
			expected: `env == "production"`,
		},
		{
			name:     "EmptyEnvironmentName",
			requests: []model.ConditionRequest{{EnvEquals: []string{""}}},
			expected: `env == ""`,
		},
		{
			name:     "SingleExclusion",
			requests: []model.ConditionRequest{{EnvNotEquals: []string{"test"}}},
			expected: `env != "test"`,
		},
		{
			name:     "MultipleExclusions",
			requests: []model.ConditionRequest{{EnvNotEquals: []string{"test", "dev"}}},
			expected: `NOT ((env == "test") OR (env == "dev"))`,
		},
		{
			name: "EnvironmentRequiredAndExcluded",
			requests: []model.ConditionRequest{{
				EnvEquals:    []string{"production", "staging"},
				EnvNotEquals: []string{"Staging"},
			}},
			expected: `(env == "production") AND (env != "staging")`,
			codes:    []diag.Code{diag.ContradictoryCondition.Code},
		},
		{
			name: "ConfigEquals",
			requests: []model.ConditionRequest{{
				Config: &model.ConfigCondition{Key: "Feature:X", Equals: String("true")},
			}},
			expected: `config["Feature:X"] == "true"`,
		},
		{
			name: "ConfigEqualsAndNotEquals",
			requests: []model.ConditionRequest{{
				Config: &model.ConfigCondition{Key: "Mode", Equals: String("fast"), NotEquals: []string{"slow"}},
			}},
			expected: `(config["Mode"] == "fast") AND (config["Mode"] != "slow")`,
		},
		{
			name: "ConfigContradiction",
			requests: []model.ConditionRequest{{
				Config: &model.ConfigCondition{Key: "Feature:X", Equals: String("true"), NotEquals: []string{"true"}},
			}},
			expected: `config["Feature:X"] != "true"`,
			codes:    []diag.Code{diag.ContradictoryCondition.Code},
		},
		{
			name: "ConfigNoOp",
			requests: []model.ConditionRequest{{
				Config: &model.ConfigCondition{Key: "Feature:X"},
			}},
			expected: "always",
			codes:    []diag.Code{diag.NoOpConfigCondition.Code},
		},
		{
			name: "ConfigMissingKey",
			requests: []model.ConditionRequest{{
				EnvEquals: []string{"production"},
				Config:    &model.ConfigCondition{Equals: String("true")},
			}},
			expected: `env == "production"`,
			codes:    []diag.Code{diag.MalformedCondition.Code},
		},
		{
			name: "EnvironmentAndConfig",
			requests: []model.ConditionRequest{{
				EnvEquals:    []string{"production"},
				EnvNotEquals: []string{"eu"},
				Config:       &model.ConfigCondition{Key: "Payments", Equals: String("on")},
			}},
			expected: `(env == "production") AND (env != "eu") AND (config["Payments"] == "on")`,
		},
		{
			name: "MultipleRequestsMerged",
			requests: []model.ConditionRequest{
				{EnvEquals: []string{"production"}},
				{EnvEquals: []string{"staging"}, Config: &model.ConfigCondition{Key: "A", NotEquals: []string{"x"}}},
			},
			expected: `((env == "production") OR (env == "staging")) AND (config["A"] != "x")`,
			codes:    []diag.Code{diag.MultipleConditions.Code},
		},
		{
			name: "ConflictingConfigEqualsFirstWins",
			requests: []model.ConditionRequest{
				{Config: &model.ConfigCondition{Key: "A", Equals: String("1")}},
				{Config: &model.ConfigCondition{Key: "A", Equals: String("2")}},
			},
			expected: `config["A"] == "1"`,
			codes:    []diag.Code{diag.MultipleConditions.Code, diag.ContradictoryCondition.Code},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, codes := compose(t, tt.requests...)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestComposeContradictionMessage(t *testing.T) {
	reporter := diag.NewReporter(nil)
	Compose(Service(svc, When(model.ConditionRequest{
		Config: &model.ConfigCondition{Key: "Feature:X", Equals: String("true"), NotEquals: []string{"true"}},
	})), reporter)
	diagnostics := reporter.Diagnostics()
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, diag.Warning, diagnostics[0].Severity)
	assert.Equal(t, svc, diagnostics[0].Service)
	assert.Contains(t, diagnostics[0].Message, `"Feature:X" must both equal and not equal "true"`)
}

func TestComposeReportsAtContributingRequest(t *testing.T) {
	tests := []struct {
		name     string
		requests []model.ConditionRequest
		code     diag.Code
		line     int
	}{
		{
			name: "NoOpConfigInSecondRequest",
			requests: []model.ConditionRequest{
				{EnvEquals: []string{"production"}},
				{Config: &model.ConfigCondition{Key: "Feature:X"}},
			},
			code: diag.NoOpConfigCondition.Code,
			line: 4,
		},
		{
			name: "ConfigContradictionCompletedBySecondRequest",
			requests: []model.ConditionRequest{
				{Config: &model.ConfigCondition{Key: "Feature:X", Equals: String("true")}},
				{Config: &model.ConfigCondition{Key: "Feature:X", NotEquals: []string{"true"}}},
			},
			code: diag.ContradictoryCondition.Code,
			line: 4,
		},
		{
			name: "EnvironmentContradictionCompletedBySecondRequest",
			requests: []model.ConditionRequest{
				{EnvEquals: []string{"Test"}},
				{EnvNotEquals: []string{"test"}},
			},
			code: diag.ContradictoryCondition.Code,
			line: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := []Option{Lifetime(model.Scoped)}
			for _, request := range tt.requests {
				options = append(options, When(request))
			}
			reporter := diag.NewReporter(nil)
			Compose(Service(svc, options...), reporter)
			var found []diag.Diagnostic
			for _, d := range reporter.Diagnostics() {
				if d.Code == tt.code {
					found = append(found, d)
				}
			}
			assert.Equal(t, 1, len(found))
			assert.Equal(t, tt.line, found[0].Position.Line)
		})
	}
}

func TestNegate(t *testing.T) {
	assert.Equal(t, Expr(EnvMatch{Name: "a", Negated: true}), negate(EnvMatch{Name: "a"}))
	assert.Equal(t, Expr(EnvMatch{Name: "a"}), negate(Not{EnvMatch{Name: "a"}}))
	assert.Zero(t, negate(nil))
	assert.Equal(t, `NOT ((env == "a") OR (env == "b"))`, Render(negate(anyOf(EnvMatch{Name: "a"}, EnvMatch{Name: "b"}))))
}

func TestAllOfFlattens(t *testing.T) {
	e := allOf(nil, And{EnvMatch{Name: "a"}, EnvMatch{Name: "b"}}, ConfigMatch{Key: "k", Value: "v"})
	assert.Equal(t, Expr(And{EnvMatch{Name: "a"}, EnvMatch{Name: "b"}, ConfigMatch{Key: "k", Value: "v"}}), e)
	assert.Zero(t, allOf(nil, nil))
}

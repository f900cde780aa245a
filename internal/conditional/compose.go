package conditional

import (
	"slices"
	"strings"

	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
)

// configClause merges the clauses of one configuration key. The *From fields index the
// request that contributed each part.
type configClause struct {
	key           string
	from          int
	equals        *string
	equalsFrom    int
	notEquals     []string
	notEqualsFrom []int
}

// Compose the activation predicate of decl from its conditional-registration requests.
//
// A nil result means the service is always active. Composition proceeds as follows:
//
//  1. Requests are merged. Environment names are lower-cased and unioned per family, and
//     configuration clauses are grouped by key.
//  2. Environment equality terms are OR'd, inequality terms are OR'd and negated, and the two
//     families are AND'd. A name that is both required and excluded is only excluded.
//  3. A configuration key whose required value is also a forbidden value keeps only its
//     not-equals clause. Otherwise equals and not-equals clauses are AND'd. A key with
//     neither is ignored.
//  4. The environment and configuration groups are AND'd.
//
// Findings are reported at the request that completed them.
func Compose(decl *model.Declaration, reporter *diag.Reporter) Expr {
	requests := decl.Conditions()
	if len(requests) == 0 {
		return nil
	}
	if len(requests) > 1 {
		reporter.Report(diag.MultipleConditions, decl.Key, requests[1].Position, len(requests))
	}

	var (
		envEquals, envNotEquals []string
		clauses                 []*configClause
	)
	equalsFrom := map[string]int{}
	notEqualsFrom := map[string]int{}
	for i, request := range requests {
		envEquals = appendFolded(envEquals, equalsFrom, i, request.EnvEquals...)
		envNotEquals = appendFolded(envNotEquals, notEqualsFrom, i, request.EnvNotEquals...)
		if request.Config == nil {
			continue
		}
		config := request.Config
		key := strings.TrimSpace(config.Key)
		if key == "" {
			reporter.Report(diag.MalformedCondition, decl.Key, request.Position, "equals/not-equals without a configuration key")
			continue
		}
		index := slices.IndexFunc(clauses, func(c *configClause) bool { return c.key == key })
		if index < 0 {
			index = len(clauses)
			clauses = append(clauses, &configClause{key: key, from: i})
		}
		clause := clauses[index]
		if config.Equals != nil {
			if clause.equals != nil && *clause.equals != *config.Equals {
				reporter.Report(diag.ContradictoryCondition, decl.Key, request.Position,
					"configuration key "+quote(key)+" is required to equal both "+quote(*clause.equals)+" and "+quote(*config.Equals)+", using "+quote(*clause.equals))
			} else if clause.equals == nil {
				clause.equals = config.Equals
				clause.equalsFrom = i
			}
		}
		for _, value := range config.NotEquals {
			if !slices.Contains(clause.notEquals, value) {
				clause.notEquals = append(clause.notEquals, value)
				clause.notEqualsFrom = append(clause.notEqualsFrom, i)
			}
		}
	}

	envEquals = slices.DeleteFunc(envEquals, func(name string) bool {
		if !slices.Contains(envNotEquals, name) {
			return false
		}
		at := requests[max(equalsFrom[name], notEqualsFrom[name])].Position
		reporter.Report(diag.ContradictoryCondition, decl.Key, at,
			"environment "+quote(name)+" is both required and excluded, keeping only the exclusion")
		return true
	})

	terms := []Expr{
		anyOf(envTerms(envEquals)...),
		negate(anyOf(envTerms(envNotEquals)...)),
	}
	for _, clause := range clauses {
		terms = append(terms, composeConfig(decl, requests, clause, reporter))
	}
	return allOf(terms...)
}

func composeConfig(decl *model.Declaration, requests []*model.ConditionRequest, clause *configClause, reporter *diag.Reporter) Expr {
	if clause.equals == nil && len(clause.notEquals) == 0 {
		reporter.Report(diag.NoOpConfigCondition, decl.Key, requests[clause.from].Position, clause.key)
		return nil
	}
	var terms []Expr
	if clause.equals != nil {
		if index := slices.Index(clause.notEquals, *clause.equals); index >= 0 {
			at := requests[max(clause.equalsFrom, clause.notEqualsFrom[index])].Position
			reporter.Report(diag.ContradictoryCondition, decl.Key, at,
				"configuration key "+quote(clause.key)+" must both equal and not equal "+quote(*clause.equals)+", keeping only the not-equals clause")
		} else {
			terms = append(terms, ConfigMatch{Key: clause.key, Value: *clause.equals})
		}
	}
	for _, value := range clause.notEquals {
		terms = append(terms, ConfigMatch{Key: clause.key, Value: value, Negated: true})
	}
	return allOf(terms...)
}

func envTerms(names []string) []Expr {
	out := make([]Expr, 0, len(names))
	for _, name := range names {
		out = append(out, EnvMatch{Name: name})
	}
	return out
}

// appendFolded appends lower-cased names not already present, recording the request each came from.
func appendFolded(to []string, from map[string]int, request int, names ...string) []string {
	for _, name := range names {
		name = strings.ToLower(name)
		if !slices.Contains(to, name) {
			to = append(to, name)
			from[name] = request
		}
	}
	return to
}

func quote(s string) string { return `"` + s + `"` }

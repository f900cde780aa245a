// Package conditional composes the activation predicate of a service from its raw
// conditional-registration requests.
package conditional

import (
	"fmt"
	"strings"
)

// Always is the rendering of a service without conditions.
const Always = "always"

// Expr is a boolean activation predicate.
//
//sumtype:decl
type Expr interface {
	String() string
	expr()
}

// EnvMatch compares the (lower-cased) environment name.
type EnvMatch struct {
	Name    string
	Negated bool
}

func (EnvMatch) expr() {}
func (e EnvMatch) String() string {
	return fmt.Sprintf("env %s %q", operator(e.Negated), e.Name)
}

// ConfigMatch compares the value of a configuration key.
type ConfigMatch struct {
	Key     string
	Value   string
	Negated bool
}

func (ConfigMatch) expr() {}
func (c ConfigMatch) String() string {
	return fmt.Sprintf("config[%q] %s %q", c.Key, operator(c.Negated), c.Value)
}

// And is true if all of its terms are true.
type And []Expr

func (And) expr()            {}
func (a And) String() string { return join(a, " AND ") }

// Or is true if any of its terms is true.
type Or []Expr

func (Or) expr()            {}
func (o Or) String() string { return join(o, " OR ") }

// Not negates an expression.
type Not struct{ X Expr }

func (Not) expr()            {}
func (n Not) String() string { return "NOT (" + n.X.String() + ")" }

// Render an expression, or [Always] for nil.
func Render(e Expr) string {
	if e == nil {
		return Always
	}
	return e.String()
}

func operator(negated bool) string {
	if negated {
		return "!="
	}
	return "=="
}

// join parenthesises terms only when there is more than one.
func join[T ~[]Expr](terms T, op string) string {
	if len(terms) == 1 {
		return terms[0].String()
	}
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = "(" + term.String() + ")"
	}
	return strings.Join(parts, op)
}

// allOf returns the conjunction of terms, flattening nested conjunctions and dropping nils.
func allOf(terms ...Expr) Expr {
	var out And
	for _, term := range terms {
		switch term := term.(type) {
		case nil:
		case And:
			out = append(out, term...)
		default:
			out = append(out, term)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// anyOf returns the disjunction of terms, flattening nested disjunctions and dropping nils.
func anyOf(terms ...Expr) Expr {
	var out Or
	for _, term := range terms {
		switch term := term.(type) {
		case nil:
		case Or:
			out = append(out, term...)
		default:
			out = append(out, term)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// negate negates e, folding the negation into a single comparison where possible.
func negate(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case EnvMatch:
		e.Negated = !e.Negated
		return e
	case ConfigMatch:
		e.Negated = !e.Negated
		return e
	case Not:
		return e.X
	default:
		return Not{e}
	}
}

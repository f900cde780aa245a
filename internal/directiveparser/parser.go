// Package directiveparser implements a parser for zerodi's declaration directives.
package directiveparser

import (
	"strings"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/alecthomas/zerodi/internal/strcase"
)

var (
	annotationParser = participle.MustBuild[annotation](
		participle.Lexer(directiveLexer),
		participle.Union[Directive](
			&DirectiveLifetime{}, &DirectiveAbstract{}, &DirectiveConfig{}, &DirectiveInject{},
			&DirectiveWhen{}, &DirectiveExpose{}, &DirectiveSkip{},
		),
		participle.Elide("Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(\\.|[^"])*"`},
		{Name: "NotEq", Pattern: `!=`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*(-[a-zA-Z0-9_]+)*`},
		{Name: "Punct", Pattern: `[=*.,:]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})
)

type annotation struct {
	Directive Directive `parser:"'di' ':' @@"`
}

// Directive is a single parsed "//di:" comment.
//
//sumtype:decl
type Directive interface {
	directive()
	// Validate the directive.
	Validate() error
	String() string
}

// TypeRef is a reference to a named type, optionally package qualified.
type TypeRef struct {
	Pointer bool   `parser:"@'*'?"`
	Name    string `parser:"@Ident (@'.' @Ident)?"`
}

// Package returns the package qualifier of the reference, or "".
func (t *TypeRef) Package() string {
	pkg, _, ok := strings.Cut(t.Name, ".")
	if !ok {
		return ""
	}
	return pkg
}

// Ident returns the unqualified type name.
func (t *TypeRef) Ident() string {
	_, name, ok := strings.Cut(t.Name, ".")
	if !ok {
		return t.Name
	}
	return name
}

func (t *TypeRef) String() string {
	if t.Pointer {
		return "*" + t.Name
	}
	return t.Name
}

func typeRefs(refs []*TypeRef) string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return strings.Join(out, ", ")
}

// DirectiveLifetime is one of //di:singleton, //di:scoped or //di:transient.
type DirectiveLifetime struct {
	Lifetime string `parser:"@('singleton' | 'scoped' | 'transient')"`
}

func (d *DirectiveLifetime) directive()      {}
func (d *DirectiveLifetime) String() string  { return "di:" + d.Lifetime }
func (d *DirectiveLifetime) Validate() error { return nil }

type DirectiveAbstract struct {
	Abstract bool `parser:"@'abstract'"`
}

func (d *DirectiveAbstract) directive()      {}
func (d *DirectiveAbstract) String() string  { return "di:abstract" }
func (d *DirectiveAbstract) Validate() error { return nil }

// DirectiveConfig marks a struct whose fields are bound from configuration.
type DirectiveConfig struct {
	Config bool `parser:"@'config'"`
}

func (d *DirectiveConfig) directive()      {}
func (d *DirectiveConfig) String() string  { return "di:config" }
func (d *DirectiveConfig) Validate() error { return nil }

// DirectiveInject is an explicit dependency list.
type DirectiveInject struct {
	External bool       `parser:"'inject' ( @'external'"`
	Style    string     `parser:"         | 'style' '=' @Ident"`
	Strip    string     `parser:"         | @('strip' | 'keep')"`
	Prefix   *Prefix    `parser:"         | 'prefix' '=' @@ )*"`
	Types    []*TypeRef `parser:"(@@ (',' @@)*)?"`
}

// Prefix is a quoted member name prefix, which may be empty.
type Prefix struct {
	Value string `parser:"@String"`
}

func (d *DirectiveInject) directive() {}
func (d *DirectiveInject) String() string {
	out := "di:inject"
	if d.External {
		out += " external"
	}
	if d.Style != "" {
		out += " style=" + d.Style
	}
	if d.Strip != "" {
		out += " " + d.Strip
	}
	if d.Prefix != nil {
		out += ` prefix="` + d.Prefix.Value + `"`
	}
	if len(d.Types) > 0 {
		out += " " + typeRefs(d.Types)
	}
	return out
}

func (d *DirectiveInject) Validate() error {
	if len(d.Types) == 0 {
		return errors.Errorf("inject requires at least one type")
	}
	if d.Style != "" {
		var style strcase.Style
		if err := style.UnmarshalText([]byte(d.Style)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Naming returns the naming overrides of the directive.
func (d *DirectiveInject) Naming() strcase.Override {
	var override strcase.Override
	if d.Style != "" {
		_ = override.Style.UnmarshalText([]byte(d.Style))
	}
	if d.Strip != "" {
		strip := d.Strip == "strip"
		override.Strip = &strip
	}
	if d.Prefix != nil {
		prefix := d.Prefix.Value
		override.Prefix = &prefix
	}
	return override
}

// DirectiveWhen is a single conditional-registration request.
type DirectiveWhen struct {
	Clauses []*WhenClause `parser:"'when' @@*"`
}

// WhenClause is one key/value pair of a //di:when directive.
type WhenClause struct {
	Key   string `parser:"@('env' | 'config' | 'equals' | 'not-equals')"`
	Op    string `parser:"@('=' | NotEq)"`
	Value string `parser:"@String"`
}

func (w *WhenClause) String() string { return w.Key + w.Op + `"` + w.Value + `"` }

func (d *DirectiveWhen) directive() {}
func (d *DirectiveWhen) String() string {
	out := "di:when"
	for _, clause := range d.Clauses {
		out += " " + clause.String()
	}
	return out
}

func (d *DirectiveWhen) Validate() error {
	if len(d.Clauses) == 0 {
		return errors.Errorf("when requires at least one clause")
	}
	seen := map[string]bool{}
	for _, clause := range d.Clauses {
		if clause.Op == "!=" && clause.Key != "env" {
			return errors.Errorf("%s does not support !=", clause.Key)
		}
		id := clause.Key + clause.Op
		if seen[id] {
			return errors.Errorf("duplicate clause %s", id)
		}
		seen[id] = true
	}
	return nil
}

// Clause returns the clause with the given key and operator, if present.
func (d *DirectiveWhen) Clause(key, op string) (*WhenClause, bool) {
	for _, clause := range d.Clauses {
		if clause.Key == key && clause.Op == op {
			return clause, true
		}
	}
	return nil, false
}

// DirectiveExpose requests bindings of a service.
type DirectiveExpose struct {
	Mode    string     `parser:"'expose' ( @('self' | 'interfaces' | 'all')"`
	Sharing string     `parser:"         | @('shared' | 'separate') )*"`
	Types   []*TypeRef `parser:"(@@ (',' @@)*)?"`
}

func (d *DirectiveExpose) directive() {}
func (d *DirectiveExpose) String() string {
	out := "di:expose"
	if d.Mode != "" {
		out += " " + d.Mode
	}
	if d.Sharing != "" {
		out += " " + d.Sharing
	}
	if len(d.Types) > 0 {
		out += " " + typeRefs(d.Types)
	}
	return out
}

func (d *DirectiveExpose) Validate() error {
	if d.Mode == "self" && len(d.Types) > 0 {
		return errors.Errorf("expose self does not accept interfaces")
	}
	return nil
}

// DirectiveSkip suppresses the named bindings, or all bindings.
type DirectiveSkip struct {
	Skip  bool       `parser:"@'skip'"`
	Types []*TypeRef `parser:"(@@ (',' @@)*)?"`
}

func (d *DirectiveSkip) directive() {}
func (d *DirectiveSkip) String() string {
	if len(d.Types) == 0 {
		return "di:skip"
	}
	return "di:skip " + typeRefs(d.Types)
}
func (d *DirectiveSkip) Validate() error { return nil }

// IsDirective reports whether a comment line (without the leading "//") is a zerodi directive.
func IsDirective(text string) bool {
	return strings.HasPrefix(text, "di:")
}

// Parse a zerodi directive, eg. "di:inject Logger".
func Parse(text string) (Directive, error) {
	if text == "" {
		return nil, errors.Errorf("empty directive")
	}
	result, err := annotationParser.ParseString("", text)
	if err != nil {
		return nil, errors.Errorf("failed to parse directive: %w", err)
	}
	directive := result.Directive
	if err := directive.Validate(); err != nil {
		return nil, errors.Errorf("%s: %w", text, err)
	}
	return directive, nil
}

// SplitList splits a comma separated directive value, trimming whitespace.
//
// An empty value yields a single empty element.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// Package strcase derives injected member names from type names.
package strcase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/errors"
)

// Style is a case transform applied to a type name.
type Style string

const (
	// Camel lower-cases the initial rune, eg. "UserStore" -> "userStore".
	Camel Style = "camel"
	// Pascal leaves the name unchanged.
	Pascal Style = "pascal"
	// Snake splits before every internal uppercase rune and lower-cases, eg. "UserStore" -> "user_store".
	Snake Style = "snake"
)

func (s *Style) UnmarshalText(text []byte) error {
	switch style := Style(strings.ToLower(string(text))); style {
	case Camel, Pascal, Snake:
		*s = style
		return nil
	default:
		return errors.Errorf("unknown naming style %q, expected camel, pascal or snake", text)
	}
}

func (s Style) MarshalText() ([]byte, error) { return []byte(s), nil }

// Naming is the naming convention used for members injected from an explicit dependency list.
type Naming struct {
	Style  Style  `help:"Case style of injected member names (${enum})." enum:"camel,pascal,snake" default:"camel"`
	Strip  bool   `help:"Strip a leading interface marker (eg. the I in ILogger)." default:"true" negatable:""`
	Prefix string `help:"Prefix prepended to injected member names." default:"_"`
}

// DefaultNaming is the convention used when nothing is configured.
func DefaultNaming() Naming {
	return Naming{Style: Camel, Strip: true, Prefix: "_"}
}

// Override selectively replaces fields of a [Naming].
type Override struct {
	Style  Style
	Strip  *bool
	Prefix *string
}

// With returns a copy of n with the non-zero fields of override applied.
func (n Naming) With(override Override) Naming {
	if override.Style != "" {
		n.Style = override.Style
	}
	if override.Strip != nil {
		n.Strip = *override.Strip
	}
	if override.Prefix != nil {
		n.Prefix = *override.Prefix
	}
	return n
}

// MemberName derives the member name for a type with the given simple name.
//
// The result depends only on name and n.
func (n Naming) MemberName(name string) string {
	if n.Strip {
		name = StripMarker(name)
	}
	switch n.Style {
	case Pascal:
	case Snake:
		name = ToSnake(name)
	default:
		name = ToCamel(name)
	}
	return n.Prefix + name
}

// StripMarker removes a single leading "I" when it is followed by an uppercase rune.
func StripMarker(name string) string {
	rest, ok := strings.CutPrefix(name, "I")
	if !ok {
		return name
	}
	next, _ := utf8.DecodeRuneInString(rest)
	if next == utf8.RuneError || !unicode.IsUpper(next) {
		return name
	}
	return rest
}

// ToCamel lower-cases the initial rune of name.
func ToCamel(name string) string {
	first, size := utf8.DecodeRuneInString(name)
	if first == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(first)) + name[size:]
}

// ToSnake inserts an underscore before every uppercase rune that is not the first rune, then lower-cases.
func ToSnake(name string) string {
	out := strings.Builder{}
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			out.WriteByte('_')
		}
		out.WriteRune(unicode.ToLower(r))
	}
	return out.String()
}

// Package diag defines the findings reported while analysing declarations.
package diag

import (
	"context"
	"fmt"
	"go/token"
	"log/slog"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/zerodi/internal/model"
)

// Severity of a [Diagnostic].
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = Info
	case "warning", "warn":
		*s = Warning
	case "error":
		*s = Error
	default:
		return errors.Errorf("unknown severity %q, expected info, warning or error", text)
	}
	return nil
}

// Code is the stable machine-readable identifier of a [Rule].
type Code string

// Rule describes one kind of finding.
type Rule struct {
	Code     Code
	Severity Severity
	// Format is a fmt template for the message.
	Format string
}

// Diagnostic is a single finding against a service.
type Diagnostic struct {
	Code     Code           `json:"code"`
	Severity Severity       `json:"severity"`
	Service  model.TypeKey  `json:"service"`
	Position token.Position `json:"position"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s[%s]: %s", d.Position, d.Severity, d.Code, d.Message)
}

// A Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Reporter accumulates diagnostics, applying severity overrides.
//
// A Reporter is not safe for concurrent use; use [Reporter.Fork] to obtain an independent
// Reporter per goroutine and [Reporter.Merge] to combine them in a deterministic order.
type Reporter struct {
	overrides   map[Code]Severity
	diagnostics []Diagnostic
}

// NewReporter creates a Reporter with per-code severity overrides.
func NewReporter(overrides map[Code]Severity) *Reporter {
	return &Reporter{overrides: overrides}
}

// Report a finding of rule against service.
func (r *Reporter) Report(rule Rule, service model.TypeKey, pos token.Position, args ...any) {
	severity := rule.Severity
	if override, ok := r.overrides[rule.Code]; ok {
		severity = override
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Code:     rule.Code,
		Severity: severity,
		Service:  service,
		Position: pos,
		Message:  fmt.Sprintf(rule.Format, args...),
	})
}

// Fork returns an empty Reporter sharing r's overrides.
func (r *Reporter) Fork() *Reporter { return &Reporter{overrides: r.overrides} }

// Merge appends the diagnostics of other to r.
func (r *Reporter) Merge(other *Reporter) {
	r.diagnostics = append(r.diagnostics, other.diagnostics...)
}

// Diagnostics returns all diagnostics reported so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diagnostics }

// LogSink writes diagnostics to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(logger *slog.Logger) *LogSink { return &LogSink{logger: logger} }

func (l *LogSink) Report(d Diagnostic) {
	level := slog.LevelInfo
	switch d.Severity {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, d.Message,
		slog.String("code", string(d.Code)),
		slog.String("service", string(d.Service)),
		slog.String("pos", d.Position.String()),
	)
}

// Package render writes analysis results for consumption by people and code emitters.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/zerodi/internal/depgraph"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/registration"
)

// writer buffers indented lines.
type writer struct {
	indent string
	b      strings.Builder
}

// L writes a formatted line at the current indentation.
func (w *writer) L(format string, args ...any) {
	w.b.WriteString(w.indent)
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// In runs fn with the indentation increased.
func (w *writer) In(fn func(w *writer)) {
	w.indent += "  "
	fn(w)
	w.indent = w.indent[:len(w.indent)-2]
}

func (w *writer) flush(out io.Writer) error {
	_, err := io.WriteString(out, w.b.String())
	return errors.WithStack(err)
}

// Text writes a human-readable rendering of plan.
func Text(out io.Writer, plan *registration.Plan) error {
	w := &writer{}
	for i, service := range plan.Services {
		if i > 0 {
			w.L("")
		}
		w.L("%s %s when %s", service.Service, service.Lifetime, service.Condition)
		w.In(func(w *writer) {
			for _, base := range service.Bases {
				w.L("extends %s", base)
			}
			switch {
			case service.Abstract:
				w.L("abstract")
			case len(service.Entries) == 0:
				w.L("not registered")
			}
			for _, entry := range service.Entries {
				if entry.Shared {
					w.L("register %s shared", entry.Exposed)
				} else {
					w.L("register %s", entry.Exposed)
				}
			}
			for _, edge := range service.Dependencies {
				w.L("inject %s as %s (%s)", edge.Capability, edge.Member, describe(edge))
			}
		})
	}
	return w.flush(out)
}

func describe(edge depgraph.Edge) string {
	parts := []string{edge.Source.String()}
	if edge.Level > 0 {
		parts = append(parts, fmt.Sprintf("from %s, level %d", edge.Origin, edge.Level))
	}
	if edge.External {
		parts = append(parts, "external")
	}
	return strings.Join(parts, ", ")
}

// Dependencies writes the merged dependency list of each service.
func Dependencies(out io.Writer, plan *registration.Plan) error {
	w := &writer{}
	for _, service := range plan.Services {
		w.L("%s", service.Service)
		w.In(func(w *writer) {
			for _, edge := range service.Dependencies {
				w.L("%s", edge.Capability)
			}
		})
	}
	return w.flush(out)
}

// JSON writes plan as indented JSON.
func JSON(out io.Writer, plan *registration.Plan) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(plan))
}

// Diagnostics writes one compiler-style line per diagnostic.
func Diagnostics(out io.Writer, diagnostics []diag.Diagnostic) error {
	w := &writer{}
	for _, d := range diagnostics {
		w.L("%s", d)
	}
	return w.flush(out)
}

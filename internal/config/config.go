// Package config contains the build-wide settings of an analysis.
package config

import (
	"maps"
	"slices"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	"github.com/alecthomas/zerodi/internal/strcase"
)

// Config is read once before analysis and never modified during it.
type Config struct {
	DefaultLifetime   model.Lifetime              `help:"Lifetime of services that declare none (transient, scoped or singleton)." default:"scoped"`
	Naming            strcase.Naming              `embed:"" prefix:"naming-"`
	Severity          map[diag.Code]diag.Severity `help:"Override the severity of a diagnostic code." placeholder:"CODE=SEVERITY"`
	ValidateLifetimes bool                        `help:"Check that singletons do not depend on shorter-lived services." default:"true" negatable:""`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		DefaultLifetime:   model.Scoped,
		Naming:            strcase.DefaultNaming(),
		ValidateLifetimes: true,
	}
}

// Validate the configuration.
func (c Config) Validate() error {
	if c.DefaultLifetime == model.LifetimeNone {
		return errors.Errorf("default lifetime must be one of transient, scoped or singleton")
	}
	for _, code := range slices.Sorted(maps.Keys(c.Severity)) {
		if !slices.ContainsFunc(diag.Rules, func(rule diag.Rule) bool { return rule.Code == code }) {
			return errors.Errorf("severity override for unknown diagnostic code %q", code)
		}
	}
	return nil
}

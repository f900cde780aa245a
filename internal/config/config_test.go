package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"

	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/model"
	"github.com/alecthomas/zerodi/internal/strcase"
)

func parse(t *testing.T, args []string, options ...kong.Option) Config {
	t.Helper()
	var cli struct {
		Config `embed:""`
	}
	parser, err := kong.New(&cli, append([]kong.Option{kong.Exit(func(int) { t.Fatal("exit") })}, options...)...)
	assert.NoError(t, err)
	_, err = parser.Parse(args)
	assert.NoError(t, err)
	return cli.Config
}

func TestFlagDefaultsMatchDefault(t *testing.T) {
	cfg := parse(t, nil)
	assert.Equal(t, Default().DefaultLifetime, cfg.DefaultLifetime)
	assert.Equal(t, Default().Naming, cfg.Naming)
	assert.Equal(t, Default().ValidateLifetimes, cfg.ValidateLifetimes)
	assert.NoError(t, cfg.Validate())
}

func TestFlags(t *testing.T) {
	cfg := parse(t, []string{
		"--default-lifetime=singleton",
		"--naming-style=snake",
		"--no-naming-strip",
		"--severity=DI0005=error",
		"--no-validate-lifetimes",
	})
	assert.Equal(t, model.Singleton, cfg.DefaultLifetime)
	assert.Equal(t, strcase.Naming{Style: strcase.Snake, Strip: false, Prefix: "_"}, cfg.Naming)
	assert.Equal(t, map[diag.Code]diag.Severity{"DI0005": diag.Error}, cfg.Severity)
	assert.False(t, cfg.ValidateLifetimes)
}

func TestTOMLConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".zerodi.toml")
	err := os.WriteFile(path, []byte(`
default-lifetime = "transient"
validate-lifetimes = false
`), 0600)
	assert.NoError(t, err)
	cfg := parse(t, nil, kong.Configuration(kongtoml.Loader, path))
	assert.Equal(t, model.Transient, cfg.DefaultLifetime)
	assert.False(t, cfg.ValidateLifetimes)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Severity = map[diag.Code]diag.Severity{"DI9999": diag.Error}
	assert.EqualError(t, cfg.Validate(), `severity override for unknown diagnostic code "DI9999"`)

	cfg = Default()
	cfg.DefaultLifetime = model.LifetimeNone
	assert.Error(t, cfg.Validate())
}

package main

import (
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	"github.com/kballard/go-shellquote"

	"github.com/alecthomas/zerodi/internal/config"
	"github.com/alecthomas/zerodi/internal/diag"
	"github.com/alecthomas/zerodi/internal/engine"
	"github.com/alecthomas/zerodi/internal/loader"
	"github.com/alecthomas/zerodi/internal/logging"
	"github.com/alecthomas/zerodi/internal/render"
)

var cli struct {
	Version     kong.VersionFlag   `help:"Print the version and exit."`
	Chdir       kong.ChangeDirFlag `help:"Change to this directory before running." placeholder:"DIR" short:"C"`
	Config      kong.ConfigFlag    `help:"Load configuration from this TOML file." placeholder:"FILE"`
	Debug       bool               `help:"Enable debug logging."`
	Log         logging.Config     `embed:"" prefix:"log-"`
	Tags        []string           `help:"Tags to enable during type analysis (will also be read from $GOFLAGS)." placeholder:"TAG"`
	Format      string             `help:"Output format of the registration plan (${enum})." enum:"text,json" default:"text"`
	List        bool               `help:"List the merged dependencies of each service." xor:"action"`
	Check       bool               `help:"Only report diagnostics." xor:"action"`
	Concurrency int                `help:"Number of services to analyse concurrently (0 for GOMAXPROCS)." default:"0"`
	Analysis    config.Config      `embed:""`
	Patterns    []string           `help:"Package patterns to analyse." arg:"" optional:""`
}

func main() {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		version = info.Main.Version
	}
	kctx := kong.Parse(&cli,
		kong.Description("Statically resolve and validate dependency-injection declarations."),
		kong.Vars{"version": version},
		kong.Configuration(kongtoml.Loader, ".zerodi.toml"),
	)
	kctx.FatalIfErrorf(cli.Analysis.Validate())

	if cli.Debug {
		cli.Log.Level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, cli.Log)

	// Combine explicit tags and tags from GOFLAGS
	tags := append(cli.Tags, parseGoTags()...)

	set, err := loader.Load(
		loader.WithPatterns(cli.Patterns...),
		loader.WithTags(tags...),
		loader.WithLogger(logger),
	)
	kctx.FatalIfErrorf(err)

	options := []engine.Option{engine.WithLogger(logger)}
	if cli.Concurrency > 0 {
		options = append(options, engine.WithConcurrency(cli.Concurrency))
	}
	result := engine.Analyse(set, cli.Analysis, options...)

	if cli.Log.JSON {
		result.Emit(diag.NewLogSink(logger))
	} else {
		err = render.Diagnostics(os.Stderr, result.Diagnostics)
		kctx.FatalIfErrorf(err)
	}

	switch {
	case cli.Check:
	case cli.List:
		err = render.Dependencies(os.Stdout, result.Plan)
	case cli.Format == "json":
		err = render.JSON(os.Stdout, result.Plan)
	default:
		err = render.Text(os.Stdout, result.Plan)
	}
	kctx.FatalIfErrorf(err)

	if result.HasErrors() {
		kctx.Exit(1)
	}
}

func parseGoTags() []string {
	goFlags := os.Getenv("GOFLAGS")
	words, err := shellquote.Split(goFlags)
	if err != nil {
		return nil
	}
	tags := []string{}
	for _, word := range words {
		if strings.HasPrefix(word, "-tags=") {
			tags = append(tags, strings.Split(word[6:], ",")...)
		} else if strings.HasPrefix(word, "--tags=") {
			tags = append(tags, strings.Split(word[7:], ",")...)
		}
	}
	return tags
}

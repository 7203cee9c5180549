// Package cli implements the relnet command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relnet/pkg/buildinfo"
	"github.com/matzehuels/relnet/pkg/cache"
	"github.com/matzehuels/relnet/pkg/errors"
	"github.com/matzehuels/relnet/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "relnet"

	// defaultMongoDatabase and defaultMongoCollection hold the shared cache
	// when --mongo is given without a database in the URI.
	defaultMongoDatabase   = "relnet"
	defaultMongoCollection = "cache"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// Process exit codes returned by [ExitCode].
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitDocument    = 3
	ExitImages      = 4
	ExitInterrupted = 130
)

// ExitCode maps an error to the process exit code: usage errors, rejected
// documents and image or network failures are told apart for scripts.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if stderrors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath, errors.ErrCodeFileNotFound:
		return ExitUsage
	case errors.ErrCodeStructure, errors.ErrCodeConfig:
		return ExitDocument
	case errors.ErrCodeImageProvider, errors.ErrCodeNetwork, errors.ErrCodeTimeout:
		return ExitImages
	}
	return ExitFailure
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "relnet compiles relationship documents into network diagrams",
		Long: `relnet reads a YAML or TOML document describing sequences, branches,
merges and cliques between named entities, compiles it into a graph with
cascading node and edge attributes, and renders it as SVG, PNG, DOT or JSON.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the cache backend for a command.
type cacheFlags struct {
	noCache bool
	redis   string
	mongo   string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&f.redis, "redis", "", "use a Redis cache (host:port or redis:// URL)")
	cmd.Flags().StringVar(&f.mongo, "mongo", "", "use a MongoDB cache (mongodb:// URI)")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, flags cacheFlags) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, flags)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(backend, nil, c.Logger), nil
}

// newCache opens the backend selected by flags. The local file cache is the
// default; if its directory cannot be determined caching is disabled.
func (c *CLI) newCache(ctx context.Context, flags cacheFlags) (cache.Cache, error) {
	switch {
	case flags.noCache:
		return cache.NewNullCache(), nil
	case flags.redis != "":
		c.Logger.Debug("using redis cache", "addr", flags.redis)
		return cache.DialRedis(ctx, flags.redis)
	case flags.mongo != "":
		c.Logger.Debug("using mongodb cache", "database", defaultMongoDatabase)
		return cache.DialMongo(ctx, flags.mongo, defaultMongoDatabase, defaultMongoCollection)
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/relnet/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// outputPath names the artifact after the input's base name.
// network.yaml with format svg becomes network.svg next to the input.
func outputPath(input, format string) string {
	base := filepath.Base(input)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(filepath.Dir(input), stem+"."+format)
}

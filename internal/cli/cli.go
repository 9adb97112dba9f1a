// Package cli implements the onnxgraph command-line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/onnxgraph/pkg/buildinfo"
	"github.com/matzehuels/onnxgraph/pkg/cache"
	"github.com/matzehuels/onnxgraph/pkg/config"
	"github.com/matzehuels/onnxgraph/pkg/observability"
	"github.com/matzehuels/onnxgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger and built-in
// settings. The config file is read in the root command's pre-run.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level. At debug level every pipeline
// and cache event is logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetPipelineHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "onnxgraph edits ONNX models as node graphs",
		Long: `onnxgraph imports ONNX models into a visual node graph, lays them out,
renders them as diagrams and exports them back to checked ONNX models.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/onnxgraph/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the layout and render cache")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.configPath, "cache", cfg.Cache.Enabled)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped
// by build version.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	store, err := c.newCache()
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache || !c.Config.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	dir, err := c.Config.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

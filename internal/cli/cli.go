// Package cli implements the sceneguard command-line interface.
//
// # Commands
//
//   - layout: place a scene file's objects and write the layout JSON
//   - monitor: lay out a scene, run the overlap monitor for a while, report
//   - watch: the same as monitor, with a live terminal view
//   - serve: run the HTTP API
//   - plot: draw a scene's footprints as PNG or SVG
//   - conflicts: draw a scene's overlaps as a Graphviz graph
//   - config: print or write the default configuration
//   - cache: manage the layout cache
//
// Every command reads an optional TOML configuration (--config) and supports
// --verbose for debug logging via charmbracelet/log.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/buildinfo"
	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "sceneguard"

	// configEnv names a config file when --config is not given.
	configEnv = "SCENEGUARD_CONFIG"
)

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

	configPath string
}

// New creates a new CLI instance with a default logger.
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
		Use:          appName,
		Short:        "Sceneguard lays out animation scenes and keeps them free of overlaps",
		Long:         `Sceneguard places visual elements on a bounded canvas, detects spatial conflicts between them as a scene evolves, and corrects those conflicts while the animation is being assembled.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $"+configEnv+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.monitorCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.plotCommand())
	root.AddCommand(c.conflictsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config and Runner Factory
// =============================================================================

// loadConfig reads --config, then $SCENEGUARD_CONFIG, falling back to the
// defaults when neither is set.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("loaded config", "path", path)
	return cfg, nil
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(cmd *cobra.Command, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	lc, err := c.newCache(cmd, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(lc, nil, c.Logger), nil
}

func (c *CLI) newCache(cmd *cobra.Command, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	lc, err := cache.Open(cmd.Context(), cfg.Cache)
	if err != nil {
		// A broken cache should not block layout work.
		c.Logger.Warn("cache unavailable, continuing without it", "backend", cfg.Cache.Backend, "err", err)
		return cache.NewNullCache(), nil
	}
	return lc, nil
}

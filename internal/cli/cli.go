// Package cli implements the sink command-line interface.
//
// This package provides commands for declaring GitHub release dependencies
// in a sink.toml manifest, installing them, and inspecting the effective
// configuration. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - github add: Declare and install a dependency from a GitHub release
//   - install: Download declared dependencies
//   - remove: Drop a dependency from the manifest
//   - config: Inspect the manifest and effective settings
//   - cache: Manage the GitHub response cache
//
// All commands support --verbose (-v) for debug-level logging and --manifest
// to point at a manifest other than ./sink.toml.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sink-tools/sink/pkg/buildinfo"
	"github.com/sink-tools/sink/pkg/cache"
	"github.com/sink-tools/sink/pkg/github"
	"github.com/sink-tools/sink/pkg/manifest"
)

const (
	// appName is the application name used for directories and display.
	appName = "sink"

	// sectionGitHub is the manifest section all GitHub dependencies live in.
	sectionGitHub = "GitHub"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	settings *Settings

	manifestFlag string
}

// New creates a new CLI instance with a default logger and settings loaded
// from the environment.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:   newLogger(w, level),
		settings: LoadSettings(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Sink installs versioned assets from GitHub releases",
		Long:         `Sink manages a declarative TOML manifest of GitHub release dependencies and installs the matching release assets into your project.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.manifestFlag, "manifest", "m", "",
		"path to the manifest (default ./sink.toml, overridable with SINK_MANIFEST)")

	root.AddCommand(c.githubCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// manifestPath resolves the manifest location: the --manifest flag, then the
// SINK_MANIFEST environment variable, then ./sink.toml.
func (c *CLI) manifestPath() string {
	if c.manifestFlag != "" {
		return c.manifestFlag
	}
	return c.settings.Manifest
}

// loadManifest loads and validates the manifest the current invocation
// operates on.
func (c *CLI) loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(c.manifestPath(), c.Logger)
}

// newInstaller builds the GitHub installer with the configured cache
// backend. The returned cleanup releases the backend's resources, such as
// the Redis connection pool, and must be called when the command is done.
func (c *CLI) newInstaller(ctx context.Context) (*github.Installer, func()) {
	store := c.newCache(ctx)
	client := github.NewClient(c.settings.Token, store, c.settings.CacheTTL)
	return github.NewInstaller(client, c.Logger), func() { _ = store.Close() }
}

func (c *CLI) newCache(ctx context.Context) cache.Cache {
	if c.settings.NoCache {
		return cache.NewNullCache()
	}
	if c.settings.RedisAddr != "" {
		store, err := cache.NewRedisCache(ctx, c.settings.RedisAddr)
		if err == nil {
			return store
		}
		c.Logger.Warn("Redis cache unavailable, falling back to file cache",
			"addr", c.settings.RedisAddr, "err", err)
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return store
}

// cacheDir returns the cache directory: the configured override, else the
// XDG standard location (~/.cache/sink/).
func (c *CLI) cacheDir() (string, error) {
	if c.settings.CacheDir != "" {
		return c.settings.CacheDir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

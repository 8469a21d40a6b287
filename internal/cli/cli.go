// Package cli implements the sparsetree command-line interface.
//
// The CLI reads TOML layout manifests (see package manifest), builds and
// finalizes the layout tree they describe, and then prints, queries,
// renders or exports it.
//
// # Commands
//
//   - build: build a layout, print a summary and optionally a dump or JSON snapshot
//   - query: print the structural properties of placed fields
//   - render: draw the layout tree as DOT, SVG, PDF or PNG
//   - explore: browse the layout tree interactively
//   - serve: expose a directory of manifests over HTTP
//   - cache: manage the render artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which shows
// extent promotions, shared-exponent sessions and finalization timing.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sparsetree/pkg/buildinfo"
	"github.com/matzehuels/sparsetree/pkg/cache"
	"github.com/matzehuels/sparsetree/pkg/manifest"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "sparsetree"

	// Output formats for the render command.
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"

	// Environment variables consulted when the matching flag is unset.
	envCacheURL = "SPARSETREE_CACHE_URL"
	envMongoURI = "SPARSETREE_MONGO_URI"
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
		Short:        "Sparsetree builds and inspects sparse data-layout trees",
		Long:         `Sparsetree builds hierarchical sparse/dense data-layout trees from TOML manifests and inspects the resulting layout: extents, sparsity, packed bit fields, shared exponents and gradients.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.queryCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadLayout reads, builds and finalizes the manifest at path.
func (c *CLI) loadLayout(path string) (*manifest.Layout, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return manifest.Build(m, manifest.WithLogger(c.Logger))
}

// newCache opens the artifact cache: location when given (a redis:// URL
// or a directory), else $SPARSETREE_CACHE_URL, else the XDG cache directory.
func newCache(ctx context.Context, noCache bool, location string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if location == "" {
		location = os.Getenv(envCacheURL)
	}
	if location != "" {
		return cache.Open(ctx, location)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/sparsetree/).
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

// layoutName returns the manifest's name, or its file name without
// extension when the manifest has none.
func layoutName(l *manifest.Layout, path string) string {
	if l.Name != "" {
		return l.Name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	return strings.Split(s, ",")
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sparsetree/pkg/cache"
	"github.com/matzehuels/sparsetree/pkg/render"
	"github.com/matzehuels/sparsetree/pkg/render/nodelink"
)

const defaultScale = 2.0 // PNG pixel density

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (multiple)
	formats  []string // output formats: dot, svg, pdf, png
	detailed bool     // show per-axis extents in node labels
	noCache  bool     // bypass the artifact cache
	cacheURL string   // redis:// URL or directory of a shared cache
	scale    float64  // PNG scale factor
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: defaultScale}

	cmd := &cobra.Command{
		Use:   "render <manifest>",
		Short: "Draw a layout tree as DOT, SVG, PDF or PNG",
		Long: `Build a manifest and draw its layout tree as a node-link diagram.

Containers that need activation are highlighted, leaves are colored, and
packed members are dashed. Dotted edges connect custom-float leaves to
their exponent leaf. PDF and PNG output requires rsvg-convert.`,
		Example: `  sparsetree render particles.toml
  sparsetree render particles.toml -f svg,png --detailed -o out/particles`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show per-axis extents and cell counts")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().StringVar(&opts.cacheURL, "cache-url", "", "shared cache: redis:// URL or directory (default $"+envCacheURL+")")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{formatDOT: true, formatSVG: true, formatPDF: true, formatPNG: true}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'pdf', or 'png')", f)
		}
	}
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. A known format
// extension on output is stripped as well.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns the file a format is written to. A single format
// honors an explicit output path as given.
func outputPath(opts renderOpts, input, format string) string {
	if len(opts.formats) == 1 && opts.output != "" && filepath.Ext(opts.output) != "" {
		return opts.output
	}
	return basePath(opts.output, input) + "." + format
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	prog := newProgress(c.Logger)
	l, err := c.loadLayout(input)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built %s", layoutName(l, input)))

	dot := nodelink.ToDOT(l.Tree, nodelink.Options{Detailed: opts.detailed})
	c.Logger.Debugf("Generated DOT: %d bytes", len(dot))

	store, err := newCache(ctx, opts.noCache, opts.cacheURL)
	if err != nil {
		return err
	}
	defer store.Close()

	var paths []string
	for _, format := range opts.formats {
		data, cached, err := c.renderArtifact(ctx, store, dot, format, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := outputPath(opts, input, format)
		if err := writeOutput(path, data); err != nil {
			return err
		}
		c.Logger.Debug("artifact written", "path", path, "bytes", len(data), "cached", cached)
		paths = append(paths, path)
	}

	printSuccess("Rendered %s", StyleTitle.Render(layoutName(l, input)))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// renderArtifact returns the artifact for one format, from the cache when
// possible. It reports whether the artifact came from the cache.
func (c *CLI) renderArtifact(ctx context.Context, store cache.Cache, dot, format string, opts renderOpts) ([]byte, bool, error) {
	if format == formatDOT {
		return []byte(dot), false, nil
	}

	key := cache.ArtifactKey(dot, cache.ArtifactKeyOpts{Format: format, Detailed: opts.detailed, Scale: opts.scale})
	if data, ok, err := store.Get(ctx, key); err == nil && ok {
		c.Logger.Debugf("Cache hit for %s", format)
		return data, true, nil
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", format))
	spinner.Start()
	data, err := renderFormat(ctx, dot, format, opts.scale)
	spinner.Stop()
	if err != nil {
		return nil, false, err
	}

	if err := store.Set(ctx, key, data, 0); err != nil {
		c.Logger.Warn("cache write failed", "format", format, "error", err)
	}
	return data, false, nil
}

func renderFormat(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case formatSVG:
		return svg, nil
	case formatPDF:
		return render.ToPDF(ctx, svg)
	case formatPNG:
		return render.ToPNG(ctx, svg, scale)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

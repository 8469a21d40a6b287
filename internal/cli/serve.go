package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sparsetree/internal/server"
)

const shutdownTimeout = 10 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string // listen address
	noCache  bool   // bypass the artifact cache
	cacheURL string // redis:// URL or directory of a shared cache
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: "localhost:8080"}

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve a directory of layout manifests over HTTP",
		Long: `Serve every <name>.toml manifest in a directory as a read-only HTTP API:
snapshots, dumps, per-field layouts and node-link diagrams. Manifests are
rebuilt on each request, so edits show up without a restart.`,
		Example: `  sparsetree serve examples/layouts --addr :8080
  curl localhost:8080/layouts/particles/fields/x`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().StringVar(&opts.cacheURL, "cache-url", "", "shared cache: redis:// URL or directory (default $"+envCacheURL+")")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, dir string, opts serveOpts) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	store, err := newCache(ctx, opts.noCache, opts.cacheURL)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           server.New(dir, server.WithLogger(c.Logger), server.WithCache(store)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	printSuccess("Serving %s on %s", StyleValue.Render(dir), StyleTitle.Render("http://"+opts.addr))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	c.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

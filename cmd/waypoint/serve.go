package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/config"
	"github.com/nao1215/waypoint/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Long: `Serve exposes the resolver as a small JSON API for browser extensions and
local tools:

  GET    /resolve?address=...            resolve an address
  GET    /fallback?address=...&reason=...  render a fallback page for a block
  GET    /cache                          list cache keys and counters
  DELETE /cache[?address=...]            clear the cache or drop one entry
  GET    /metrics                        Prometheus metrics
  GET    /healthz                        liveness

Examples:
  # Listen on the default address
  waypoint serve

  # Listen on every interface and keep the cache across restarts
  waypoint serve --listen :8080 --persist`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addEngineFlags(cmd)
	cmd.Flags().String("listen", config.DefaultListenAddr, "Address to listen on")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddr, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()

	return serve(ctx, e)
}

func serve(ctx context.Context, e *engine) error {
	handler := server.NewHandler(e.resolver,
		server.WithLogger(e.logger),
		server.WithSynthesizer(e.synthesizer),
		server.WithMetrics(e.metrics.Handler()),
	)
	return server.Run(ctx, e.cfg.ListenAddr, handler, e.logger)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/fallback"
	"github.com/nao1215/waypoint/internal/model"
	"github.com/nao1215/waypoint/internal/report"
	"github.com/nao1215/waypoint/internal/resolve"
)

// errUnresolved is returned when at least one address was exhausted.
var errUnresolved = errors.New("some addresses could not be resolved")

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [address...]",
		Short: "Resolve addresses through the strategy cascade",
		Long: `Resolve classifies each address and walks its strategy cascade until one
route works. Web addresses try direct, dns-bypass, fragment, proxy-relay and
onion-gateway in that order. Content locators (/ipfs/..., /ipns/...) and
pseudo-domains try the content gateways and then the relays. Anything that is
not an address is turned into a search URL.

When every strategy fails a fallback page with escape hatches is printed and
the command exits non-zero.

Examples:
  # Resolve a single site
  waypoint resolve example.com

  # Resolve several addresses, four at a time
  waypoint resolve -b 4 example.com /ipfs/bafy... docs.eth

  # Route onion addresses through a local Tor proxy
  waypoint resolve --tor 2gzyxa5ihm7nsggfxnu52rck2vv4rvmdlkiu3zzui5du4xyclen53wid.onion

  # Write a JSON report and keep history in SQLite
  waypoint resolve --persist -f json -o out/report.json example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolveCmd,
	}

	addEngineFlags(cmd)
	cmd.Flags().IntP("concurrency", "b", resolve.DefaultConcurrency,
		"Number of addresses resolved at once")
	cmd.Flags().StringP("format", "f", "simple",
		"Report format: simple, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runResolveCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
	}
	if cfg.ReportFormat, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if err := cfg.ValidateForResolve(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()

	return runResolve(ctx, e, format, cmd.OutOrStdout())
}

// runResolve resolves cfg.Addresses and writes the report, followed by a
// fallback page for each exhausted address.
func runResolve(ctx context.Context, e *engine, format report.Format, stdout io.Writer) error {
	cfg := e.cfg
	start := time.Now()

	results, err := e.resolver.ResolveMany(ctx, cfg.Addresses, cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("resolution interrupted: %w", err)
	}
	e.logger.Info("resolution complete",
		"addresses", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	w := report.New(format, output)
	if len(results) == 1 {
		_, err = w.Write(results[0])
	} else {
		_, err = w.WriteBatch(results)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	unresolved := 0
	for _, res := range results {
		if res.Status != model.StatusExhausted {
			continue
		}
		unresolved++
		page := e.synthesizer.Synthesize(res.Address, fallback.Exhausted(res))
		if _, err := w.WriteFallback(page); err != nil {
			return fmt.Errorf("failed to write fallback page: %w", err)
		}
	}
	if unresolved > 0 {
		return fmt.Errorf("%w: %d of %d", errUnresolved, unresolved, len(results))
	}
	return nil
}

// openOutput returns path opened for writing, or stdout when path is empty.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen report path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

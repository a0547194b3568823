package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [address]",
		Short: "Show past resolutions recorded with --persist",
		Long: `History lists finished resolutions from the database, newest first.
With an address only that address is shown, including every attempt.
With --stats it prints how often each strategy was tried and how often it
worked instead.

Examples:
  waypoint history
  waypoint history -n 5 example.com
  waypoint history --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	addStoreFlags(cmd)
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of resolutions to show")
	cmd.Flags().Bool("stats", false, "Show per-strategy success counts")
	cmd.Flags().Duration("prune", 0, "Delete history older than this before listing")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	stats, err := cmd.Flags().GetBool("stats")
	if err != nil {
		return err
	}
	prune, err := cmd.Flags().GetDuration("prune")
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if prune > 0 {
		n, err := store.PruneHistory(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d resolutions older than %s\n\n", n, prune)
	}

	if stats {
		list, err := store.StrategyStats(ctx)
		if err != nil {
			return err
		}
		return writeStrategyStats(out, list)
	}

	q := database.HistoryQuery{Limit: limit}
	if len(args) == 1 {
		q.Address = address.NewClassifier().Classify(args[0]).Normalized
	}
	records, err := store.History(ctx, q)
	if err != nil {
		return err
	}
	return writeHistory(out, records, q.Address != "")
}

func writeHistory(w io.Writer, records []database.HistoryRecord, withAttempts bool) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No resolutions recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tADDRESS\tKIND\tSTATUS\tSTRATEGY\tTARGET")
	for _, rec := range records {
		strategy := rec.Strategy
		if rec.Cached {
			strategy += " (cached)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ResolvedAt.Local().Format(time.DateTime),
			rec.Normalized, rec.Kind, rec.Status, dash(strategy), dash(rec.Target))
		if !withAttempts {
			continue
		}
		for _, a := range rec.Attempts {
			outcome := "ok"
			switch {
			case a.TimedOut:
				outcome = "timeout"
			case !a.Success:
				outcome = "failed: " + a.Reason
			}
			fmt.Fprintf(tw, "\t  %s\t\t%s\t%s\t\n",
				a.Strategy, outcome, a.Duration.Round(time.Millisecond))
		}
	}
	return tw.Flush()
}

func writeStrategyStats(w io.Writer, stats []database.StrategyStat) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "No attempts recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tATTEMPTS\tSUCCESSES\tTIMEOUTS\tSUCCESS RATE")
	for _, st := range stats {
		rate := 0.0
		if st.Attempts > 0 {
			rate = float64(st.Successes) / float64(st.Attempts) * 100
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\n",
			st.Strategy, st.Attempts, st.Successes, st.Timeouts, rate)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

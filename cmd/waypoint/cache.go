package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/address"
)

// NewCacheCmd creates the cache command and its subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted resolution cache",
		Long: `Cache manages the resolutions stored with --persist. Only successful
resolutions are cached; clearing the cache keeps the history.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached resolutions",
		Args:  cobra.NoArgs,
		RunE:  runCacheList,
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached resolution",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	}
	invalidate := &cobra.Command{
		Use:   "invalidate <address>",
		Short: "Remove the cached resolution of one address",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheInvalidate,
	}

	for _, sub := range []*cobra.Command{list, clearCmd, invalidate} {
		addStoreFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListResolutions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "Cache is empty.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTRATEGY\tTARGET\tCACHED AT")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			c.Key, c.Strategy, c.Target, c.InsertedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PurgeResolutions(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	key := address.NewClassifier().Classify(args[0]).Key()
	if err := store.DeleteResolution(cmd.Context(), key); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the cache.\n", key)
	return nil
}

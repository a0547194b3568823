package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/config"
	"github.com/nao1215/waypoint/internal/database"
)

// addStoreFlags registers the flags of commands that only read the database.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the SQLite database")
}

// openStore opens the existing database named by the db-dir flag.
func openStore(cmd *cobra.Command) (*database.Store, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	store, err := database.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database (run resolve with --persist first): %w", err)
	}
	return store, nil
}

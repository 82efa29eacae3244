package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Initialize or update the local cache database",
		Long: `Apply schema migrations to the local SQLite database.

The database caches report snapshots for offline viewing and tracks
top-up references that have not been verified yet. Other commands run
migrations automatically; this command exists to run them explicitly
after an upgrade.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatSuccess("Database is up to date."))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/ecowise/ecowise/internal/auth/app"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()

		db, err := app.OpenMigratedStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}

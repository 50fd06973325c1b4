package main

import (
	"github.com/ecowise/ecowise/internal/auth/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the auth HTTP API",
	Long: `Starts the auth HTTP API. Migrations are applied on startup. Usage:

	ecowise serve
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return application.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

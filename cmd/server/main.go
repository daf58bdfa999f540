package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/authgate/cmd/server/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "authgate",
		Short:        "Token-based authentication service",
		SilenceUsage: true,
		RunE:         cmd.RunServe,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.TokensCmd())
	rootCmd.AddCommand(cmd.UsersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

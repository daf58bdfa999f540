package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/authgate/internal/config"
	"github.com/templui/authgate/internal/db"
	"github.com/templui/authgate/internal/logger"
)

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, false)
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, true)
		},
	})

	return migrateCmd
}

func runMigrate(cmd *cobra.Command, down bool) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	ctx := cmd.Context()
	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if down {
		return db.MigrateDown(ctx, database.DB, cfg.DBDriver)
	}
	return db.RunMigrations(ctx, database.DB, cfg.DBDriver)
}

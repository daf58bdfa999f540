package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/templui/authgate/internal/app"
	"github.com/templui/authgate/internal/config"
	"github.com/templui/authgate/internal/logger"
	"github.com/templui/authgate/internal/model"
)

func UsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "set-status <username|email> <status>",
		Short: "Change a user's status (active, pending, banned, deleted, inactive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseUserStatus(args[1])
			if err != nil {
				return err
			}

			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.UserService.SetStatus(cmd.Context(), args[0], status)
			if err != nil {
				return fmt.Errorf("failed to set status: %w", err)
			}
			slog.Info("user status changed", "user", args[0], "status", status.String())
			return nil
		},
	})

	return usersCmd
}

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/authgate/internal/app"
	"github.com/templui/authgate/internal/config"
	"github.com/templui/authgate/internal/logger"
)

func TokensCmd() *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token maintenance",
	}

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete tokens that expired more than --older-than ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.TokenManager.Prune(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("failed to prune tokens: %w", err)
			}
			slog.Info("pruned expired tokens", "count", n, "older_than", olderThan)
			return nil
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "retention after expiry")
	tokensCmd.AddCommand(pruneCmd)

	return tokensCmd
}

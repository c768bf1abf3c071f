package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"uconnect/api/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "db connection failed")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool, args[0]); err != nil {
			return errors.Wrapf(err, "migrate %s", args[0])
		}
		logger.Info("migration finished", "command", args[0])
		return nil
	},
}

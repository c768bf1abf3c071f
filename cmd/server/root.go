package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"uconnect/api/internal/config"
	"uconnect/api/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "uconnect-api",
	Short:         "Campus social network API: auth, chat, groups, publications, events",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (config.Config, *slog.Logger) {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger
}

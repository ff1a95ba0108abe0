package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyia/internal/config"
	"storyia/internal/logging"
	"storyia/internal/store/sqlstore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "storyia",
	Short:         "Personal journal, image and vocal note service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (environment variables override it)")
	rootCmd.AddCommand(serveCmd, createAdminCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the config and opens the logger and the store.
func setup() (*config.Config, *zap.Logger, *sqlstore.SQLStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := sqlstore.New(cfg.DB.Driver, cfg.DB.Conn)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, logger, st, nil
}

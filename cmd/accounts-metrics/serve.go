package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vincentbai/accounts-metrics/internal/database"
	"github.com/vincentbai/accounts-metrics/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the metrics collector",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	databasePath := cfg.Database.Path
	if databasePath == "" {
		applicationDirectory, err := defaultApplicationDirectory()
		if err != nil {
			return err
		}
		databasePath = filepath.Join(applicationDirectory, "metrics.db")
	}

	db, err := database.NewDatabase(databasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Opened metrics database", zap.String("path", databasePath))

	srv := server.NewServer(db, cfg.Server.Address, server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Logger:          log,
	})
	return srv.Start(cmd.Context())
}

// app data dir: platform-specific
func defaultApplicationDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	var applicationDirectory string
	switch runtime.GOOS {
	case "darwin":
		applicationDirectory = filepath.Join(homeDirectory, "Library", "Application Support", "AccountsMetrics")
	case "windows":
		applicationDirectory = filepath.Join(homeDirectory, "AppData", "Roaming", "AccountsMetrics")
	default: // linux and others
		applicationDirectory = filepath.Join(homeDirectory, ".local", "share", "AccountsMetrics")
	}
	if err := os.MkdirAll(applicationDirectory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create application directory: %w", err)
	}
	return applicationDirectory, nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imageshare/service/internal/config"
	"github.com/imageshare/service/internal/logger"
	"github.com/imageshare/service/internal/storage"
)

// app is the state shared by every subcommand, built in PersistentPreRunE.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

var current app

var rootCmd = &cobra.Command{
	Use:           "imageshare",
	Short:         "Minimal image hosting service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, dotenv := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		log, err := logger.New(cfg.LogLevel, cfg.IsProduction())
		if err != nil {
			return err
		}
		if !dotenv {
			log.Debug("no .env file found, reading from environment")
		}
		current = app{cfg: cfg, log: log}
		return nil
	},
	// serve is the default when no subcommand is given.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), current)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if current.log != nil {
			current.log.Error("command failed", zap.Error(err))
			_ = current.log.Sync()
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
	if current.log != nil {
		_ = current.log.Sync()
	}
}

// newStorage builds the backend selected by STORAGE_BACKEND.
func newStorage(ctx context.Context, a app) (storage.Storage, error) {
	switch a.cfg.StorageBackend {
	case config.BackendMinio:
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:  a.cfg.StorageEndpoint,
			AccessKey: a.cfg.StorageAccessKey,
			SecretKey: a.cfg.StorageSecretKey,
			Bucket:    a.cfg.StorageBucket,
			UseSSL:    a.cfg.StorageUseSSL,
		}, a.log)
	default:
		return storage.NewLocalStorage(a.cfg.UploadDir)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, wipeCmd, tokenCmd)
}

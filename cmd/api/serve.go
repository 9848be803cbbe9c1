package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), current)
	},
}

func runServe(ctx context.Context, a app) error {
	store, err := newStorage(ctx, a)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}

	srv := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      newRouter(a, store),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", a.cfg.AppEnv),
			zap.String("storage", a.cfg.StorageBackend),
		)
		a.log.Info("swagger UI available", zap.String("url", "http://localhost:"+a.cfg.Port+"/swagger/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}

	a.log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	a.log.Info("server stopped")
	return nil
}

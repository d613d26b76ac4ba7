// Package cli holds the initialization steps shared by cmd/cantina and
// cmd/cantina-worker.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cantina/internal/auth"
	"cantina/internal/config"
	"cantina/internal/log"
	"cantina/internal/storage"
)

// LoadEnvFile loads the .env file for local development. Missing files
// are fine; production sets real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for the configured format and
// installs it as the slog default.
func SetupLogger(format string) *log.Logger {
	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentApp,
		Handler:   log.NewHandler(format, slog.LevelInfo),
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// BootstrapAdmin creates the operator account named by ADMIN_USER when it
// does not exist yet, so a fresh deployment can log in immediately.
func BootstrapAdmin(ctx context.Context, logger *log.Logger, authenticator *auth.PasswordAuthenticator, username, password string) error {
	if username == "" || password == "" {
		logger.InfoContext(ctx, "Admin bootstrap skipped, no credentials configured")
		return nil
	}

	_, err := authenticator.Register(ctx, username, password)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Admin account created", log.FieldUsername, username)
		return nil
	case errors.Is(err, storage.ErrDuplicateUser):
		return nil
	default:
		return err
	}
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM and
// runs cleanup before the timeout expires. The done channel closes when
// cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}
		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has run.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

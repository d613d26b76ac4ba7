// Command cantina runs the canteen ledger API server.
package main

import (
	"context"
	"os"
	"time"

	"cantina/internal/amqp"
	"cantina/internal/auth"
	"cantina/internal/backend"
	"cantina/internal/cli"
	apphttp "cantina/internal/http"
	"cantina/internal/log"
	"cantina/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogFormat)

	store, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open storage backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Mirror publishing is best-effort; the server keeps serving when the
	// broker is down and the worker sweep catches up later.
	var publisher services.MirrorPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without mirror publishing",
				log.FieldError, err.Error())
		} else {
			publisher = amqpClient
			logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	service := services.NewCanteen(store, publisher)
	authenticator := auth.NewPasswordAuthenticator(store)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	if err := cli.BootstrapAdmin(context.Background(), logger, authenticator, cfg.AdminUser, cfg.AdminPassword); err != nil {
		logger.Error("Failed to bootstrap admin account", log.FieldError, err.Error())
		os.Exit(1)
	}

	srv := apphttp.NewServer(cfg, service, authenticator, tokens)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := service.Close(); err != nil {
			logger.Error("Service close error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting cantina server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"mirror_publishing", publisher != nil)
	if err := srv.Start(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

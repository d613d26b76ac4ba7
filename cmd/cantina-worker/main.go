// Command cantina-worker mirrors committed transactions to the backup
// Google Sheets spreadsheet. It consumes mirror requests from RabbitMQ and
// periodically sweeps the database for rows a lost message left behind.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cantina/internal/amqp"
	"cantina/internal/cli"
	"cantina/internal/log"
	"cantina/internal/sheets/google"
	"cantina/internal/storage"
	"cantina/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogFormat).WithComponent(log.ComponentWorker)

	if !cfg.MirrorEnabled() {
		logger.Info("Mirroring disabled, GOOGLE_SPREADSHEET_ID not set; nothing to do")
		return
	}

	// The worker reads the same database file the server writes.
	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	mirror, err := google.New(context.Background(), google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		PurchasesSheet:  cfg.GooglePurchasesSheetName,
		PaymentsSheet:   cfg.GooglePaymentsSheetName,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(store, mirror, cfg.MirrorBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Recover anything left pending while the worker was down.
	if err := mirrorWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup mirror check failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeMirror(gctx, func(msg *amqp.MirrorMessage) error {
			return mirrorWorker.HandleMirrorMessage(gctx, msg)
		})
	})
	g.Go(func() error {
		return mirrorWorker.RunSweep(gctx, cfg.MirrorInterval)
	})

	logger.Info("Worker started",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.MirrorInterval.String(),
		"batch_size", cfg.MirrorBatchSize)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

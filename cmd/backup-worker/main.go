package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/export"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("backup-worker")
	logger.Info("Starting backup worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Google Sheets mirroring is optional.
	var sheetsExporter *export.SheetsExporter
	if cfg.GoogleSpreadsheetID != "" {
		var err error
		sheetsExporter, err = export.NewSheetsExporterFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	snapshotWorker := worker.NewSnapshotWorker(repo, sheetsExporter,
		cfg.SnapshotDir, cfg.SnapshotKeep, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	// Catch up on saves that happened while the worker was down.
	if err := snapshotWorker.StartupSnapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", "error", err)
		// Keep going, the consumer will snapshot on the next save.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeStateSaved(ctx, func(msg *amqp.StateSavedMessage) error {
			return snapshotWorker.HandleStateSaved(ctx, msg)
		})
	})

	g.Go(func() error {
		return snapshotWorker.PeriodicPrune(ctx, cfg.PruneInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Backup worker stopped")
}

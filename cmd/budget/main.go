package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("budget")
	logger.Info("Starting budget server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional. Without it the server still persists to SQLite,
	// it just stops notifying the backup worker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without save notifications", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - save notifications will not be published")
	}

	budgetService, err := services.NewBudgetService(context.Background(), repo, amqpClient)
	if err != nil {
		logger.Error("Failed to initialize budget service", "error", err)
		os.Exit(1)
	}
	defer budgetService.Close()

	srv := apphttp.NewServer(":"+cfg.Port, budgetService, logger)

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Budget server stopped")
}

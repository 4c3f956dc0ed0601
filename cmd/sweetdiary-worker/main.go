package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sweetdiary/internal/amqp"
	"sweetdiary/internal/cli"
	"sweetdiary/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting sweetdiary-worker")

	if cfg.DataBackend != "sqlite" {
		logger.Error("History worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("History worker requires AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// No drain step of its own; cancellation stops the consume loop.
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	w := worker.NewHistoryWorker(repo)

	// Bring the summary table up to date before consuming, so a backlog
	// of unprocessed saves does not leave stale radar charts.
	logger.Info("Running startup reconciliation")
	if err := w.ReconcileAll(ctx); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("History worker running",
		"queue", cfg.AMQPQueue,
		"reconcile_interval", cfg.ReconcileInterval.String())
	if err := w.Run(ctx, amqpClient, cfg.ReconcileInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

package main

import (
	"context"
	"os"

	"cashflow/internal/cli"
	"cashflow/internal/log"
	"cashflow/internal/services"
	"cashflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting cashflow-worker")

	store := cli.OpenStore(context.Background(), logger, cfg)

	// Snapshots are recomputed here, so the summary cache only spares the
	// store when several changes for one project arrive back to back.
	summaries := services.NewSummaryService(store.Store, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	exporter := cli.NewExporter(context.Background(), logger, cfg)

	processor := services.NewSnapshotProcessor(store.Store, summaries, exporter, services.SnapshotProcessorConfig{
		Interval:    cfg.SnapshotInterval,
		Concurrency: cfg.RefreshConcurrency,
	})

	amqpClient := cli.ConnectAMQP(logger, cfg)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Snapshot processor shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Storage cleanup error", "error", err)
		}
	})

	// The first refresh runs immediately and catches up on anything changed
	// while the worker was down.
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start snapshot processor", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		summaryWorker := worker.NewSummaryWorker(processor, summaries)
		go func() {
			if err := summaryWorker.Run(ctx, amqpClient); err != nil {
				logger.Error("Change consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping change consumption - AMQP disabled, relying on periodic refresh")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

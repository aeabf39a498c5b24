package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/cli"
	apphttp "cashflow/internal/http"
	"cashflow/internal/log"
	"cashflow/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	store := cli.OpenStore(context.Background(), logger, cfg)

	summaries := services.NewSummaryService(store.Store, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	if cleaner := summaries.CacheCleaner(); cleaner != nil {
		caches.Register(cleaner)
	}
	caches.StartCleanup(time.Minute)

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var publisher services.ChangePublisher
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
	}
	projects := services.NewProjectService(store.Store, publisher, summaries)

	// Without a broker no worker hears about changes, so snapshots are
	// refreshed in-process on the configured interval.
	var snapshots *services.SnapshotProcessor
	if amqpClient == nil {
		snapshots = services.NewSnapshotProcessor(store.Store, summaries, cli.NewExporter(context.Background(), logger, cfg), services.SnapshotProcessorConfig{
			Interval:    cfg.SnapshotInterval,
			Concurrency: cfg.RefreshConcurrency,
		})
		if err := snapshots.Start(context.Background()); err != nil {
			logger.Error("Failed to start snapshot processor", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Projects:          projects,
		Summaries:         summaries,
		Store:             store.Store,
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if snapshots != nil {
			if err := snapshots.Stop(shutdownCtx); err != nil {
				logger.Error("Snapshot processor shutdown error", "error", err)
			}
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Storage cleanup error", "error", err)
		}
	})

	logger.Info("Starting cashflow server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

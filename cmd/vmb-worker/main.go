package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"vmb/internal/amqp"
	"vmb/internal/cli"
	"vmb/internal/services"
	"vmb/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting vmb-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		return
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		return
	}
	defer amqpClient.Close()

	reports := services.NewReportService(repo, cfg.CacheSize, cfg.CacheTTL)
	reportWorker := worker.NewReportWorker(reports, cfg.ReportDir)

	ctx, stop := cli.SignalContext()
	defer stop()

	// Write an overview on startup so a fresh deployment has a snapshot
	// before the first import lands.
	if err := reportWorker.WriteOverviewSnapshot(ctx); err != nil {
		logger.Warn("Initial overview snapshot failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeImportCompleted(ctx, func(msg *amqp.ImportCompletedMessage) error {
			return reportWorker.HandleImportCompleted(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := reportWorker.WriteOverviewSnapshot(ctx); err != nil {
					logger.Error("Periodic overview snapshot failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		return
	}
	logger.Info("Worker stopped gracefully")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/storage"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting finanzas-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.HistoryDBPath)
	defer repo.Close()
	if v, dirty, err := storage.SchemaVersion(cfg.HistoryDBPath); err != nil || dirty {
		logger.Error("Load history schema is not usable",
			log.FieldError, err, "version", v, "dirty", dirty, log.FieldErrorType, log.ErrorTypeDatabase)
		os.Exit(1)
	} else {
		logger.Info("Load history ready", "path", cfg.HistoryDBPath, "schema_version", v)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hw := worker.NewHistoryWorker(repo, logger.Logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hw.Run(gctx, client)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			if n, err := repo.CountLoads(gctx); err == nil {
				logger.Info("Load history size", "loads", n)
			} else if gctx.Err() == nil {
				logger.Error("Counting stored loads failed", log.FieldError, err)
			}
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

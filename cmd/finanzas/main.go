package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/dashboard"
	"finanzas/internal/entries"
	"finanzas/internal/history"
	apphttp "finanzas/internal/http"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	src, err := source.New(context.Background(), cfg, logger.WithComponent(log.ComponentSource).Logger)
	if err != nil {
		logger.Error("Failed to initialize source",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration, "kind", cfg.SourceKind)
		os.Exit(1)
	}

	var (
		sinks  []history.Recorder
		reader history.Reader
	)
	if cfg.HistoryDBPath != "" {
		repo := cli.InitSQLite(logger, cfg.HistoryDBPath)
		defer repo.Close()
		sinks = append(sinks, repo)
		reader = repo
		logger.Info("Load history enabled", "path", cfg.HistoryDBPath)
	}
	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the dashboard works without the broker
			logger.Warn("AMQP unavailable, load events will not be published",
				log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
			logger.Info("Publishing load events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ctrl := dashboard.New(src, dashboard.Options{
		Parse:     ledger.Options{RejectUnknownTypes: cfg.RejectUnknownTypes},
		Recorder:  cli.Recorder(sinks...),
		Logger:    logger,
		CacheSize: cfg.SummaryCacheSize,
		CacheTTL:  cfg.SummaryCacheTTL,
	})

	sweeper := cache.NewSweeper()
	sweeper.Register(ctrl.SummaryCache())

	srv := apphttp.NewServer(cfg.Addr(), ctrl, apphttp.Options{
		Logger:  logger,
		History: reader,
		Entries: entries.NewBook(),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.FetchTimeout + 15*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		sweeper.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	sweeper.Start(ctx, time.Minute)

	if _, err := ctrl.Load(ctx); err != nil {
		logger.Warn("Initial load failed, serving the error page until a reload succeeds", log.FieldError, err)
	}

	logger.Info("Starting finanzas server", "addr", cfg.Addr(), "source", src.Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

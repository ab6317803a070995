// Package worker drains load events from the broker into the history store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/history"
)

// Consumer delivers load events until ctx is done.
type Consumer interface {
	ConsumeLoads(ctx context.Context, handler amqp.Handler) error
}

// HistoryWorker stores every consumed load event.
type HistoryWorker struct {
	store  history.Recorder
	logger *slog.Logger
}

func NewHistoryWorker(store history.Recorder, logger *slog.Logger) *HistoryWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryWorker{store: store, logger: logger}
}

// HandleLoad persists e. A store error is returned so the broker redelivers.
func (w *HistoryWorker) HandleLoad(ctx context.Context, e history.LoadEvent) error {
	w.logger.DebugContext(ctx, "Processing load event",
		"load_id", e.ID,
		"source", e.Source,
		"success", e.Success)

	if err := w.store.RecordLoad(ctx, e); err != nil {
		return fmt.Errorf("store load %s: %w", e.ID, err)
	}

	if !e.Success {
		w.logger.WarnContext(ctx, "Stored failed load", "load_id", e.ID, "error", e.Error)
		return nil
	}
	w.logger.InfoContext(ctx, "Stored load",
		"load_id", e.ID,
		"records", e.Records,
		"diagnostics", e.DiagnosticCount)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *HistoryWorker) Run(ctx context.Context, c Consumer) error {
	err := c.ConsumeLoads(ctx, w.HandleLoad)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

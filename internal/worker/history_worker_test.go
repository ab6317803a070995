package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/history"
)

type memStore struct {
	events []history.LoadEvent
	err    error
}

func (m *memStore) RecordLoad(_ context.Context, e history.LoadEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleLoad(t *testing.T) {
	store := &memStore{}
	w := NewHistoryWorker(store, quietLogger())
	ctx := context.Background()

	ok := history.LoadEvent{ID: "a", StartedAt: time.Now(), Success: true, Records: 3}
	failed := history.LoadEvent{ID: "b", StartedAt: time.Now(), Error: "timeout"}
	for _, e := range []history.LoadEvent{ok, failed} {
		if err := w.HandleLoad(ctx, e); err != nil {
			t.Fatalf("handle %s: %v", e.ID, err)
		}
	}
	if len(store.events) != 2 || store.events[1].Error != "timeout" {
		t.Fatalf("stored: %+v", store.events)
	}

	store.err = errors.New("database is locked")
	if err := w.HandleLoad(ctx, ok); err == nil || !errors.Is(err, store.err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

type fakeConsumer struct {
	events []history.LoadEvent
	err    error
}

func (f *fakeConsumer) ConsumeLoads(ctx context.Context, h amqp.Handler) error {
	for _, e := range f.events {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	store := &memStore{}
	w := NewHistoryWorker(store, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	c := &fakeConsumer{events: []history.LoadEvent{{ID: "a", StartedAt: time.Now()}}}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("events: %d", len(store.events))
	}

	broken := &fakeConsumer{err: errors.New("channel closed")}
	if err := w.Run(context.Background(), broken); err == nil {
		t.Fatal("consumer failure should surface")
	}
}

// Package history describes the audit trail of dashboard loads and the
// ports that persist it.
package history

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// MaxStoredDiagnostics bounds how many diagnostic lines one event carries.
// DiagnosticCount always holds the full number.
const MaxStoredDiagnostics = 200

// LoadEvent records one fetch-and-parse of the source.
type LoadEvent struct {
	ID              string        `json:"id"`
	Source          string        `json:"source"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Records         int           `json:"records"`
	DiagnosticCount int           `json:"diagnostic_count"`
	Diagnostics     []string      `json:"diagnostics,omitempty"`
}

// NewLoadEvent starts an event for source with a fresh ID.
func NewLoadEvent(source string, startedAt time.Time) LoadEvent {
	return LoadEvent{ID: NewID(), Source: source, StartedAt: startedAt}
}

// Succeed fills in the outcome of a load that produced a session.
func (e *LoadEvent) Succeed(records int, diagnostics []string, finished time.Time) {
	e.Success = true
	e.Error = ""
	e.Records = records
	e.DiagnosticCount = len(diagnostics)
	if len(diagnostics) > MaxStoredDiagnostics {
		diagnostics = diagnostics[:MaxStoredDiagnostics]
	}
	e.Diagnostics = append([]string(nil), diagnostics...)
	e.Duration = finished.Sub(e.StartedAt)
}

// Fail fills in the outcome of a load that did not.
func (e *LoadEvent) Fail(err error, finished time.Time) {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	e.Duration = finished.Sub(e.StartedAt)
}

// Validate rejects events that cannot be stored.
func (e LoadEvent) Validate() error {
	if e.ID == "" {
		return errors.New("load event without id")
	}
	if e.StartedAt.IsZero() {
		return errors.New("load event without start time")
	}
	return nil
}

// NewID returns a random 128-bit hex identifier.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b[:])
}

// Recorder persists load events.
type Recorder interface {
	RecordLoad(ctx context.Context, e LoadEvent) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, e LoadEvent) error

func (f RecorderFunc) RecordLoad(ctx context.Context, e LoadEvent) error { return f(ctx, e) }

// Nop discards events.
type Nop struct{}

func (Nop) RecordLoad(context.Context, LoadEvent) error { return nil }

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) RecordLoad(ctx context.Context, e LoadEvent) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordLoad(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reader lists stored events, newest first.
type Reader interface {
	RecentLoads(ctx context.Context, limit int) ([]LoadEvent, error)
}

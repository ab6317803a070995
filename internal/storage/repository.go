// Package storage keeps the load history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"finanzas/internal/history"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ history.Recorder = (*SQLiteRepository)(nil)
	_ history.Reader   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordLoad stores e. Redelivered events with a known ID are ignored.
func (r *SQLiteRepository) RecordLoad(ctx context.Context, e history.LoadEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO loads
			(id, source, started_at_ms, duration_ms, success, error, records, diagnostic_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.StartedAt.UnixMilli(), e.Duration.Milliseconds(),
		boolToInt(e.Success), e.Error, e.Records, e.DiagnosticCount)
	if err != nil {
		return fmt.Errorf("insert load: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.DebugContext(ctx, "Load already recorded", "load_id", e.ID)
		return nil
	}

	for i, msg := range e.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO load_diagnostics (load_id, position, message) VALUES (?, ?, ?)`,
			e.ID, i, msg); err != nil {
			return fmt.Errorf("insert diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}

	slog.InfoContext(ctx, "Load recorded",
		"load_id", e.ID,
		"source", e.Source,
		"success", e.Success,
		"records", e.Records,
		"diagnostics", e.DiagnosticCount)
	return nil
}

// RecentLoads returns up to limit events, newest first, diagnostics included.
func (r *SQLiteRepository) RecentLoads(ctx context.Context, limit int) ([]history.LoadEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, started_at_ms, duration_ms, success, error, records, diagnostic_count
		FROM loads
		ORDER BY started_at_ms DESC, recorded_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}

	var events []history.LoadEvent
	for rows.Next() {
		var (
			e                history.LoadEvent
			startedMs, durMs int64
			success          int
		)
		if err := rows.Scan(&e.ID, &e.Source, &startedMs, &durMs, &success, &e.Error, &e.Records, &e.DiagnosticCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan load: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedMs).UTC()
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.Success = success == 1
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate loads: %w", err)
	}
	rows.Close()

	for i := range events {
		diags, err := r.diagnostics(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Diagnostics = diags
	}
	return events, nil
}

func (r *SQLiteRepository) diagnostics(ctx context.Context, loadID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message FROM load_diagnostics WHERE load_id = ? ORDER BY position`, loadID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// CountLoads returns the number of stored events.
func (r *SQLiteRepository) CountLoads(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count loads: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

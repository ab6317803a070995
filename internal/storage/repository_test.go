package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finanzas/internal/history"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "history", "loads.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndListLoads(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := history.LoadEvent{
		ID:              "a",
		Source:          "file:ledger.csv",
		StartedAt:       base,
		Duration:        1500 * time.Millisecond,
		Success:         true,
		Records:         12,
		DiagnosticCount: 2,
		Diagnostics:     []string{`Row 3: invalid amount "abc" → "x"`, "Row 5: missing required field Fecha → \",a,b,1\""},
	}
	second := history.LoadEvent{
		ID:        "b",
		Source:    "http:example.com",
		StartedAt: base.Add(time.Hour),
		Success:   false,
		Error:     "fetch http:example.com: unexpected status 500",
	}
	for _, e := range []history.LoadEvent{first, second} {
		if err := repo.RecordLoad(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.ID, err)
		}
	}

	got, err := repo.RecentLoads(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("order: %+v", got)
	}
	if got[0].Success || got[0].Error != second.Error || len(got[0].Diagnostics) != 0 {
		t.Fatalf("failed load round trip: %+v", got[0])
	}
	a := got[1]
	if !a.StartedAt.Equal(base) || a.Duration != first.Duration || a.Records != 12 || a.DiagnosticCount != 2 {
		t.Fatalf("success load round trip: %+v", a)
	}
	if len(a.Diagnostics) != 2 || a.Diagnostics[0] != first.Diagnostics[0] || a.Diagnostics[1] != first.Diagnostics[1] {
		t.Fatalf("diagnostics: %q", a.Diagnostics)
	}

	limited, err := repo.RecentLoads(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "b" {
		t.Fatalf("limit: %+v %v", limited, err)
	}
}

func TestRecordLoadIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := history.LoadEvent{ID: "dup", Source: "file", StartedAt: time.Now(), Success: true, Diagnostics: []string{"Row 1: x"}}

	for i := 0; i < 3; i++ {
		if err := repo.RecordLoad(ctx, e); err != nil {
			t.Fatalf("record #%d: %v", i, err)
		}
	}
	n, err := repo.CountLoads(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
	got, _ := repo.RecentLoads(ctx, 5)
	if len(got) != 1 || len(got[0].Diagnostics) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestRecordLoadRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.RecordLoad(context.Background(), history.LoadEvent{Source: "x"}); err == nil {
		t.Fatalf("event without id should fail")
	}
}

func TestMigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loads.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		repo.Close()
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loads.db")
	if v, dirty, err := SchemaVersion(path); err != nil || v != 0 || dirty {
		t.Fatalf("fresh db: v=%d dirty=%v err=%v", v, dirty, err)
	}
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	v, dirty, err := SchemaVersion(path)
	if err != nil || v != 1 || dirty {
		t.Fatalf("migrated db: v=%d dirty=%v err=%v", v, dirty, err)
	}
}

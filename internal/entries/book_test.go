package entries

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddClassifiesBySign(t *testing.T) {
	b := NewBook()
	tests := []struct {
		desc, amount string
		kind         Kind
		display      string
	}{
		{"Venta", "150", Income, "S/ 150.00"},
		{"Taxi", "-12,5", Expense, "S/ -12.50"},
		{"Regalo", "0", Income, "S/ 0.00"},
	}
	for _, tt := range tests {
		e, err := b.Add(tt.desc, tt.amount)
		if err != nil {
			t.Fatalf("add %q: %v", tt.desc, err)
		}
		if e.Kind != tt.kind || e.Display() != tt.display {
			t.Fatalf("%q: kind=%s display=%s", tt.desc, e.Kind, e.Display())
		}
	}

	snap := b.Snapshot()
	if len(snap.Entries) != 3 || snap.Entries[0].Description != "Venta" || snap.Entries[2].ID != 3 {
		t.Fatalf("entries: %+v", snap.Entries)
	}
	if !snap.Balance.Equal(decimal.RequireFromString("137.5")) {
		t.Fatalf("balance = %s", snap.Balance)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	b := NewBook()
	tests := []struct {
		name, desc, amount string
	}{
		{"empty description", "   ", "10"},
		{"control only", "\t\x00", "10"},
		{"empty amount", "Pago", ""},
		{"not a number", "Pago", "diez"},
		{"exponent", "Pago", "1e400"},
		{"too long", strings.Repeat("a", MaxDescriptionLen+1), "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Add(tt.desc, tt.amount); !errors.Is(err, ErrInvalidEntry) {
				t.Fatalf("err = %v", err)
			}
		})
	}
	if snap := b.Snapshot(); len(snap.Entries) != 0 || !snap.Balance.IsZero() {
		t.Fatalf("rejected entries were kept: %+v", snap)
	}
}

func TestDescriptionCleaned(t *testing.T) {
	b := NewBook()
	e, err := b.Add("  Almuerzo\r\n ", "-20")
	if err != nil {
		t.Fatal(err)
	}
	if e.Description != "Almuerzo" {
		t.Fatalf("description %q", e.Description)
	}
}

func TestBookFullAndClear(t *testing.T) {
	b := NewBook()
	for i := 0; i < MaxEntries; i++ {
		if _, err := b.Add("x", "1"); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	if _, err := b.Add("x", "1"); !errors.Is(err, ErrBookFull) {
		t.Fatalf("err = %v", err)
	}

	b.Clear()
	snap := b.Snapshot()
	if len(snap.Entries) != 0 || !snap.Balance.IsZero() {
		t.Fatalf("clear left %+v", snap)
	}
	e, err := b.Add("y", "2")
	if err != nil || e.ID != MaxEntries+1 {
		t.Fatalf("after clear: id=%d err=%v", e.ID, err)
	}
}

func TestConcurrentAdds(t *testing.T) {
	b := NewBook()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Add("x", "2")
		}()
	}
	wg.Wait()
	snap := b.Snapshot()
	if len(snap.Entries) != 50 || !snap.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("entries=%d balance=%s", len(snap.Entries), snap.Balance)
	}
}

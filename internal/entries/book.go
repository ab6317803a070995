// Package entries keeps transactions typed in by hand on the dashboard.
// They live only in memory and never mix with the records loaded from the
// ledger source.
package entries

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Kind classifies an entry by the sign of its amount.
type Kind string

const (
	Income  Kind = "ingreso"
	Expense Kind = "egreso"
)

const (
	MaxEntries        = 500
	MaxDescriptionLen = 200
)

var (
	ErrInvalidEntry = errors.New("description and amount are required")
	ErrBookFull     = errors.New("too many manual entries")
)

// KindOf returns Income for zero or positive amounts and Expense otherwise.
func KindOf(amount decimal.Decimal) Kind {
	if amount.IsNegative() {
		return Expense
	}
	return Income
}

type Entry struct {
	ID          int64
	Description string
	Amount      decimal.Decimal
	Kind        Kind
	AddedAt     time.Time
}

// Display is the amount as shown in the list.
func (e Entry) Display() string {
	return core.FormatSoles(e.Amount)
}

// Snapshot is a consistent copy of the book.
type Snapshot struct {
	Entries []Entry
	Balance decimal.Decimal
}

// Book is a process-local, append-only list of manual entries.
type Book struct {
	mu      sync.RWMutex
	entries []Entry
	balance decimal.Decimal
	nextID  int64
	now     func() time.Time
}

func NewBook() *Book {
	return &Book{balance: decimal.Zero, now: time.Now}
}

// Add validates and appends an entry. The amount accepts a decimal comma
// like the ledger's Monto column.
func (b *Book) Add(description, amount string) (Entry, error) {
	desc := cleanDescription(description)
	if desc == "" {
		return Entry{}, fmt.Errorf("%w: empty description", ErrInvalidEntry)
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return Entry{}, fmt.Errorf("%w: description longer than %d characters", ErrInvalidEntry, MaxDescriptionLen)
	}
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: amount %q", ErrInvalidEntry, strings.TrimSpace(amount))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= MaxEntries {
		return Entry{}, ErrBookFull
	}
	b.nextID++
	e := Entry{
		ID:          b.nextID,
		Description: desc,
		Amount:      amt,
		Kind:        KindOf(amt),
		AddedAt:     b.now(),
	}
	b.entries = append(b.entries, e)
	b.balance = b.balance.Add(amt)
	return e, nil
}

// Snapshot returns the entries in insertion order with their running balance.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Entries: append([]Entry(nil), b.entries...),
		Balance: b.balance,
	}
}

// Clear drops every entry. IDs keep increasing.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.balance = decimal.Zero
}

// cleanDescription trims and drops control characters.
func cleanDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

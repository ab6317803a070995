package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income          TransactionType = "ingreso"
	FixedExpense    TransactionType = "egreso fijo"
	VariableExpense TransactionType = "egreso variable"
	Unknown         TransactionType = ""
)

// Placeholders used when optional text cells are empty.
const (
	NoDescription = "Sin descripción"
	NoCategory    = "Sin categoría"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Record is one validated row of the ledger sheet.
	Record struct {
		Date        Date
		Type        TransactionType
		RawType     string // Tipo cell as written in the sheet
		Description string
		Amount      decimal.Decimal
		Category    string
	}
)

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDate  = errors.New("invalid date")
)

// ParseType maps a Tipo cell to a known type. Unrecognised values map to Unknown.
func ParseType(s string) TransactionType {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income
	case FixedExpense:
		return FixedExpense
	case VariableExpense:
		return VariableExpense
	default:
		return Unknown
	}
}

// Known reports whether t is one of the three ledger types.
func (t TransactionType) Known() bool {
	return t != Unknown
}

func (t TransactionType) String() string {
	if t == Unknown {
		return "desconocido"
	}
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a Date and fails instead of normalising out-of-range parts,
// so 31/02 or month 13 never roll over into another month.
func DateOf(year, month, day int) (Date, error) {
	if month < 1 || month > 12 {
		return Date{}, ErrInvalidMonth
	}
	if day < 1 || day > 31 {
		return Date{}, ErrInvalidDay
	}
	d := NewDate(year, month, day)
	if d.Time.Year() != year || int(d.Time.Month()) != month || d.Time.Day() != day {
		return Date{}, ErrInvalidDate
	}
	return d, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Key returns the month bucket the date falls in.
func (d Date) Key() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// Label formats the date the way the sheet writes it (dd/mm/yyyy).
func (d Date) Label() string {
	return d.Format("02/01/2006")
}

// CategoryName returns the category or the placeholder when empty.
func (r Record) CategoryName() string {
	if c := strings.TrimSpace(r.Category); c != "" {
		return c
	}
	return NoCategory
}

// DescriptionText returns the description or the placeholder when empty.
func (r Record) DescriptionText() string {
	if d := strings.TrimSpace(r.Description); d != "" {
		return d
	}
	return NoDescription
}

package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthKey identifies a calendar month. Records are bucketed by it.
type MonthKey struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

func (k MonthKey) Valid() bool {
	return k.Month >= 1 && k.Month <= 12
}

// String returns a stable "2024-03" form used for cache keys and URLs.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Label renders the month as es-PE does: "marzo de 2024".
func (k MonthKey) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return monthNames[k.Month-1] + " de " + strconv.Itoa(k.Year)
}

// Title is Label with the first letter upper-cased, as shown in the selector.
func (k MonthKey) Title() string {
	l := k.Label()
	r, size := utf8.DecodeRuneInString(l)
	if r == utf8.RuneError {
		return l
	}
	return string(unicode.ToUpper(r)) + l[size:]
}

// ParseMonthKey accepts the "2024-03" form produced by String.
func ParseMonthKey(s string) (MonthKey, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return MonthKey{}, fmt.Errorf("invalid month key %q", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", s, err)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", s, err)
	}
	k := MonthKey{Year: year, Month: month}
	if !k.Valid() {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", s, ErrInvalidMonth)
	}
	return k, nil
}

// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing sheet amounts and formatting
// them in soles for display.
package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// RedactedAmount replaces the display amount of salary lines.
const RedactedAmount = "S/ ****"

var ErrInvalidAmount = errors.New("invalid amount")

// plainAmount is an optionally signed decimal without exponent.
var plainAmount = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// MaxAmountDigits bounds the significant digits of a single amount.
const MaxAmountDigits = 20

// ParseAmount converts a Monto cell to a decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted: every
// comma is replaced by a dot before parsing, so thousands separators are not
// supported. Signed values are allowed. Exponent notation and amounts with
// more than MaxAmountDigits digits are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("1.234,5") -> error
//	ParseAmount("1e400") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !plainAmount.MatchString(s) || countDigits(s) > MaxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// FormatSoles renders an amount as "S/ 1500.00".
func FormatSoles(d decimal.Decimal) string {
	return "S/ " + d.StringFixed(2)
}

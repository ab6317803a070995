// Package report folds parsed records into month summaries.
//
// Records reaching this package have already been validated by the ledger
// parser, so nothing here can fail.
package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"finanzas/internal/core"
)

// Keywords matched case-insensitively against record text.
const (
	SavingsKeyword       = "ahorro" // fixed expense description
	EmergencyFundKeyword = "fondo"  // fixed expense description
	SalaryKeyword        = "sueldo" // income category, redacted on display
)

// containsFold reports whether substr occurs in s ignoring case. A Caser
// keeps state, so each call gets its own.
func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}

// Months lists the distinct months in the order they first appear.
func Months(records []core.Record) []core.MonthKey {
	seen := make(map[core.MonthKey]struct{})
	var out []core.MonthKey
	for _, r := range records {
		k := r.Date.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// InMonth returns the records dated in month, preserving order.
func InMonth(records []core.Record, month core.MonthKey) []core.Record {
	var out []core.Record
	for _, r := range records {
		if r.Date.Key() == month {
			out = append(out, r)
		}
	}
	return out
}

// CumulativeSavings sums every fixed expense whose description mentions
// savings, across all months.
func CumulativeSavings(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Type == core.FixedExpense && containsFold(r.Description, SavingsKeyword) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Summarize builds the view of one month. savings is the cumulative figure
// computed once for the whole record set.
func Summarize(records []core.Record, month core.MonthKey, savings decimal.Decimal) core.MonthSummary {
	s := core.MonthSummary{
		Month:         month,
		Income:        decimal.Zero,
		Expenses:      decimal.Zero,
		Savings:       savings,
		EmergencyFund: decimal.Zero,
	}
	byCat := make(map[string]int) // index into s.Categories

	for _, r := range records {
		if r.Date.Key() != month {
			continue
		}
		switch r.Type {
		case core.Income:
			s.Income = s.Income.Add(r.Amount)
			s.Incomes = append(s.Incomes, lineFor(r, containsFold(r.Category, SalaryKeyword)))
		case core.FixedExpense:
			s.Expenses = s.Expenses.Add(r.Amount)
			if containsFold(r.Description, EmergencyFundKeyword) {
				s.EmergencyFund = s.EmergencyFund.Add(r.Amount)
			}
			s.Fixed = append(s.Fixed, lineFor(r, false))
		case core.VariableExpense:
			s.Expenses = s.Expenses.Add(r.Amount)
			name := r.CategoryName()
			if i, ok := byCat[name]; ok {
				s.Categories[i].Amount = s.Categories[i].Amount.Add(r.Amount)
			} else {
				byCat[name] = len(s.Categories)
				s.Categories = append(s.Categories, core.CategoryAmount{Name: name, Amount: r.Amount})
			}
			s.Variable = append(s.Variable, lineFor(r, false))
		default:
			// unknown types are left out of every total
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}

func lineFor(r core.Record, redact bool) core.Line {
	l := core.Line{
		Date:        r.Date,
		Description: r.DescriptionText(),
		Category:    r.CategoryName(),
		Amount:      r.Amount,
		Display:     core.FormatSoles(r.Amount),
		Redacted:    redact,
	}
	if redact {
		l.Display = core.RedactedAmount
	}
	return l
}

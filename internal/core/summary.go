package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Line is one transaction as shown in a month view.
type Line struct {
	Date        Date
	Description string
	Category    string
	Amount      decimal.Decimal
	Display     string // formatted amount, or RedactedAmount
	Redacted    bool
}

// MonthSummary is everything a month view needs.
type MonthSummary struct {
	Month         MonthKey
	Income        decimal.Decimal
	Expenses      decimal.Decimal
	Balance       decimal.Decimal
	Savings       decimal.Decimal // cumulative over every month
	EmergencyFund decimal.Decimal // this month only
	Categories    []CategoryAmount
	Incomes       []Line
	Fixed         []Line
	Variable      []Line
}

// CategoryTotal returns the variable-expense total for name, or zero.
func (s MonthSummary) CategoryTotal(name string) decimal.Decimal {
	for _, c := range s.Categories {
		if c.Name == name {
			return c.Amount
		}
	}
	return decimal.Zero
}

// CategoryMap returns the category totals as a map.
func (s MonthSummary) CategoryMap() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Categories))
	for _, c := range s.Categories {
		out[c.Name] = c.Amount
	}
	return out
}

package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/report"
)

// Session is the immutable result of one load. Slices returned by its
// accessors are copies.
type Session struct {
	id          string
	source      string
	loadedAt    time.Time
	records     []core.Record
	diagnostics []ledger.Diagnostic
	months      []core.MonthKey
	monthSet    map[core.MonthKey]struct{}
	savings     decimal.Decimal
}

// NewSession derives the month list and cumulative savings once from res.
func NewSession(id, source string, loadedAt time.Time, res ledger.Result) *Session {
	months := report.Months(res.Records)
	set := make(map[core.MonthKey]struct{}, len(months))
	for _, m := range months {
		set[m] = struct{}{}
	}
	return &Session{
		id:          id,
		source:      source,
		loadedAt:    loadedAt,
		records:     append([]core.Record(nil), res.Records...),
		diagnostics: append([]ledger.Diagnostic(nil), res.Diagnostics...),
		months:      months,
		monthSet:    set,
		savings:     report.CumulativeSavings(res.Records),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Source() string      { return s.source }
func (s *Session) LoadedAt() time.Time { return s.loadedAt }

// Savings is the cumulative savings across every month.
func (s *Session) Savings() decimal.Decimal { return s.savings }

func (s *Session) RecordCount() int { return len(s.records) }

func (s *Session) Records() []core.Record {
	return append([]core.Record(nil), s.records...)
}

func (s *Session) Diagnostics() []ledger.Diagnostic {
	return append([]ledger.Diagnostic(nil), s.diagnostics...)
}

// Months lists the months with records, in first-encountered order.
func (s *Session) Months() []core.MonthKey {
	return append([]core.MonthKey(nil), s.months...)
}

// DefaultMonth is the first month encountered, if any.
func (s *Session) DefaultMonth() (core.MonthKey, bool) {
	if len(s.months) == 0 {
		return core.MonthKey{}, false
	}
	return s.months[0], true
}

func (s *Session) HasMonth(m core.MonthKey) bool {
	_, ok := s.monthSet[m]
	return ok
}

func (s *Session) summarize(m core.MonthKey) core.MonthSummary {
	return report.Summarize(s.records, m, s.savings)
}

package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"finanzas/internal/core"
)

var errMonthParam = errors.New("invalid month selection")

// ParseMonthParams reads a month from either key=YYYY-MM or year=&month=.
// found is false when neither form is present.
func ParseMonthParams(q url.Values) (m core.MonthKey, found bool, err error) {
	if key := strings.TrimSpace(q.Get("key")); key != "" {
		m, err := core.ParseMonthKey(key)
		if err != nil {
			return core.MonthKey{}, true, fmt.Errorf("%w: %v", errMonthParam, err)
		}
		return m, true, nil
	}

	ys, ms := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("month"))
	if ys == "" && ms == "" {
		return core.MonthKey{}, false, nil
	}
	year, yerr := strconv.Atoi(ys)
	month, merr := strconv.Atoi(ms)
	if yerr != nil || merr != nil {
		return core.MonthKey{}, true, fmt.Errorf("%w: year=%q month=%q", errMonthParam, ys, ms)
	}
	m = core.MonthKey{Year: year, Month: month}
	if !m.Valid() {
		return core.MonthKey{}, true, fmt.Errorf("%w: %04d-%02d", errMonthParam, year, month)
	}
	return m, true, nil
}

// ParseLimit reads a positive limit capped at max, falling back to def.
func ParseLimit(q url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		query   string
		want    core.MonthKey
		found   bool
		wantErr bool
	}{
		{"", core.MonthKey{}, false, false},
		{"key=2024-03", core.MonthKey{Year: 2024, Month: 3}, true, false},
		{"year=2024&month=12", core.MonthKey{Year: 2024, Month: 12}, true, false},
		{"year=2024", core.MonthKey{}, true, true},
		{"year=2024&month=0", core.MonthKey{}, true, true},
		{"key=2024/03", core.MonthKey{}, true, true},
		{"key=2024-03&year=1999&month=1", core.MonthKey{Year: 2024, Month: 3}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, found, err := ParseMonthParams(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errMonthParam) {
				t.Fatalf("error should wrap errMonthParam: %v", err)
			}
			if found != tt.found || (!tt.wantErr && got != tt.want) {
				t.Fatalf("got %v found=%v", got, found)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{"": 20, "limit=5": 5, "limit=0": 20, "limit=abc": 20, "limit=500": 200}
	for query, want := range tests {
		q, _ := url.ParseQuery(query)
		if got := ParseLimit(q, 20, 200); got != want {
			t.Fatalf("%q: got %d want %d", query, got, want)
		}
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	var m securityMetrics
	if !rl.allow("1.1.1.1", &m) || !rl.allow("1.1.1.1", &m) {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.1.1.1", &m) {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("2.2.2.2", &m) {
		t.Fatal("other clients are independent")
	}
	if m.rateLimitHits != 1 {
		t.Fatalf("hits=%d", m.rateLimitHits)
	}
	now = now.Add(61 * time.Second)
	if !rl.allow("1.1.1.1", &m) {
		t.Fatal("new window should reset the count")
	}
	now = now.Add(time.Hour)
	rl.cleanupStaleEntries()
	if len(rl.clients) != 0 {
		t.Fatalf("stale clients kept: %d", len(rl.clients))
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finanzas/internal/dashboard"
	"finanzas/internal/history"
	"finanzas/internal/log"
)

const ledgerCSV = `Fecha,Tipo,Descripción,Monto,Categoría
01/03/2024,ingreso,Pago,1500,Freelance
05/03/2024,egreso fijo,Fondo de emergencia,200,
07/03/2024,egreso variable,Almuerzo,50,Comida
08/03/2024,egreso variable,Taxi,"12,5",Transporte
02/04/2024,ingreso,Pago abril,2000,Sueldo
06/04/2024,egreso fijo,Ahorro casa,300,
xx/04/2024,ingreso,Roto,1,
`

type stubSource struct {
	text string
	err  error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(context.Context) (string, error) {
	return s.text, s.err
}

func newTestServer(t *testing.T, src *stubSource, load bool, opts Options) (*Server, *dashboard.Controller) {
	t.Helper()
	ctrl := dashboard.New(src, dashboard.Options{Logger: log.Discard()})
	if load {
		if _, err := ctrl.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	srv := NewServer(":0", ctrl, opts)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, ctrl
}

func do(srv *Server, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestNotLoaded(t *testing.T) {
	src := &stubSource{err: errors.New("upstream returned 500")}
	srv, ctrl := newTestServer(t, src, false, Options{})
	if _, err := ctrl.Load(context.Background()); err == nil {
		t.Fatal("expected load failure")
	}

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "upstream returned 500") {
		t.Fatalf("index: %d %s", rr.Code, rr.Body.String())
	}
	for _, path := range []string{"/readyz", "/api/summary", "/api/months", "/ui/month?year=2024&month=3"} {
		if rr := do(srv, http.MethodGet, path, nil); rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(srv, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestIndex(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Marzo de 2024",
		"Abril de 2024",
		`value="2024-03" selected`,
		"Filas rechazadas (1)",
		"Row 7: invalid date",
		"<svg",
		"S/ 1500.00",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("security headers missing: %v", rr.Header())
	}
	if rr := do(srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestMonthPartial(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})

	rr := do(srv, http.MethodGet, "/ui/month?key=2024-04", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("partial status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Abril de 2024") || !strings.Contains(body, "S/ ****") {
		t.Fatalf("april partial: %s", body)
	}
	if strings.Contains(body, "<svg") {
		t.Fatalf("april has no variable expenses, no chart expected")
	}

	tests := []struct {
		target string
		status int
	}{
		{"/ui/month?year=2024&month=3", http.StatusOK},
		{"/ui/month", http.StatusOK},
		{"/ui/month?year=2023&month=1", http.StatusNotFound},
		{"/ui/month?year=2024&month=13", http.StatusBadRequest},
		{"/ui/month?key=marzo", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rr := do(srv, http.MethodGet, tt.target, nil); rr.Code != tt.status {
			t.Fatalf("%s status=%d want %d", tt.target, rr.Code, tt.status)
		}
	}
}

func TestSummaryJSON(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})

	rr := do(srv, http.MethodGet, "/api/summary?year=2024&month=3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Month struct {
			Label string `json:"label"`
		} `json:"month"`
		Income        string `json:"income"`
		Expenses      string `json:"expenses"`
		Balance       string `json:"balance"`
		EmergencyFund string `json:"emergency_fund"`
		Savings       string `json:"savings"`
		Categories    []struct {
			Name   string `json:"name"`
			Amount string `json:"amount"`
		} `json:"categories"`
		Chart []struct {
			Label   string  `json:"label"`
			Percent float64 `json:"percent"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, rr.Body.String())
	}
	if got.Month.Label != "marzo de 2024" || got.Income != "1500" || got.Expenses != "262.5" || got.Balance != "1237.5" {
		t.Fatalf("totals: %+v", got)
	}
	if got.EmergencyFund != "200" || got.Savings != "300" {
		t.Fatalf("fund/savings: %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0].Name != "Comida" || len(got.Chart) != 2 || got.Chart[0].Percent != 80 {
		t.Fatalf("categories/chart: %+v %+v", got.Categories, got.Chart)
	}

	rr = do(srv, http.MethodGet, "/api/summary?key=2024-04", nil)
	if !strings.Contains(rr.Body.String(), `"amount":"S/ ****"`) || strings.Contains(rr.Body.String(), `"amount":"S/ 2000.00"`) {
		t.Fatalf("salary line leaked: %s", rr.Body.String())
	}

	if rr := do(srv, http.MethodGet, "/api/summary?year=2020&month=1", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown month status=%d", rr.Code)
	}
}

func TestMonthsJSON(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})
	rr := do(srv, http.MethodGet, "/api/months", nil)
	var months []monthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &months); err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0].Key != "2024-03" || months[1].Label != "abril de 2024" {
		t.Fatalf("months: %+v", months)
	}
}

func TestReload(t *testing.T) {
	src := &stubSource{text: ledgerCSV}
	srv, ctrl := newTestServer(t, src, true, Options{ReloadLimit: 3})

	if rr := do(srv, http.MethodGet, "/reload", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reload status=%d", rr.Code)
	}

	rr := do(srv, http.MethodPost, "/reload", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("reload: %d %v", rr.Code, rr.Header())
	}

	rr = do(srv, http.MethodPost, "/reload", map[string]string{"HX-Request": "true"})
	if rr.Code != http.StatusNoContent || rr.Header().Get("HX-Refresh") != "true" {
		t.Fatalf("htmx reload: %d %v", rr.Code, rr.Header())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"records":6`) {
		t.Fatalf("trigger: %s", rr.Header().Get("HX-Trigger"))
	}

	src.err = errors.New("timeout")
	rr = do(srv, http.MethodPost, "/reload", nil)
	if rr.Code != http.StatusBadGateway || ctrl.Session() != nil {
		t.Fatalf("failed reload: %d, session=%v", rr.Code, ctrl.Session() != nil)
	}

	rr = do(srv, http.MethodPost, "/reload", nil)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("rate limit: %d", rr.Code)
	}
}

type fakeHistory struct {
	events []history.LoadEvent
}

func (f fakeHistory) RecentLoads(_ context.Context, limit int) ([]history.LoadEvent, error) {
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func TestLoadsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})
	if rr := do(srv, http.MethodGet, "/api/loads", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("no history status=%d", rr.Code)
	}

	h := fakeHistory{events: []history.LoadEvent{
		{ID: "b", Source: "stub", StartedAt: time.Now(), Success: false, Error: "timeout"},
		{ID: "a", Source: "stub", StartedAt: time.Now(), Success: true, Records: 6, DiagnosticCount: 1, Diagnostics: []string{"Row 7: x"}},
	}}
	srv, _ = newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{History: h})
	rr := do(srv, http.MethodGet, "/api/loads?limit=1", nil)
	var got []loadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b" || got[0].Error != "timeout" {
		t.Fatalf("loads: %+v", got)
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, &stubSource{text: ledgerCSV}, true, Options{})
	rr := do(srv, http.MethodGet, "/static/app.css", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age") {
		t.Fatalf("static: %d %v", rr.Code, rr.Header())
	}
}

package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/chart"
	"finanzas/internal/core"
	"finanzas/internal/dashboard"
	"finanzas/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady is ready only while a session is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.dash.Session() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type monthOption struct {
	Key      string
	Label    string
	Selected bool
}

type indexData struct {
	LoadError   string
	Source      string
	LoadedAt    string
	Records     int
	Months      []monthOption
	View        dashboard.View
	Diagnostics []string
	Entries     entriesView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	sess := s.dash.Session()
	if sess == nil {
		msg := "Los datos aún no se han cargado."
		if err := s.dash.LastError(); err != nil {
			msg = err.Error()
		}
		s.render(w, r, http.StatusServiceUnavailable, "dashboard.html",
			indexData{LoadError: msg, Entries: newEntriesView(s.entries, "")})
		return
	}

	data := indexData{
		Source:   sess.Source(),
		LoadedAt: sess.LoadedAt().Format("02/01/2006 15:04"),
		Records:  sess.RecordCount(),
		Entries:  newEntriesView(s.entries, ""),
	}
	for _, d := range sess.Diagnostics() {
		data.Diagnostics = append(data.Diagnostics, d.String())
	}

	view, err := s.dash.SelectDefault()
	switch {
	case err == nil:
		data.View = view
		for _, m := range sess.Months() {
			data.Months = append(data.Months, monthOption{
				Key:      m.String(),
				Label:    m.Title(),
				Selected: m == view.Selected,
			})
		}
	case errors.Is(err, dashboard.ErrUnknownMonth):
		// header-only ledger: nothing to select
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Default month selection failed", log.FieldError, err)
	}

	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

// handleMonthPartial renders one month for the selector swap.
func (s *Server) handleMonthPartial(w http.ResponseWriter, r *http.Request) {
	view, status, err := s.selectFromQuery(r)
	if err != nil {
		ErrorResponse(status, err.Error()).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "month.html", view)
}

type monthResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

func newMonthResponse(m core.MonthKey) monthResponse {
	return monthResponse{Year: m.Year, Month: m.Month, Key: m.String(), Label: m.Label()}
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	sess := s.dash.Session()
	if sess == nil {
		writeJSONError(w, http.StatusServiceUnavailable, dashboard.ErrNotLoaded.Error())
		return
	}
	out := []monthResponse{}
	for _, m := range sess.Months() {
		out = append(out, newMonthResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type lineResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Redacted    bool   `json:"redacted,omitempty"`
}

type categoryResponse struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type summaryResponse struct {
	Month         monthResponse      `json:"month"`
	Income        decimal.Decimal    `json:"income"`
	Expenses      decimal.Decimal    `json:"expenses"`
	Balance       decimal.Decimal    `json:"balance"`
	Savings       decimal.Decimal    `json:"savings"`
	EmergencyFund decimal.Decimal    `json:"emergency_fund"`
	Categories    []categoryResponse `json:"categories"`
	Incomes       []lineResponse     `json:"incomes"`
	Fixed         []lineResponse     `json:"fixed"`
	Variable      []lineResponse     `json:"variable"`
	Chart         []chart.Slice      `json:"chart"`
}

func linesResponse(lines []core.Line) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		// Display already carries the placeholder for redacted lines
		out = append(out, lineResponse{
			Date:        l.Date.Label(),
			Description: l.Description,
			Category:    l.Category,
			Amount:      l.Display,
			Redacted:    l.Redacted,
		})
	}
	return out
}

func newSummaryResponse(v dashboard.View) summaryResponse {
	sum := v.Summary
	resp := summaryResponse{
		Month:         newMonthResponse(v.Selected),
		Income:        sum.Income,
		Expenses:      sum.Expenses,
		Balance:       sum.Balance,
		Savings:       sum.Savings,
		EmergencyFund: sum.EmergencyFund,
		Categories:    make([]categoryResponse, 0, len(sum.Categories)),
		Incomes:       linesResponse(sum.Incomes),
		Fixed:         linesResponse(sum.Fixed),
		Variable:      linesResponse(sum.Variable),
		Chart:         []chart.Slice{},
	}
	for _, c := range sum.Categories {
		resp.Categories = append(resp.Categories, categoryResponse{Name: c.Name, Amount: c.Amount})
	}
	if v.Chart != nil {
		resp.Chart = append(resp.Chart, v.Chart.Slices...)
	}
	return resp
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, status, err := s.selectFromQuery(r)
	if err != nil {
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(view))
}

// selectFromQuery resolves the requested month, defaulting to the first one.
func (s *Server) selectFromQuery(r *http.Request) (dashboard.View, int, error) {
	month, found, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		return dashboard.View{}, http.StatusBadRequest, err
	}
	var view dashboard.View
	if found {
		view, err = s.dash.Select(month)
	} else {
		view, err = s.dash.SelectDefault()
	}
	switch {
	case err == nil:
		return view, http.StatusOK, nil
	case errors.Is(err, dashboard.ErrNotLoaded):
		return view, http.StatusServiceUnavailable, err
	case errors.Is(err, dashboard.ErrUnknownMonth):
		return view, http.StatusNotFound, err
	default:
		return view, http.StatusInternalServerError, err
	}
}

// handleReload re-runs the load. htmx callers get a page refresh, plain
// form posts a redirect back to the page.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	ctx := r.Context()
	sess, err := s.dash.Load(ctx)
	if errors.Is(err, context.Canceled) {
		// client went away; the load carries on without it
		log.FromContext(ctx).InfoContext(ctx, "Reload abandoned by client")
		return
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Reload failed", log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "No se pudieron recargar los datos: "+err.Error()).Write(w)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().
			Status(http.StatusNoContent).
			TriggerReloaded(sess.RecordCount(), len(sess.Diagnostics())).
			Refresh().
			Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type loadResponse struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Records     int       `json:"records"`
	Diagnostics []string  `json:"diagnostics"`
	Rejected    int       `json:"rejected"`
}

// handleLoads lists recent loads from the history store.
func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONError(w, http.StatusNotFound, "load history is not configured")
		return
	}
	ctx := r.Context()
	events, err := s.history.RecentLoads(ctx, ParseLimit(r.URL.Query(), 20, 200))
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Load history query failed", log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "load history unavailable")
		return
	}
	out := make([]loadResponse, 0, len(events))
	for _, e := range events {
		diags := e.Diagnostics
		if diags == nil {
			diags = []string{}
		}
		out = append(out, loadResponse{
			ID: e.ID, Source: e.Source, StartedAt: e.StartedAt,
			DurationMs: e.Duration.Milliseconds(), Success: e.Success, Error: e.Error,
			Records: e.Records, Diagnostics: diags, Rejected: e.DiagnosticCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// render executes a template into a buffer so a failure never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		ctx := r.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			log.FieldError, err, "template", name, log.FieldOperation, log.OpRender)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/entries"
	"finanzas/internal/log"
)

// msgInvalidEntry is shown when either form field is missing or malformed.
const msgInvalidEntry = "Por favor, completa ambos campos correctamente."

type entriesView struct {
	Entries []entries.Entry
	Balance decimal.Decimal
	Error   string
}

func newEntriesView(b *entries.Book, errMsg string) entriesView {
	snap := b.Snapshot()
	return entriesView{Entries: snap.Entries, Balance: snap.Balance, Error: errMsg}
}

// handleEntriesPartial renders the manual entry list and form.
func (s *Server) handleEntriesPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "entries.html", newEntriesView(s.entries, ""))
}

// handleAddEntry appends a manual entry. htmx callers get the refreshed
// partial; plain form posts are redirected back to the page.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Formato de solicitud no válido").Write(w)
		return
	}

	e, err := s.entries.Add(r.PostForm.Get("description"), r.PostForm.Get("amount"))
	switch {
	case errors.Is(err, entries.ErrInvalidEntry):
		log.FromContext(ctx).InfoContext(ctx, "Manual entry rejected",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeValidation)
		s.renderEntries(w, r, http.StatusUnprocessableEntity, msgInvalidEntry, nil)
		return
	case errors.Is(err, entries.ErrBookFull):
		s.renderEntries(w, r, http.StatusConflict, "Se alcanzó el máximo de movimientos manuales.", nil)
		return
	case err != nil:
		log.FromContext(ctx).ErrorContext(ctx, "Manual entry failed", log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "No se pudo agregar el movimiento").Write(w)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Manual entry added",
		"entry_id", e.ID, "kind", string(e.Kind), log.FieldOperation, log.OpRecord)

	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/#entries", http.StatusSeeOther)
		return
	}
	s.renderEntries(w, r, http.StatusOK, "", NewHTMXResponse().TriggerEntryAdded(e.ID, string(e.Kind)))
}

// handleClearEntries empties the manual entry list.
func (s *Server) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	s.entries.Clear()
	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/#entries", http.StatusSeeOther)
		return
	}
	s.renderEntries(w, r, http.StatusOK, "", nil)
}

// renderEntries writes the entries partial through b, which may carry triggers.
func (s *Server) renderEntries(w http.ResponseWriter, r *http.Request, status int, errMsg string, b *HTMXResponseBuilder) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "entries.html", newEntriesView(s.entries, errMsg)); err != nil {
		ctx := r.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			log.FieldError, err, "template", "entries.html", log.FieldOperation, log.OpRender)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Status(status).BodyHTML(buf.String()).Write(w)
}

type entryResponse struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Display     string          `json:"display"`
	Kind        string          `json:"kind"`
	AddedAt     time.Time       `json:"added_at"`
}

type entriesResponse struct {
	Entries []entryResponse `json:"entries"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) handleEntriesJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.entries.Snapshot()
	out := entriesResponse{Entries: make([]entryResponse, 0, len(snap.Entries)), Balance: snap.Balance}
	for _, e := range snap.Entries {
		out.Entries = append(out.Entries, entryResponse{
			ID: e.ID, Description: e.Description, Amount: e.Amount,
			Display: e.Display(), Kind: string(e.Kind), AddedAt: e.AddedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheets reads a range through the Sheets API and re-encodes it as CSV so
// the ledger parser stays the only place rows are validated.
type Sheets struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	timeout       time.Duration
}

// NewSheets creates a read-only Sheets client. opts carry credentials or,
// in tests, an endpoint override.
func NewSheets(ctx context.Context, spreadsheetID, rng string, timeout time.Duration, opts ...goption.ClientOption) (*Sheets, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, rng: rng, timeout: timeout}, nil
}

func (s *Sheets) Name() string { return "sheets:" + s.spreadsheetID }

func (s *Sheets) Fetch(ctx context.Context) (string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.rng, err)
	}
	return encodeValues(resp.Values)
}

// encodeValues writes the value matrix as CSV. The API drops trailing empty
// cells, so rows are padded to the header width like a CSV export would be.
func encodeValues(values [][]interface{}) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	width := 0
	if len(values) > 0 {
		width = len(values[0])
	}
	for _, row := range values {
		n := len(row)
		if n < width {
			n = width
		}
		record := make([]string, n)
		for i, cell := range row {
			record[i] = fmt.Sprint(cell)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("encode row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	if b.Len() > MaxBodyBytes {
		return "", ErrTooLarge
	}
	return b.String(), nil
}

func credentialsJSON(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

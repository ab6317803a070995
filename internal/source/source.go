// Package source fetches the raw spreadsheet text a dashboard load parses.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/config"
)

// Source yields the full CSV text of the ledger.
type Source interface {
	// Name identifies the source in logs and load history.
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// MaxBodyBytes caps how much text a single fetch may return.
const MaxBodyBytes = 10 << 20

var ErrTooLarge = errors.New("source exceeds 10 MiB")

// New builds the source selected by cfg.SourceKind.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.SourceKind {
	case config.SourceHTTP:
		logger.Info("Using published CSV source", "url", cfg.SourceURL, "timeout", cfg.FetchTimeout)
		return NewHTTP(cfg.SourceURL, cfg.FetchTimeout), nil
	case config.SourceFile:
		logger.Info("Using local CSV source", "path", cfg.SourceFile)
		return NewFile(cfg.SourceFile), nil
	case config.SourceSheets:
		creds, err := credentialsJSON(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		s, err := NewSheets(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange, cfg.FetchTimeout,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
		if err != nil {
			return nil, err
		}
		logger.Info("Using Google Sheets source", "spreadsheet_id", cfg.GoogleSpreadsheetID, "range", cfg.GoogleSheetRange)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", cfg.SourceKind)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

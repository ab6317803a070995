// Package ledger turns the exported finance sheet into validated records.
//
// Every data row either becomes a core.Record or a Diagnostic; a bad row
// never stops the rows after it.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"finanzas/internal/core"
)

// Header names of the sheet columns.
const (
	ColDate        = "Fecha"
	ColType        = "Tipo"
	ColDescription = "Descripción"
	ColAmount      = "Monto"
	ColCategory    = "Categoría"
)

var requiredColumns = []string{ColDate, ColType, ColDescription, ColAmount}

var ErrNoHeader = errors.New("document has no header row")

// Options tunes parsing.
type Options struct {
	// RejectUnknownTypes turns a Tipo outside ingreso/egreso fijo/egreso
	// variable into a row diagnostic. By default such rows are kept and the
	// aggregator ignores them.
	RejectUnknownTypes bool
}

// Diagnostic describes a rejected row.
type Diagnostic struct {
	Row    int    // 1 = first row after the header
	Reason string
	Raw    string // row text as it appeared in the input
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("Row %d: %s → \"%s\"", d.Row, d.Reason, d.Raw)
}

// Result holds the surviving records and the diagnostics of rejected rows.
type Result struct {
	Records     []core.Record
	Diagnostics []Diagnostic
}

// Rows returns the number of data rows seen.
func (r Result) Rows() int {
	return len(r.Records) + len(r.Diagnostics)
}

// Messages renders the diagnostics for display.
func (r Result) Messages() []string {
	out := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = d.String()
	}
	return out
}

// Parse parses the sheet text with default options.
func Parse(text string) (Result, error) {
	return Options{}.Parse(text)
}

// Parse reads the header, then validates each data row in turn.
func (o Options) Parse(text string) (Result, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // column count is checked per row below

	header, err := r.Read()
	if err == io.EOF {
		return Result{}, ErrNoHeader
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = normalizeHeader(h)
	}
	var res Result
	offset := r.InputOffset()
	for row := 1; ; row++ {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		end := r.InputOffset()
		raw := rawRow(text, offset, end)
		offset = end

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Row: row, Reason: "malformed row: " + perr.Err.Error(), Raw: raw})
				continue
			}
			return res, fmt.Errorf("read row %d: %w", row, err)
		}

		rec, reason := o.convert(cols, cells)
		if reason != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Row: row, Reason: reason, Raw: raw})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// convert validates one row and returns either a record or a reason.
func (o Options) convert(cols, cells []string) (core.Record, string) {
	if len(cells) != len(cols) {
		return core.Record{}, fmt.Sprintf("wrong number of fields (expected %d, got %d)", len(cols), len(cells))
	}
	fields := make(map[string]string, len(cols))
	for i, name := range cols {
		fields[name] = strings.TrimSpace(cells[i])
	}
	for _, name := range requiredColumns {
		if fields[name] == "" {
			return core.Record{}, "missing required field " + name
		}
	}

	date, reason := parseDate(fields[ColDate])
	if reason != "" {
		return core.Record{}, reason
	}
	amount, err := core.ParseAmount(fields[ColAmount])
	if err != nil {
		return core.Record{}, fmt.Sprintf("invalid amount %q", fields[ColAmount])
	}
	typ := core.ParseType(fields[ColType])
	if o.RejectUnknownTypes && !typ.Known() {
		return core.Record{}, fmt.Sprintf("unknown type %q", fields[ColType])
	}

	return core.Record{
		Date:        date,
		Type:        typ,
		RawType:     fields[ColType],
		Description: fields[ColDescription],
		Amount:      amount,
		Category:    fields[ColCategory],
	}, ""
}

// parseDate reads day/month/year. The year is taken as written, so "24"
// is year 24 and not 1924 or 2024.
func parseDate(s string) (core.Date, string) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return core.Date{}, fmt.Sprintf("invalid date format %q (want day/month/year)", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return core.Date{}, fmt.Sprintf("invalid date %q", s)
		}
		n[i] = v
	}
	d, err := core.DateOf(n[2], n[1], n[0])
	if err != nil {
		return core.Date{}, fmt.Sprintf("invalid date %q", s)
	}
	return d, ""
}

// normalizeHeader trims and NFC-composes a header cell so "Descripción"
// matches whether the accent arrives composed or decomposed.
func normalizeHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(h))
}

func rawRow(text string, start, end int64) string {
	if start < 0 || end > int64(len(text)) || start > end {
		return ""
	}
	return strings.Trim(text[start:end], "\r\n")
}

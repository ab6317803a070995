package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"finanzas/internal/config"
)

const sample = "Fecha,Tipo,Descripción,Monto\n01/03/2024,ingreso,Sueldo,1500\n"

func TestHTTPFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, sample)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL+"/pub?output=csv", time.Second).WithClient(srv.Client())
	got, err := h.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != sample {
		t.Fatalf("got %q", got)
	}
	if !strings.HasPrefix(h.Name(), "http:127.0.0.1") {
		t.Fatalf("name: %s", h.Name())
	}
}

func TestHTTPFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) },
			want:    "unexpected status 500",
		},
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			want:    "unexpected status 404",
		},
		{
			name: "too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				chunk := strings.Repeat("x", 1<<20)
				for i := 0; i < 11; i++ {
					fmt.Fprint(w, chunk)
				}
			},
			want: ErrTooLarge.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewHTTP(srv.URL, time.Second*5).WithClient(srv.Client()).Fetch(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestHTTPFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTP(srv.URL, 50*time.Millisecond).WithClient(srv.Client()).Fetch(context.Background())
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestFileFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path)
	got, err := f.Fetch(context.Background())
	if err != nil || got != sample {
		t.Fatalf("got %q err %v", got, err)
	}
	if _, err := NewFile(path + ".missing").Fetch(context.Background()); err == nil {
		t.Fatalf("missing file should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx: %v", err)
	}
}

func TestEncodeValuesPadsRows(t *testing.T) {
	got, err := encodeValues([][]interface{}{
		{"Fecha", "Tipo", "Descripción", "Monto", "Categoría"},
		{"01/03/2024", "egreso variable", "Menú, postre", 12.5, "Comida"},
		{"02/03/2024", "ingreso", "Pago", "100"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "Fecha,Tipo,Descripción,Monto,Categoría\n" +
		"01/03/2024,egreso variable,\"Menú, postre\",12.5,Comida\n" +
		"02/03/2024,ingreso,Pago,100,\n"
	if got != want {
		t.Fatalf("got\n%q\nwant\n%q", got, want)
	}
	if empty, _ := encodeValues(nil); empty != "" {
		t.Fatalf("empty matrix: %q", empty)
	}
}

func TestSheetsFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"range":"Hoja1!A1:D2","majorDimension":"ROWS","values":[["Fecha","Tipo","Descripción","Monto"],["01/03/2024","ingreso","Sueldo","1500"]]}`)
	}))
	defer srv.Close()

	s, err := NewSheets(context.Background(), "sheet-id", "Hoja1!A:D", time.Second,
		goption.WithEndpoint(srv.URL+"/"), goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new sheets: %v", err)
	}
	got, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != sample {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(gotPath, "/v4/spreadsheets/sheet-id/values/") {
		t.Fatalf("path: %s", gotPath)
	}
	if s.Name() != "sheets:sheet-id" {
		t.Fatalf("name: %s", s.Name())
	}
}

func TestNewFromConfig(t *testing.T) {
	s, err := New(context.Background(), &config.Config{SourceKind: config.SourceFile, SourceFile: "x.csv"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*File); !ok {
		t.Fatalf("got %T", s)
	}
	s, err = New(context.Background(), &config.Config{SourceKind: config.SourceHTTP, SourceURL: "https://example.com/x.csv"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*HTTP); !ok {
		t.Fatalf("got %T", s)
	}
	if _, err := New(context.Background(), &config.Config{SourceKind: config.SourceSheets, GoogleSpreadsheetID: "x"}, nil); err == nil {
		t.Fatalf("sheets without credentials should fail")
	}
	if _, err := New(context.Background(), &config.Config{SourceKind: "ftp"}, nil); err == nil {
		t.Fatalf("unknown kind should fail")
	}
}

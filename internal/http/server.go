// Package http serves the dashboard page, its partials and a small JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/dashboard"
	"finanzas/internal/entries"
	"finanzas/internal/history"
	"finanzas/internal/log"
	appweb "finanzas/web"
)

// Dashboard is the part of the controller the handlers use.
type Dashboard interface {
	Load(ctx context.Context) (*dashboard.Session, error)
	Session() *dashboard.Session
	LastError() error
	Select(month core.MonthKey) (dashboard.View, error)
	SelectDefault() (dashboard.View, error)
}

type Options struct {
	Logger *log.Logger
	// History, when set, backs GET /api/loads.
	History history.Reader
	// Entries holds manually typed transactions. A fresh book is used if nil.
	Entries *entries.Book
	// ReloadLimit is the number of POSTs allowed per client per minute.
	ReloadLimit int
}

type Server struct {
	http.Server
	templates   *template.Template
	dash        Dashboard
	history     history.Reader
	entries     *entries.Book
	logger      *log.Logger
	access      *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     securityMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and parses the embedded templates.
func NewServer(addr string, dash Dashboard, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.ReloadLimit <= 0 {
		opts.ReloadLimit = 60
	}
	if opts.Entries == nil {
		opts.Entries = entries.NewBook()
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(logger, requestIDFromHeader)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		dash:        dash,
		history:     opts.History,
		entries:     opts.Entries,
		logger:      logger,
		access:      log.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(opts.ReloadLimit, time.Minute),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("GET /ui/month", s.withSecurityHeaders(s.handleMonthPartial))
	mux.HandleFunc("GET /api/months", s.withSecurityHeaders(s.handleMonths))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/loads", s.withSecurityHeaders(s.handleLoads))
	mux.HandleFunc("GET /ui/entries", s.withSecurityHeaders(s.handleEntriesPartial))
	mux.HandleFunc("POST /entries", s.withSecurityHeaders(s.handleAddEntry))
	mux.HandleFunc("POST /entries/clear", s.withSecurityHeaders(s.handleClearEntries))
	mux.HandleFunc("GET /api/entries", s.withSecurityHeaders(s.handleEntriesJSON))
	mux.HandleFunc("/reload", s.withSecurityHeaders(s.handleReload))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return s
}

// requestIDFromHeader keeps an upstream X-Request-ID or makes a new one.
func requestIDFromHeader(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" && len(id) <= 64 {
		return id
	}
	id := generateRequestID()
	r.Header.Set("X-Request-ID", id)
	return id
}

// withSecurityHeaders adds security headers, POST rate limiting and access logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		if reason := detectSuspiciousRequest(r, &s.metrics); reason != "" {
			logger.WarnContext(ctx, "Suspicious request", "reason", reason,
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path, log.FieldUserAgent, r.UserAgent())
		}

		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)
		s.access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

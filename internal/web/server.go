// Package web provides the HTTP server for uploading, cleaning and
// exporting tables.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/sheetprep/internal/config"
	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/session"
	"github.com/JonMunkholm/sheetprep/internal/sink"
	mw "github.com/JonMunkholm/sheetprep/internal/web/middleware"
)

// TableExporter writes a processed table to an external store.
// *sink.Postgres satisfies it.
type TableExporter interface {
	Enabled() bool
	Export(ctx context.Context, table string, t *core.Table, opts sink.Options) (sink.Result, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Config  *config.Config
	Store   *session.Store
	Limiter *session.Limiter
	// Exporter may be nil, in which case database export is disabled.
	Exporter TableExporter
	Logger   *slog.Logger
}

// Server is the HTTP server for the table preparation UI and API.
type Server struct {
	cfg      *config.Config
	store    *session.Store
	limiter  *session.Limiter
	exporter TableExporter
	logger   *slog.Logger
	validate *validator.Validate

	router *chi.Mux
	server *http.Server
	rate   *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = session.NewLimiter(d.Config.Upload.MaxConcurrent, d.Config.Upload.MaxWaitTime)
	}

	s := &Server{
		cfg:      d.Config,
		store:    d.Store,
		limiter:  limiter,
		exporter: d.Exporter,
		logger:   logger,
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.rate = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.rate.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/sessions/{id}", s.handleSessionPage)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Get("/status", s.handleStatus)
		r.Post("/sessions", s.handleUpload)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			// Processing steps
			r.Post("/region", s.handleRegion)
			r.Post("/convert", s.handleConvert)
			r.Post("/filter", s.handleFilter)
			r.Post("/reset", s.handleReset)

			// Queries
			r.Get("/stats", s.handleStats)
			r.Get("/describe", s.handleDescribe)
			r.Get("/date-bounds/{column}", s.handleDateBounds)
			r.Post("/find", s.handleFind)
			r.Post("/analyze", s.handleAnalyze)

			// Export
			r.Get("/export", s.handleExport)
			r.Post("/export/postgres", s.handleExportPostgres)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for handlers to return and then
// for in-flight file loads to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rate != nil {
		s.rate.Close()
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// htmx is loaded from unpkg; inline styles are used by the pages.
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

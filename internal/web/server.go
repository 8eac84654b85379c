// Package web provides the HTTP server and handlers for the sweeper UI and API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	"github.com/JonMunkholm/sweeper/internal/web/middleware"
)

// Server is the HTTP server for the sweeper.
type Server struct {
	cfg      *config.Config
	pipeline *core.Pipeline
	limiter  *core.BatchLimiter
	metrics  *metrics.Recorder
	rate     *middleware.RateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance. rec may be nil.
func NewServer(cfg *config.Config, p *core.Pipeline, lim *core.BatchLimiter, rec *metrics.Recorder) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		limiter:  lim,
		metrics:  rec,
		router:   chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.rate = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	if s.cfg.Security.TrustProxy {
		s.router.Use(chimw.RealIP)
	}
	var obs middleware.RequestObserver
	if s.metrics != nil {
		obs = s.metrics
	}
	s.router.Use(middleware.Logger(obs))
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(s.securityHeaders)

	if s.rate != nil {
		s.router.Use(s.rate.Handler(s.handleRateLimited))
	}
	s.router.Use(s.limitBody)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/sweep", s.handleSweepPage)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/sweep", s.handleSweepAPI)
		r.Post("/convert", s.handleConvert)
		r.Post("/preview", s.handlePreview)
	})

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight batches.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil && err == nil {
		err = drainErr
	}
	return err
}

// RateLimiter returns the per-IP limiter, or nil when rate limiting is off.
func (s *Server) RateLimiter() *middleware.RateLimiter { return s.rate }

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		if s.cfg.Security.EnableCSP {
			// Pages carry inline styles and data: download links; no scripts.
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// limitBody caps every request body at UPLOAD_MAX_FILE_SIZE.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status     string             `json:"status"`
	Batches    core.LimiterStatus `json:"batches"`
	Publishing bool               `json:"publishing"`
	Time       time.Time          `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:     "ok",
		Batches:    s.limiter.Status(),
		Publishing: s.pipeline.CanPublish(),
		Time:       time.Now().UTC(),
	})
}

// Package api exposes the action executor and run status over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/outreach/internal/action"
	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/pipeline"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	executor   *action.Executor
	manager    *pipeline.Manager
	audit      *action.Logger
	metrics    *metrics.Metrics
	config     *config.Config
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(executor *action.Executor, manager *pipeline.Manager, audit *action.Logger, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		executor:  executor,
		manager:   manager,
		audit:     audit,
		metrics:   m,
		config:    cfg,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.metrics.HTTPMiddleware)

		r.Post("/actions", s.handleExecuteAction)
		r.Get("/actions/log", s.handleActionLog)
		r.Get("/actions/stats", s.handleActionStats)
		r.Get("/campaigns/{id}/run", s.handleRunStatus)
	})
}

// Router returns the underlying router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

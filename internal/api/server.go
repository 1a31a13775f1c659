package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/engine"
	"github.com/opensource-finance/myna/internal/ratelimit"
	"github.com/opensource-finance/myna/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, registry *rules.Registry, limiter *ratelimit.Limiter, rulesCfg domain.RulesConfig, version string) *Server {
	handler := NewHandler(repo, cache, bus, eng, registry, rulesCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no user header required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (user header required)
	router.Route("/v1", func(r chi.Router) {
		r.Use(UserMiddleware)

		// Category records
		r.Put("/records/{category}", handler.UpsertRecord)
		r.Get("/records", handler.ListRecords)
		r.Get("/records/{category}", handler.GetRecord)
		r.Delete("/records/{category}", handler.DeleteRecord)

		// Comparisons
		r.With(RateLimitMiddleware(limiter, "comparisons")).
			Post("/comparisons", handler.GenerateComparison)
		r.Get("/comparisons/latest", handler.GetLatestComparison)

		// Rule set introspection
		r.Get("/rulesets", handler.ListRuleSets)
		r.Get("/rulesets/{regime}/{year}", handler.GetRuleSet)
		r.Post("/rulesets/reload", handler.ReloadRuleSets)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Package api exposes the scoring pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ecomtrust/kestrel/internal/auth"
	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/rules"
	"github.com/ecomtrust/kestrel/internal/scoring"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(
	cfg domain.ServerConfig,
	rateCfg domain.RateLimitConfig,
	store Store,
	c domain.Cache,
	cacheTTL time.Duration,
	bus domain.EventBus,
	scorer *scoring.Service,
	custom *rules.CustomEngine,
	tokens *auth.Manager,
	version string,
) *Server {
	handler := NewHandler(store, c, cacheTTL, bus, scorer, custom, tokens, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	var globalLimit, predictLimit func(http.Handler) http.Handler
	if rateCfg.Enabled {
		globalLimit = RateLimitMiddleware(c, "global", rateCfg.Requests, rateCfg.Window)
		predictLimit = RateLimitMiddleware(c, "predict", rateCfg.PredictRequests, rateCfg.PredictWindow)
	} else {
		passthrough := func(next http.Handler) http.Handler { return next }
		globalLimit = passthrough
		predictLimit = passthrough
	}

	// Health endpoints (no auth required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Token issuance (rate limited, no auth required)
	router.With(globalLimit).Post("/auth/token", handler.IssueToken)

	// API routes (auth required)
	router.Route("/", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))
		r.Use(globalLimit)

		// Scoring
		r.With(predictLimit).Post("/predict/review", handler.PredictReview)
		r.With(predictLimit).Post("/predict/transaction", handler.PredictTransaction)

		// Decision retrieval
		r.Get("/reviews/{id}", handler.GetReview)
		r.Get("/transactions/{id}", handler.GetTransaction)

		// Custom rule management
		r.Get("/rules", handler.ListRules)
		r.Post("/rules", handler.CreateRule)
		r.Post("/rules/reload", handler.ReloadRules)
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

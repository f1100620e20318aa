// Package server assembles the HTTP surface: routing, middleware,
// health and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pooriya-cloudS/mediqe/internal/accounts"
	"github.com/pooriya-cloudS/mediqe/internal/activity"
	"github.com/pooriya-cloudS/mediqe/internal/files"
	"github.com/pooriya-cloudS/mediqe/internal/records"
	"github.com/pooriya-cloudS/mediqe/internal/scheduling"
	"github.com/pooriya-cloudS/mediqe/pkg/config"
	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
)

// Handlers bundles the per-domain HTTP handlers registered on the API
// router.
type Handlers struct {
	Accounts   *accounts.Handlers
	Scheduling *scheduling.Handlers
	Records    *records.Handlers
	Files      *files.Handlers
	Activity   *activity.Handlers
}

// Server is the HTTP server for the clinic API
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	db         *database.DB
	tokens     TokenValidator
	metrics    *Metrics
	limiter    *RateLimiter
	router     *mux.Router
	httpServer *http.Server
}

// New creates a fully wired HTTP server
func New(cfg *config.Config, log *logger.Logger, db *database.DB, tokens TokenValidator, handlers *Handlers) *Server {
	s := &Server{
		config:  cfg,
		logger:  log,
		db:      db,
		tokens:  tokens,
		metrics: NewMetrics(),
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin)
	}

	s.router = s.buildRouter(handlers)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) buildRouter(handlers *Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.corsMiddleware)
	api.Use(s.securityHeadersMiddleware)
	api.Use(s.authMiddleware)
	api.Use(s.rateLimitMiddleware)

	handlers.Accounts.RegisterRoutes(api)
	handlers.Scheduling.RegisterRoutes(api)
	handlers.Records.RegisterRoutes(api)
	handlers.Files.RegisterRoutes(api)
	handlers.Activity.RegisterRoutes(api)

	return router
}

// healthHandler reports liveness and database reachability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK

	if err := s.db.Health(r.Context()); err != nil {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		s.logger.WithError(err).Error("Health check failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start begins serving. It blocks until the listener fails or the server
// is shut down.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

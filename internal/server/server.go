// Package server implements the orchestration service's HTTP surface
// (spec §6.1): one route per documented endpoint, a teacher-style
// middleware chain (request id, security headers, CORS, logging,
// recovery, rate limiting) with no authentication layer — these routes
// are internal-to-cluster, not end-user facing.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sprintlabs/orchestrator/internal/advisor"
	"github.com/sprintlabs/orchestrator/internal/audit"
	"github.com/sprintlabs/orchestrator/internal/config"
	"github.com/sprintlabs/orchestrator/internal/embedclient"
	"github.com/sprintlabs/orchestrator/internal/memory"
	"github.com/sprintlabs/orchestrator/internal/orchestrator"
	"github.com/sprintlabs/orchestrator/internal/ratelimit"
)

// Server is the orchestration service's HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Config holds all dependencies for constructing a Server.
type Config struct {
	Coordinator *orchestrator.Coordinator
	Auditor     *audit.Auditor
	Memory      *memory.Store
	Embedder    embedclient.Provider
	Advisor     *advisor.Advisor
	Cfg         config.Config
	Logger      *slog.Logger
	RateLimiter *ratelimit.MemoryLimiter
}

// New constructs the HTTP server with all routes registered.
func New(cfg Config) *Server {
	h := newHandlers(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orchestrate/project/{project_id}", h.handleOrchestrate)
	mux.HandleFunc("GET /orchestrate/intelligence/decision-impact/{project_id}", h.handleDecisionImpact)
	mux.HandleFunc("POST /orchestrate/intelligence/project/{project_id}/decision-mode", h.handleDecisionMode)
	mux.HandleFunc("GET /orchestrate/intelligence/decision-audit/{project_id}", h.handleDecisionAudit)
	mux.HandleFunc("GET /orchestrate/intelligence/performance/metrics/{project_id}", h.handlePerformanceMetrics)
	mux.HandleFunc("GET /health/ready", h.handleHealthReady)

	// Middleware chain (outermost executes first): request ID → security
	// headers → CORS → logging → recovery → rate limit → handler.
	var handler http.Handler = mux
	if cfg.RateLimiter != nil {
		handler = rateLimitMiddleware(cfg.RateLimiter, cfg.Logger, handler)
	}
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = corsMiddleware(cfg.Cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.Cfg.ReadTimeout,
			WriteTimeout: cfg.Cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.Cfg.ReadTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

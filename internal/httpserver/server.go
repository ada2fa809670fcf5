// Package httpserver assembles the gateway's HTTP surface: the public
// health/docs endpoints, the gated /api/* pipeline mount, and the
// bearer-authenticated /admin/* mount, behind a shared middleware
// chain. Grounded on the teacher's Server/ConfigureRouter split (one
// *http.Server wrapping a chi.Router built by a router-configuration
// function), with the Stripe/cart/subscription/refund/MCP/A2A resource
// groups replaced by the gateway's three-surface design (spec.md §6.1).
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/x402gateway/gateway/internal/httphandlers"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/ratelimit"
	"github.com/x402gateway/gateway/internal/routes"
)

// Config holds everything the router needs beyond the resource
// handlers themselves.
type Config struct {
	Addr               string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	RateLimit          ratelimit.Config
}

// Server wraps the chi-routed *http.Server.
type Server struct {
	httpServer *http.Server
}

// New builds the gateway's HTTP server: pipeline at /api/*, admin API
// at /admin/*, plus /health and /docs.
func New(cfg Config, table *routes.Table, pipeline http.Handler, admin httphandlers.Deps, appLogger zerolog.Logger) *Server {
	router := chi.NewRouter()
	ConfigureRouter(router, cfg, table, pipeline, admin, appLogger)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			Handler:      router,
		},
	}
}

// ConfigureRouter attaches the gateway's routes to an existing router,
// mirroring the teacher's ConfigureRouter(router, ...) shape so tests
// can mount onto an httptest server without going through New.
func ConfigureRouter(router chi.Router, cfg Config, table *routes.Table, pipeline http.Handler, admin httphandlers.Deps, appLogger zerolog.Logger) {
	if router == nil {
		return
	}

	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Receipt", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	// Security headers middleware (runs after CORS, when configured, and before all other middleware)
	router.Use(securityHeadersMiddleware)

	// Structured logging middleware (before RequestID for context propagation)
	router.Use(logger.Middleware(appLogger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Lightweight public endpoints: health, docs, metrics.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/health", healthHandler)
		r.Get("/docs", docsHandler(table))
		if cfg.MetricsEnabled {
			r.Handle("/metrics", promhttp.Handler())
		}
	})

	// Gated pipeline mount: every /api/* request runs the admission
	// pipeline after the agent-address rate limiter.
	router.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.AgentLimiter(cfg.RateLimit))
		r.Mount("/", pipeline)
	})

	// Bearer-authenticated admin surface.
	router.Mount("/admin", httphandlers.Router(admin))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Serial-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	SerialHandler  *handlers.SerialHandler
	PatternHandler *handlers.PatternHandler
	HealthHandler  *handlers.HealthHandler

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	CORSMiddleware      *middleware.CORSMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// MaxBodySize caps request bodies; zero means no limit.
	MaxBodySize int64

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete HTTP route tree from the given configuration.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	r.Use(chimw.Recoverer)
	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
		r.Get("/health", cfg.HealthHandler.Detailed)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}
		registerSerialRoutes(api, cfg.SerialHandler, cfg.RateLimitMiddleware)
		registerPatternRoutes(api, cfg.PatternHandler)
	})

	return r
}

// registerSerialRoutes mounts extraction, generation and export endpoints
// under /serials. Only this group is rate limited.
func registerSerialRoutes(r chi.Router, h *handlers.SerialHandler, limit *middleware.RateLimitMiddleware) {
	if h == nil {
		return
	}
	r.Route("/serials", func(sr chi.Router) {
		if limit != nil {
			sr.Use(limit.Handler)
		}
		sr.Post("/extract", h.Extract)
		sr.Post("/generate", h.Generate)
		sr.Post("/exports", h.Export)
		sr.Get("/exports/{jobID}", h.GetExportJob)
	})
}

// registerPatternRoutes mounts pattern administration under /patterns.
func registerPatternRoutes(r chi.Router, h *handlers.PatternHandler) {
	if h == nil {
		return
	}
	r.Route("/patterns", func(pr chi.Router) {
		pr.Get("/", h.List)
		pr.Post("/", h.Create)
		pr.Post("/import", h.Import)
		pr.Get("/export", h.Export)

		pr.Route("/{id}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Put("/", h.Update)
			item.Delete("/", h.Delete)
			item.Post("/activate", h.Activate)
			item.Post("/deactivate", h.Deactivate)
		})
	})
}

//Personal.AI order the ending

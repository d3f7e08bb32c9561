// Package api assembles the HTTP surface of the gateway: the chi
// router, its middleware chain, and the route table.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/llmguardian/gateway/internal/api/handlers"
	"github.com/llmguardian/gateway/internal/api/middleware"
)

// NewRouter creates the HTTP router with all API routes. The metrics
// handler is injected so the router stays decoupled from the registry
// backing it.
func NewRouter(h *handlers.Handlers, auth *middleware.APIKeyAuth, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/completions", h.Complete)
		r.Get("/health", h.Health)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/cache", h.CacheAnalytics)
			r.Post("/cache/clear", h.ClearCache)
			r.Get("/pii", h.PIIAnalytics)
			r.Get("/models", h.ModelCatalog)
			r.Get("/summary", h.Summary)
			r.Get("/health", h.AnalyticsHealth)
		})
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", metrics)

	return r
}

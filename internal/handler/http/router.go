// Package http wires the search service's HTTP surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/service"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/health"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/middleware"
)

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	syncService *service.SyncService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("search"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(searchService, syncService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/listings/{id}", searchHandler.GetListing)

		// Facets and suggestions are safe for short shared-cache reuse.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))
			r.Get("/facets", searchHandler.Facets)
			r.Get("/suggest", searchHandler.Suggest)
		})

		r.Post("/reindex", searchHandler.Reindex)
	})

	return r
}

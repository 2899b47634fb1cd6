package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora/search-service/internal/personalization"
	"github.com/velora/search-service/internal/service"
	"github.com/velora/search-service/pkg/health"
	"github.com/velora/search-service/pkg/middleware"
)

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	indexService *service.IndexService,
	prefModel *personalization.Model,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("search"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(searchService, indexService, logger)
	prefHandler := NewPersonalizationHandler(prefModel, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/suggest", searchHandler.Suggest)

		r.Route("/personalization", func(r chi.Router) {
			r.Get("/{userID}", prefHandler.Profile)
			r.Delete("/{userID}", prefHandler.Invalidate)
			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/recalculate", prefHandler.Recalculate)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/index", searchHandler.IndexProduct)
			r.Post("/bulk", searchHandler.BulkIndex)
			r.Delete("/{id}", searchHandler.DeleteProduct)
		})
	})

	return r
}

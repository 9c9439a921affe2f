package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/health"
	"github.com/utafrali/AppStoreGo/pkg/httputil"
	"github.com/utafrali/AppStoreGo/pkg/middleware"
)

// ServiceName labels metrics and spans of this service.
const ServiceName = "catalog-search"

// listingMaxAge is the Cache-Control lifetime of listings that only change
// when the snapshot is refreshed.
const listingMaxAge = 60

// Services bundles the services the router exposes.
type Services struct {
	Catalog         *catalog.Catalog
	Search          *service.SearchService
	Engagement      *service.EngagementService
	Recommendations *service.RecommendationService
	Reviews         *service.ReviewService
}

// Options holds the middleware settings of the router.
type Options struct {
	CORS middleware.CORSConfig
	// RateLimit applies per client to the endpoints that record engagement
	// or reviews.
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all catalog-search routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	opts Options,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	limit := middleware.RateLimit(opts.RateLimit, logger)

	// Global middleware
	r.Use(middleware.CORS(opts.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(svcs.Search, logger)
	engagementHandler := NewEngagementHandler(svcs.Engagement, logger)
	recommendationHandler := NewRecommendationHandler(svcs.Recommendations, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, svcs.Search, logger)

	r.Route("/api/v1/apps", func(r chi.Router) {
		r.Get("/search", searchHandler.Search)
		r.Get("/suggest", searchHandler.Suggest)
		r.Get("/fuzzy", searchHandler.Fuzzy)
		r.Get("/advanced", searchHandler.AdvancedQuery)
		r.Get("/trending", engagementHandler.Trending)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(listingMaxAge))
			r.Get("/featured", searchHandler.Featured)
			r.Get("/recent", searchHandler.Recent)
			r.Get("/categories", searchHandler.Categories)
			r.Get("/categories/{name}", searchHandler.Category)
		})

		r.Get("/{id}", searchHandler.GetApp)
		r.Get("/{id}/recommendations", recommendationHandler.ForApp)
		r.With(limit).Post("/{id}/views", engagementHandler.RecordView)
		r.With(limit).Post("/{id}/downloads", engagementHandler.RecordDownload)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/advanced", searchHandler.AdvancedBody)
			r.With(limit).Post("/{id}/reviews", reviewHandler.CreateReview)
		})
	})

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Get("/recommendations", recommendationHandler.ForUser)
		r.With(ContentTypeJSON, limit).Post("/purchases", engagementHandler.RecordPurchase)
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/apps", catalogHandler.Export)
		r.With(ContentTypeJSON).Post("/apps", catalogHandler.Upsert)
		r.Post("/refresh", catalogHandler.Refresh)
	})

	return r
}

// ContentTypeJSON rejects request bodies declared as anything other than
// application/json. A missing Content-Type is accepted.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/reviewhub/internal/service"
	"github.com/utafrali/reviewhub/pkg/health"
	"github.com/utafrali/reviewhub/pkg/httputil"
	"github.com/utafrali/reviewhub/pkg/middleware"
)

// RouterDeps bundles what NewRouter wires together.
type RouterDeps struct {
	Catalog   *service.CatalogService
	Reviews   *service.ReviewService
	Assistant *service.AssistantService
	Health    *health.Handler
	Metrics   *middleware.HTTPMetrics
	Gatherer  prometheus.Gatherer
	CORS      middleware.CORSConfig
	Logger    *slog.Logger

	// AdminCIDRs, when set, restricts /metrics to these networks and
	// enables /debug/pprof for them.
	AdminCIDRs []string

	// CatalogCacheMaxAge sets Cache-Control on category and catalog stats
	// responses. Zero sends no header.
	CatalogCacheMaxAge time.Duration
}

// NewRouter creates a chi router with all ReviewHub routes registered.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.Tracing)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"},
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
		})
	})

	// Health check and metrics endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	var metricsHandler http.Handler
	if d.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
	}
	if len(d.AdminCIDRs) > 0 {
		admin := middleware.ParsePrefixes(d.AdminCIDRs, d.Logger)
		middleware.RegisterPprof(r, admin, d.Logger)
		if metricsHandler != nil {
			metricsHandler = middleware.AllowFrom(admin, d.Logger)(metricsHandler)
		}
	}
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	productHandler := NewProductHandler(d.Catalog, d.Logger)
	reviewHandler := NewReviewHandler(d.Reviews, d.Logger)
	assistantHandler := NewAssistantHandler(d.Assistant, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.CacheControl(d.CatalogCacheMaxAge)).Get("/categories", productHandler.ListCategories)
		r.With(middleware.CacheControl(d.CatalogCacheMaxAge)).Get("/catalog/stats", productHandler.CatalogStats)

		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{idOrSlug}", productHandler.GetProduct)

		r.Get("/products/{productId}/reviews", reviewHandler.ListReviews)
		r.Post("/products/{productId}/reviews", reviewHandler.CreateReview)
		r.Get("/products/{productId}/reviews/stats", reviewHandler.ReviewStats)
		r.Put("/reviews/{reviewId}/helpful", reviewHandler.MarkHelpful)

		r.Post("/products/{productId}/assistant/conversations", assistantHandler.StartConversation)
		r.Post("/products/{productId}/assistant/answers", assistantHandler.Answer)
		r.Get("/assistant/conversations/{conversationId}", assistantHandler.GetConversation)
		r.Post("/assistant/conversations/{conversationId}/messages", assistantHandler.Ask)
	})

	return r
}

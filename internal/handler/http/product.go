package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/service"
	"github.com/utafrali/reviewhub/pkg/httputil"
	"github.com/utafrali/reviewhub/pkg/pagination"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
		SortBy:   q.Get("sort_by"),
		Page:     page.Page,
		PerPage:  page.PerPage,
	}
	if !domain.IsValidSortOrder(filter.SortBy) {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER",
			"sort_by must be one of: "+strings.Join(domain.ValidSortOrders(), ", "))
		return
	}

	products, total, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(products, total, page),
	})
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
// It accepts both a UUID and a slug. ?reviews=N sets how many of the newest
// reviews are embedded.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")
	if idOrSlug == "" {
		httputil.WriteBadRequest(w, "INVALID_INPUT", "product id or slug is required")
		return
	}

	latest := service.DefaultLatestReviews
	if v := r.URL.Query().Get("reviews"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > pagination.MaxPerPage {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "reviews must be an integer between 1 and 100")
			return
		}
		latest = n
	}

	detail, err := h.catalog.Detail(r.Context(), idOrSlug, latest)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// ListCategories handles GET /api/v1/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cats})
}

// CatalogStats handles GET /api/v1/catalog/stats
func (h *ProductHandler) CatalogStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.catalog.Stats(r.Context(), domain.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// parsePage reads ?page and ?per_page strictly. Unlike pagination.FromRequest
// it rejects malformed values with a 400.
func parsePage(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	page, perPage := 1, pagination.DefaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "page must be a valid positive integer")
			return pagination.Params{}, false
		}
		page = n
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > pagination.MaxPerPage {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "per_page must be a valid integer between 1 and 100")
			return pagination.Params{}, false
		}
		perPage = n
	}
	return pagination.New(page, perPage), true
}

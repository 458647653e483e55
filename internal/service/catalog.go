package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
	"github.com/utafrali/reviewhub/internal/repository"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
)

// DefaultLatestReviews is how many reviews a product detail carries.
const DefaultLatestReviews = 5

// ProductDetail is a product with its rating aggregate and newest reviews.
type ProductDetail struct {
	Product       domain.Product  `json:"product"`
	Stats         insight.Stats   `json:"stats"`
	Sentiment     string          `json:"sentiment"`
	LatestReviews []domain.Review `json:"latest_reviews"`
}

// CatalogService implements catalog browsing.
type CatalogService struct {
	products repository.ProductRepository
	reviews  *ReviewService
	logger   *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(products repository.ProductRepository, reviews *ReviewService, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, reviews: reviews, logger: logger}
}

// List returns one page of products matching filter.
func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	if !domain.IsValidSortOrder(filter.SortBy) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf(
			"sort_by must be one of: %s", strings.Join(domain.ValidSortOrders(), ", ")))
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// Get resolves a product by id, or by slug when the key is not a UUID.
func (s *CatalogService) Get(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		return s.products.GetByID(ctx, idOrSlug)
	}
	return s.products.GetBySlug(ctx, strings.ToLower(idOrSlug))
}

// Detail returns the product with its stats and newest reviews.
func (s *CatalogService) Detail(ctx context.Context, idOrSlug string, latest int) (*ProductDetail, error) {
	p, err := s.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if latest <= 0 {
		latest = DefaultLatestReviews
	}

	stats, err := s.reviews.Stats(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	reviews, _, err := s.reviews.List(ctx, p.ID, 1, latest)
	if err != nil {
		return nil, err
	}

	return &ProductDetail{
		Product:       *p,
		Stats:         *stats,
		Sentiment:     stats.Sentiment(),
		LatestReviews: reviews,
	}, nil
}

// Categories returns the distinct categories, sorted, with "All" first.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return append([]string{domain.CategoryAll}, cats...), nil
}

// Stats summarizes the catalog, optionally scoped by category and search.
func (s *CatalogService) Stats(ctx context.Context, filter domain.ProductFilter) (*domain.CatalogStats, error) {
	stats, err := s.products.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	return stats, nil
}

// Package memory implements the repositories in process memory. It serves
// CATALOG_BACKEND=memory and deployments without Redis.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/seed"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/pagination"
)

// Catalog is a mutex-guarded product and review store. It satisfies both
// repository.ProductRepository and repository.ReviewRepository.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	order    []string                    // product ids in insertion order
	reviews  map[string][]*domain.Review // by product id, newest first
	byID     map[string]*domain.Review
	now      func() time.Time
}

// NewCatalog returns an empty store.
func NewCatalog() *Catalog {
	return &Catalog{
		products: make(map[string]*domain.Product),
		reviews:  make(map[string][]*domain.Review),
		byID:     make(map[string]*domain.Review),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewSeededCatalog returns a store preloaded with c.
func NewSeededCatalog(c *seed.Catalog) *Catalog {
	s := NewCatalog()
	for i := range c.Products {
		p := c.Products[i]
		s.products[p.ID] = &p
		s.order = append(s.order, p.ID)
	}
	for i := range c.Reviews {
		r := c.Reviews[i]
		s.reviews[r.ProductID] = append(s.reviews[r.ProductID], &r)
		s.byID[r.ID] = &r
	}
	return s
}

func (s *Catalog) matching(filter domain.ProductFilter) []domain.Product {
	var out []domain.Product
	for _, id := range s.order {
		if p := s.products[id]; filter.Matches(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (s *Catalog) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	matched := s.matching(filter)
	s.mu.RUnlock()

	sortProducts(matched, filter.SortBy)

	start, end := pagination.New(filter.Page, filter.PerPage).Window(len(matched))
	return matched[start:end], len(matched), nil
}

func sortProducts(ps []domain.Product, sortBy string) {
	byName := func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	var order func(a, b domain.Product) int
	switch sortBy {
	case domain.SortNameDesc:
		order = func(a, b domain.Product) int { return byName(b, a) }
	case domain.SortRatingDesc:
		order = func(a, b domain.Product) int {
			if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
				return c
			}
			return byName(a, b)
		}
	case domain.SortPriceAsc:
		order = func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceDesc:
		order = func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortNewest:
		order = func(a, b domain.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	default:
		order = byName
	}
	slices.SortStableFunc(ps, order)
}

func (s *Catalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Catalog) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("product", slug)
}

func (s *Catalog) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Catalog) Stats(_ context.Context, filter domain.ProductFilter) (*domain.CatalogStats, error) {
	s.mu.RLock()
	matched := s.matching(filter)
	s.mu.RUnlock()

	stats := &domain.CatalogStats{ProductCount: len(matched)}
	var sum float64
	for _, p := range matched {
		stats.TotalReviews += p.ReviewCount
		sum += p.AverageRating
	}
	if len(matched) > 0 {
		stats.AverageRating = domain.RoundRating(sum / float64(len(matched)))
	}
	return stats, nil
}

func (s *Catalog) Create(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[review.ProductID]
	if !ok {
		return apperrors.NotFound("product", review.ProductID)
	}
	if _, dup := s.byID[review.ID]; dup {
		return apperrors.AlreadyExists("review", "id", review.ID)
	}

	r := *review
	s.reviews[r.ProductID] = append([]*domain.Review{&r}, s.reviews[r.ProductID]...)
	s.byID[r.ID] = &r

	var sum float64
	for _, rv := range s.reviews[r.ProductID] {
		sum += rv.Rating
	}
	p.ReviewCount = len(s.reviews[r.ProductID])
	p.AverageRating = domain.RoundRating(sum / float64(p.ReviewCount))
	p.UpdatedAt = s.now()
	return nil
}

func (s *Catalog) ListByProduct(_ context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.reviews[productID]
	start, end := pagination.New(page, perPage).Window(len(all))
	out := make([]domain.Review, 0, end-start)
	for _, r := range all[start:end] {
		out = append(out, *r)
	}
	return out, len(all), nil
}

func (s *Catalog) ListAllByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Review, 0, len(s.reviews[productID]))
	for _, r := range s.reviews[productID] {
		out = append(out, *r)
	}
	return out, nil
}

func (s *Catalog) IncrementHelpful(_ context.Context, id string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	r.HelpfulCount++
	cp := *r
	return &cp, nil
}

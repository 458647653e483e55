package repository

import (
	"context"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
)

// ProductRepository reads the catalog.
type ProductRepository interface {
	// List returns one page of products matching filter and the total match count.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	// GetByID returns the product or an ErrNotFound AppError.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug returns the product or an ErrNotFound AppError.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// Categories returns the distinct product categories, sorted.
	Categories(ctx context.Context) ([]string, error)

	// Stats summarizes the products matching filter. Paging fields are ignored.
	Stats(ctx context.Context, filter domain.ProductFilter) (*domain.CatalogStats, error)
}

// ReviewRepository persists reviews. A product's reviews are always
// returned newest first.
type ReviewRepository interface {
	// Create stores review and refreshes the product's average rating and
	// review count in the same unit of work.
	Create(ctx context.Context, review *domain.Review) error

	// ListByProduct returns one page of reviews and the product's total.
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)

	// ListAllByProduct returns every review of the product.
	ListAllByProduct(ctx context.Context, productID string) ([]domain.Review, error)

	// IncrementHelpful adds one to the review's helpful count and returns
	// the updated review.
	IncrementHelpful(ctx context.Context, id string) (*domain.Review, error)
}

// ConversationStore keeps assistant conversations. Messages are only appended.
type ConversationStore interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Append(ctx context.Context, id string, msgs ...domain.Message) error
}

// StatsCache caches per-product rating aggregates. A miss is (nil, nil).
type StatsCache interface {
	Get(ctx context.Context, productID string) (*insight.Stats, error)
	Set(ctx context.Context, productID string, stats insight.Stats) error
	Invalidate(ctx context.Context, productID string) error
}

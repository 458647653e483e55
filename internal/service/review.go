package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/event"
	"github.com/utafrali/reviewhub/internal/insight"
	"github.com/utafrali/reviewhub/internal/repository"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/logger"
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewService implements review submission, listing and rating stats.
type ReviewService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	cache    repository.StatsCache
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService creates a review service. cache may be nil, in which case
// stats are computed on every call.
func NewReviewService(
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	cache repository.StatsCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		products: products,
		reviews:  reviews,
		cache:    cache,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new review, then refreshes derived state.
func (s *ReviewService) Create(ctx context.Context, input domain.CreateReviewInput) (*domain.Review, error) {
	input.Normalize()
	// Product id tags log lines only; stores get the caller's context.
	logCtx := logger.WithProductID(ctx, input.ProductID)

	if input.Rating < minRating || input.Rating > maxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	if utf8.RuneCountInString(input.Comment) < domain.MinCommentLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("comment must be at least %d characters", domain.MinCommentLength))
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:           uuid.New().String(),
		ProductID:    input.ProductID,
		ReviewerName: input.ReviewerName,
		Rating:       input.Rating,
		Comment:      input.Comment,
		HelpfulCount: 0,
		CreatedAt:    s.now(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.invalidateStats(ctx, review.ProductID)

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.log(logCtx).ErrorContext(logCtx, "failed to publish review created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.log(logCtx).InfoContext(logCtx, "review created",
		slog.String("review_id", review.ID),
		slog.Float64("rating", review.Rating),
	)
	return review, nil
}

// List returns one page of a product's reviews, newest first.
func (s *ReviewService) List(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	reviews, total, err := s.reviews.ListByProduct(ctx, productID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// All returns every review of a product, newest first.
func (s *ReviewService) All(ctx context.Context, productID string) ([]domain.Review, error) {
	reviews, err := s.reviews.ListAllByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list all reviews: %w", err)
	}
	return reviews, nil
}

// Stats aggregates a product's reviews, serving from the cache when possible.
func (s *ReviewService) Stats(ctx context.Context, productID string) (*insight.Stats, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		if err != nil {
			s.log(ctx).WarnContext(ctx, "stats cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	reviews, err := s.All(ctx, productID)
	if err != nil {
		return nil, err
	}
	stats := insight.Aggregate(reviews)

	if s.cache != nil {
		if err := s.cache.Set(ctx, productID, stats); err != nil {
			s.log(ctx).WarnContext(ctx, "stats cache write failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return &stats, nil
}

// MarkHelpful adds one to a review's helpful count.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.IncrementHelpful(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("mark review helpful: %w", err)
	}

	if err := s.producer.PublishReviewHelpful(ctx, review); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to publish review helpful event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
	return review, nil
}

func (s *ReviewService) invalidateStats(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.log(ctx).WarnContext(ctx, "stats cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

// log decorates the service logger with the request's correlation and
// product ids.
func (s *ReviewService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}

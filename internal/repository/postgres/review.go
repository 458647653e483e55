package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/pkg/database"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/pagination"
)

const reviewColumns = `id, product_id, reviewer_name, rating, comment, helpful_count, created_at`

const insertReviewSQL = `
	INSERT INTO reviews (id, product_id, reviewer_name, rating, comment, helpful_count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// refreshProductRatingSQL recomputes the denormalized rating fields of one
// product from its reviews.
const refreshProductRatingSQL = `
	UPDATE products p
	SET average_rating = agg.avg_rating,
	    review_count   = agg.review_count,
	    updated_at     = NOW()
	FROM (
		SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0)::float8 AS avg_rating,
		       count(*) AS review_count
		FROM reviews
		WHERE product_id = $1
	) agg
	WHERE p.id = $1`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.TxBeginner
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.TxBeginner) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts the review and refreshes the product's rating fields in
// one transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReview", insertReviewSQL)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertReviewSQL,
			review.ID,
			review.ProductID,
			review.ReviewerName,
			review.Rating,
			review.Comment,
			review.HelpfulCount,
			review.CreatedAt,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return apperrors.NotFound("product", review.ProductID)
			case isUniqueViolation(err):
				return apperrors.AlreadyExists("review", "id", review.ID)
			}
			return fmt.Errorf("insert review: %w", err)
		}

		ct, err := tx.Exec(ctx, refreshProductRatingSQL, review.ProductID)
		if err != nil {
			return fmt.Errorf("refresh product rating: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", review.ProductID)
		}
		return nil
	})
}

// ListByProduct returns one page of the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) (_ []domain.Review, _ int, err error) {
	p := pagination.New(page, perPage)
	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID, p.PerPage, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.ProductID, &rv.ReviewerName, &rv.Rating, &rv.Comment, &rv.HelpfulCount, &rv.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}
	rows.Close()

	if reviews == nil {
		reviews = []domain.Review{}
		// A page past the end has no rows to carry the window count.
		if p.Offset > 0 {
			const countQuery = `SELECT count(*) FROM reviews WHERE product_id = $1`
			if err := r.db.QueryRow(ctx, countQuery, productID).Scan(&totalCount); err != nil {
				return nil, 0, fmt.Errorf("count reviews: %w", err)
			}
		}
	}
	return reviews, totalCount, nil
}

// ListAllByProduct returns every review of the product, newest first.
func (r *ReviewRepository) ListAllByProduct(ctx context.Context, productID string) (_ []domain.Review, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id ASC`

	ctx, end := database.TraceQuery(ctx, "ListAllReviews", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list all reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.ProductID, &rv.ReviewerName, &rv.Rating, &rv.Comment, &rv.HelpfulCount, &rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// IncrementHelpful bumps the helpful counter and returns the updated review.
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id string) (_ *domain.Review, err error) {
	query := `
		UPDATE reviews
		SET helpful_count = helpful_count + 1
		WHERE id = $1
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "IncrementHelpful", query)
	defer func() { end(err) }()

	var rv domain.Review
	err = r.db.QueryRow(ctx, query, id).Scan(
		&rv.ID, &rv.ProductID, &rv.ReviewerName, &rv.Rating, &rv.Comment, &rv.HelpfulCount, &rv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("increment helpful: %w", err)
	}
	return &rv, nil
}

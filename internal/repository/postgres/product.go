package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/pkg/database"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/pagination"
)

const productColumns = `id, name, slug, description, category, price, currency, image_url,
	average_rating, review_count, created_at, updated_at`

// orderClauses maps ProductFilter.SortBy to a fixed ORDER BY clause. Unknown
// values fall back to name ascending, so user input never reaches the SQL.
var orderClauses = map[string]string{
	domain.SortNameAsc:    "LOWER(name) ASC, id ASC",
	domain.SortNameDesc:   "LOWER(name) DESC, id ASC",
	domain.SortRatingDesc: "average_rating DESC, LOWER(name) ASC",
	domain.SortPriceAsc:   "price ASC, LOWER(name) ASC",
	domain.SortPriceDesc:  "price DESC, LOWER(name) ASC",
	domain.SortNewest:     "created_at DESC, id ASC",
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// filterConditions renders the category and search parts of f as a WHERE
// clause and its arguments.
func filterConditions(f domain.ProductFilter) (string, []any) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if f.HasCategory() {
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = LOWER($%d)", argIndex))
		args = append(args, f.Category)
		argIndex++
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+escapeLike(search)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (_ []domain.Product, _ int, err error) {
	where, args := filterConditions(filter)

	order, ok := orderClauses[filter.SortBy]
	if !ok {
		order = orderClauses[domain.SortNameAsc]
	}

	page := pagination.New(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, where, order, len(args)+1, len(args)+2,
	)
	args = append(args, page.PerPage, page.Offset)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.Price, &p.Currency, &p.ImageURL,
			&p.AverageRating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	rows.Close()

	if products == nil {
		products = []domain.Product{}
		// A page past the end has no rows to carry the window count.
		if page.Offset > 0 {
			countQuery := "SELECT count(*) FROM products " + where
			if err := r.db.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&totalCount); err != nil {
				return nil, 0, fmt.Errorf("count products: %w", err)
			}
		}
	}
	return products, totalCount, nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(ctx, "GetProductByID", query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.scanProduct(ctx, "GetProductBySlug", query, slug)
}

func (r *ProductRepository) scanProduct(ctx context.Context, operation, query, key string) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.db.QueryRow(ctx, query, key).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.Price, &p.Currency, &p.ImageURL,
		&p.AverageRating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, apperrors.NotFound("product", key)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Categories returns the distinct non-empty categories in name order.
func (r *ProductRepository) Categories(ctx context.Context) (_ []string, err error) {
	query := `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`

	ctx, end := database.TraceQuery(ctx, "ListCategories", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// Stats summarizes the products matching the filter's category and search.
func (r *ProductRepository) Stats(ctx context.Context, filter domain.ProductFilter) (_ *domain.CatalogStats, err error) {
	where, args := filterConditions(filter)
	query := fmt.Sprintf(`
		SELECT count(*), COALESCE(SUM(review_count), 0), COALESCE(AVG(average_rating), 0)
		FROM products
		%s`, where)

	ctx, end := database.TraceQuery(ctx, "CatalogStats", query)
	defer func() { end(err) }()

	var (
		stats domain.CatalogStats
		avg   float64
	)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&stats.ProductCount, &stats.TotalReviews, &avg); err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	stats.AverageRating = domain.RoundRating(avg)
	return &stats, nil
}

// isInvalidText reports a malformed literal, such as a non-UUID id.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

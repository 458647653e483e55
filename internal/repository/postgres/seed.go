package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/reviewhub/internal/seed"
	"github.com/utafrali/reviewhub/pkg/database"
)

// SeedCatalog loads the demo catalog into an empty products table. It reports
// whether anything was inserted; a database that already holds products is
// left untouched.
func SeedCatalog(ctx context.Context, db database.TxBeginner, catalog *seed.Catalog, logger *slog.Logger) (bool, error) {
	var existing int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&existing); err != nil {
		return false, fmt.Errorf("count products: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	err := database.InTx(ctx, db, func(tx pgx.Tx) error {
		for _, p := range catalog.Products {
			_, err := tx.Exec(ctx, `
				INSERT INTO products (id, name, slug, description, category, price, currency, image_url,
					average_rating, review_count, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (id) DO NOTHING`,
				p.ID, p.Name, p.Slug, p.Description, p.Category, p.Price, p.Currency, p.ImageURL,
				p.AverageRating, p.ReviewCount, p.CreatedAt, p.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("seed product %s: %w", p.ID, err)
			}
		}
		for _, r := range catalog.Reviews {
			_, err := tx.Exec(ctx, insertReviewSQL+` ON CONFLICT (id) DO NOTHING`,
				r.ID, r.ProductID, r.ReviewerName, r.Rating, r.Comment, r.HelpfulCount, r.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("seed review %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	logger.InfoContext(ctx, "seeded catalog",
		slog.Int("products", len(catalog.Products)),
		slog.Int("reviews", len(catalog.Reviews)),
	)
	return true, nil
}

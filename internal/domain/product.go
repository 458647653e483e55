package domain

import (
	"math"
	"strings"
	"time"
)

// CategoryAll is the catalog filter value that matches every category.
const CategoryAll = "All"

// Product sort orders accepted by ProductFilter.SortBy.
const (
	SortNameAsc    = "name_asc"
	SortNameDesc   = "name_desc"
	SortRatingDesc = "rating_desc"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNewest     = "newest"
)

// Product is a catalog entry. AverageRating and ReviewCount are
// denormalized from the product's reviews and refreshed on every new review.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Price         int64     `json:"price"`
	Currency      string    `json:"currency"`
	ImageURL      string    `json:"image_url"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductFilter narrows and orders a catalog listing.
type ProductFilter struct {
	Category string
	Search   string
	SortBy   string
	Page     int
	PerPage  int
}

// HasCategory reports whether the filter restricts by category. Empty and
// "All" both mean no restriction.
func (f ProductFilter) HasCategory() bool {
	return f.Category != "" && !strings.EqualFold(f.Category, CategoryAll)
}

// Matches reports whether p passes the category and search parts of the filter.
// Search is a case-insensitive substring test over name, description and category.
func (f ProductFilter) Matches(p *Product) bool {
	if f.HasCategory() && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

// ValidSortOrders lists the accepted SortBy values.
func ValidSortOrders() []string {
	return []string{SortNameAsc, SortNameDesc, SortRatingDesc, SortPriceAsc, SortPriceDesc, SortNewest}
}

// IsValidSortOrder reports whether s is empty or one of ValidSortOrders.
func IsValidSortOrder(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range ValidSortOrders() {
		if v == s {
			return true
		}
	}
	return false
}

// CatalogStats summarizes the products matched by a filter.
type CatalogStats struct {
	ProductCount  int     `json:"product_count"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
}

// RoundRating rounds a denormalized average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

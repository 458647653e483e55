// Package seed holds the demo catalog that backs CATALOG_BACKEND=memory and
// can be loaded into an empty PostgreSQL database.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/pkg/slug"
)

//go:embed catalog.json
var catalogJSON []byte

// Catalog is the decoded seed data. Product rating fields are derived from
// Reviews, and Reviews are ordered newest first.
type Catalog struct {
	Products []domain.Product `json:"products"`
	Reviews  []domain.Review  `json:"reviews"`
}

// Load decodes the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogJSON)
}

// Parse decodes a catalog document and fills in derived fields.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}

	sort.SliceStable(c.Reviews, func(i, j int) bool {
		return c.Reviews[i].CreatedAt.After(c.Reviews[j].CreatedAt)
	})

	type tally struct {
		sum   float64
		count int
	}
	tallies := make(map[string]*tally, len(c.Products))
	for i := range c.Products {
		tallies[c.Products[i].ID] = &tally{}
	}
	for _, r := range c.Reviews {
		t, ok := tallies[r.ProductID]
		if !ok {
			return nil, fmt.Errorf("seed review %s references unknown product %s", r.ID, r.ProductID)
		}
		t.sum += r.Rating
		t.count++
	}

	for i := range c.Products {
		p := &c.Products[i]
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		if t := tallies[p.ID]; t.count > 0 {
			p.ReviewCount = t.count
			p.AverageRating = domain.RoundRating(t.sum / float64(t.count))
		}
	}
	return &c, nil
}

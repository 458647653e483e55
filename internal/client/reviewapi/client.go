// Package reviewapi is a typed client for the ReviewHub HTTP API.
package reviewapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/httpclient"
	"github.com/utafrali/reviewhub/pkg/pagination"
)

const serviceName = "reviewhub"

// maxPerPage is the largest page the server accepts.
const maxPerPage = 100

// Config controls the client's transport.
type Config struct {
	BaseURL string
	HTTP    httpclient.Config
	Breaker httpclient.CircuitBreakerConfig
}

// DefaultConfig returns retry and breaker defaults for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		HTTP:    httpclient.DefaultConfig(),
		Breaker: httpclient.DefaultCircuitBreakerConfig(serviceName),
	}
}

// Client calls the ReviewHub API. Transport failures and 5xx responses count
// against a circuit breaker; other non-2xx responses come back as
// *apperrors.AppError.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
}

// New creates a client for baseURL with default settings.
func New(baseURL string, logger *slog.Logger) *Client {
	return NewWithConfig(DefaultConfig(baseURL), logger)
}

func NewWithConfig(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpclient.NewCircuitBreakerClient(httpclient.New(cfg.HTTP), cfg.Breaker, logger),
	}
}

// ProductQuery filters and pages GetProducts.
type ProductQuery struct {
	Category string
	Search   string
	SortBy   string
	Page     int
	PerPage  int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	setPage(v, q.Page, q.PerPage)
	return v
}

func setPage(v url.Values, page, perPage int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		v.Set("per_page", strconv.Itoa(perPage))
	}
}

// ProductDetail is a product with its rating summary and newest reviews.
type ProductDetail struct {
	Product       domain.Product
	Stats         insight.Stats
	Sentiment     string
	LatestReviews []domain.Review
}

// ReviewStats is a product's aggregate rating summary.
type ReviewStats struct {
	insight.Stats
	Sentiment       string
	PositivePercent int
}

// ReviewInput is the body of PostReview. A blank ReviewerName is stored as
// anonymous.
type ReviewInput struct {
	ReviewerName string  `json:"reviewer_name,omitempty"`
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
}

// GetProducts returns one page of the catalog.
func (c *Client) GetProducts(ctx context.Context, q ProductQuery) (*pagination.Result[domain.Product], error) {
	var out pagination.Result[domain.Product]
	if err := c.call(ctx, http.MethodGet, "/api/v1/products", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches a product by id or slug with up to latest embedded
// reviews. latest <= 0 uses the server default.
func (c *Client) GetProduct(ctx context.Context, idOrSlug string, latest int) (*ProductDetail, error) {
	v := url.Values{}
	if latest > 0 {
		v.Set("reviews", strconv.Itoa(latest))
	}

	var out struct {
		Product       domain.Product `json:"product"`
		Stats         insight.Stats  `json:"stats"`
		Sentiment     string         `json:"sentiment"`
		LatestReviews []reviewDTO    `json:"latest_reviews"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(idOrSlug), v, nil, &out); err != nil {
		return nil, err
	}
	return &ProductDetail{
		Product:       out.Product,
		Stats:         out.Stats,
		Sentiment:     out.Sentiment,
		LatestReviews: toDomainReviews(out.LatestReviews, out.Product.ID),
	}, nil
}

// GetReviews returns one page of a product's reviews, newest first.
func (c *Client) GetReviews(ctx context.Context, productID string, page, perPage int) (*pagination.Result[domain.Review], error) {
	v := url.Values{}
	setPage(v, page, perPage)

	var out pagination.Result[reviewDTO]
	if err := c.call(ctx, http.MethodGet, reviewsPath(productID), v, nil, &out); err != nil {
		return nil, err
	}
	return &pagination.Result[domain.Review]{
		Items:      toDomainReviews(out.Items, productID),
		TotalCount: out.TotalCount,
		Page:       out.Page,
		PerPage:    out.PerPage,
		TotalPages: out.TotalPages,
		HasNext:    out.HasNext,
		HasPrev:    out.HasPrev,
	}, nil
}

// AllReviews walks every page of a product's reviews.
func (c *Client) AllReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	var all []domain.Review
	for page := 1; ; page++ {
		res, err := c.GetReviews(ctx, productID, page, maxPerPage)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if !res.HasNext || len(res.Items) == 0 {
			break
		}
	}
	if all == nil {
		all = []domain.Review{}
	}
	return all, nil
}

// ReviewStats fetches the product's aggregate rating summary.
func (c *Client) ReviewStats(ctx context.Context, productID string) (*ReviewStats, error) {
	var out struct {
		insight.Stats
		Sentiment       string `json:"sentiment"`
		PositivePercent int    `json:"positive_percent"`
	}
	if err := c.call(ctx, http.MethodGet, reviewsPath(productID)+"/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &ReviewStats{Stats: out.Stats, Sentiment: out.Sentiment, PositivePercent: out.PositivePercent}, nil
}

// PostReview submits a review and returns it as stored.
func (c *Client) PostReview(ctx context.Context, productID string, in ReviewInput) (*domain.Review, error) {
	var out reviewDTO
	if err := c.call(ctx, http.MethodPost, reviewsPath(productID), nil, in, &out); err != nil {
		return nil, err
	}
	r := out.toDomain(productID)
	return &r, nil
}

// MarkReviewHelpful increments a review's helpful count.
func (c *Client) MarkReviewHelpful(ctx context.Context, reviewID string) (*domain.Review, error) {
	var out reviewDTO
	path := "/api/v1/reviews/" + url.PathEscape(reviewID) + "/helpful"
	if err := c.call(ctx, http.MethodPut, path, nil, nil, &out); err != nil {
		return nil, err
	}
	r := out.toDomain("")
	return &r, nil
}

// Ask puts a single question to the server-side assistant.
func (c *Client) Ask(ctx context.Context, productID, question string) (*insight.Answer, error) {
	body := struct {
		Question string `json:"question"`
	}{Question: question}

	var out insight.Answer
	path := "/api/v1/products/" + url.PathEscape(productID) + "/assistant/answers"
	if err := c.call(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func reviewsPath(productID string) string {
	return "/api/v1/products/" + url.PathEscape(productID) + "/reviews"
}

// call sends one request and decodes the data member of the response
// envelope into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req := httpclient.Request{
		Method: method,
		URL:    target,
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Body = payload
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		unavailable := apperrors.Unavailable(serviceName + " is temporarily unavailable, retry shortly")
		unavailable.Err = errors.Join(apperrors.ErrServiceUnavail, err)
		return unavailable
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// reviewDTO is a review as it crosses the wire. The camelCase fields accept
// payloads from older clients of the review API and the mock catalog shape
// (userName, helpful).
type reviewDTO struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	ReviewerName string  `json:"reviewer_name"`
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
	HelpfulCount int     `json:"helpful_count"`
	CreatedAt    string  `json:"created_at"`

	LegacyReviewerName string `json:"reviewerName"`
	LegacyHelpfulCount int    `json:"helpfulCount"`
	LegacyCreatedAt    string `json:"createdAt"`
	MockUserName       string `json:"userName"`
	MockHelpful        int    `json:"helpful"`
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (d reviewDTO) toDomain(productID string) domain.Review {
	r := domain.Review{
		ID:           d.ID,
		ProductID:    d.ProductID,
		ReviewerName: strings.TrimSpace(d.ReviewerName),
		Rating:       d.Rating,
		Comment:      d.Comment,
		HelpfulCount: max(d.HelpfulCount, d.LegacyHelpfulCount, d.MockHelpful),
	}
	if r.ProductID == "" {
		r.ProductID = productID
	}
	for _, alt := range []string{d.LegacyReviewerName, d.MockUserName} {
		if r.ReviewerName == "" {
			r.ReviewerName = strings.TrimSpace(alt)
		}
	}
	if r.ReviewerName == "" {
		r.ReviewerName = domain.AnonymousReviewer
	}
	created := d.CreatedAt
	if created == "" {
		created = d.LegacyCreatedAt
	}
	if created != "" {
		r.CreatedAt = parseTime(created)
	}
	return r
}

func toDomainReviews(in []reviewDTO, productID string) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, d := range in {
		out = append(out, d.toDomain(productID))
	}
	return out
}

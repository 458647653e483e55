package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/event"
	"github.com/utafrali/reviewhub/internal/insight"
	"github.com/utafrali/reviewhub/internal/repository"
	"github.com/utafrali/reviewhub/internal/repository/memory"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	pkgkafka "github.com/utafrali/reviewhub/pkg/kafka"
	"github.com/utafrali/reviewhub/pkg/logger"
)

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) Stats(ctx context.Context, filter domain.ProductFilter) (*domain.CatalogStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogStats), args.Error(1)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListAllByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) IncrementHelpful(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

// --- Mock Stats Cache ---

type mockStatsCache struct {
	mock.Mock
}

func (m *mockStatsCache) Get(ctx context.Context, productID string) (*insight.Stats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insight.Stats), args.Error(1)
}

func (m *mockStatsCache) Set(ctx context.Context, productID string, stats insight.Stats) error {
	args := m.Called(ctx, productID, stats)
	return args.Error(0)
}

func (m *mockStatsCache) Invalidate(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// --- Fake Kafka publisher ---

type fakePublisher struct {
	topics []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

// --- Helpers ---

const productID = "7c1e4b2a-5d3f-4e8a-9b6c-000000000001"

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleProduct() *domain.Product {
	return &domain.Product{
		ID:       productID,
		Name:     "Wireless Headphones",
		Slug:     "wireless-headphones",
		Category: "Electronics",
	}
}

func sampleReviews() []domain.Review {
	return []domain.Review{
		{ID: "r-3", ProductID: productID, ReviewerName: "Ana", Rating: 5, Comment: "Love the design and the battery life.", CreatedAt: fixedNow},
		{ID: "r-2", ProductID: productID, ReviewerName: "Ben", Rating: 4, Comment: "Great quality for the price.", CreatedAt: fixedNow.Add(-time.Hour)},
		{ID: "r-1", ProductID: productID, ReviewerName: "Cy", Rating: 2, Comment: "Shipping took forever.", CreatedAt: fixedNow.Add(-2 * time.Hour)},
	}
}

type fixture struct {
	products  *mockProductRepository
	reviews   *mockReviewRepository
	cache     *mockStatsCache
	publisher *fakePublisher
	reviewSvc *ReviewService
	catalog   *CatalogService
}

func newFixture(withCache bool) *fixture {
	f := &fixture{
		products:  new(mockProductRepository),
		reviews:   new(mockReviewRepository),
		cache:     new(mockStatsCache),
		publisher: &fakePublisher{},
	}
	var cache repository.StatsCache
	if withCache {
		cache = f.cache
	}
	f.reviewSvc = NewReviewService(f.products, f.reviews, cache, event.NewProducer(f.publisher, testLogger()), testLogger())
	f.reviewSvc.now = func() time.Time { return fixedNow }
	f.catalog = NewCatalogService(f.products, f.reviewSvc, testLogger())
	return f
}

// --- ReviewService ---

func TestReviewService_Create_Success(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == productID && r.ReviewerName == "Anonymous" && r.Comment == "Sounds amazing, very comfy." &&
			r.Rating == 5 && r.HelpfulCount == 0 && r.CreatedAt.Equal(fixedNow) && r.ID != ""
	})).Return(nil)
	f.cache.On("Invalidate", ctx, productID).Return(nil)

	review, err := f.reviewSvc.Create(ctx, domain.CreateReviewInput{
		ProductID:    productID,
		ReviewerName: "   ",
		Rating:       5,
		Comment:      "  Sounds amazing, very comfy.  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", review.ReviewerName)
	assert.Equal(t, []string{event.TopicReviewCreated}, f.publisher.topics)
	f.products.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestReviewService_Create_TagsLogsNotStoreContext(t *testing.T) {
	var buf strings.Builder
	f := newFixture(true)
	f.reviewSvc.logger = slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("Create", ctx, mock.Anything).Return(nil)
	f.cache.On("Invalidate", ctx, productID).Return(nil)

	_, err := f.reviewSvc.Create(ctx, domain.CreateReviewInput{ProductID: productID, Rating: 4, Comment: "Works as described."})
	require.NoError(t, err)
	f.products.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.cache.AssertExpectations(t)

	assert.Contains(t, buf.String(), `"msg":"review created"`)
	assert.Contains(t, buf.String(), `"product_id":"`+productID+`"`)
	assert.Contains(t, buf.String(), `"correlation_id":"corr-1"`)
}

func TestReviewService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input domain.CreateReviewInput
		msg   string
	}{
		{"missing rating", domain.CreateReviewInput{ProductID: productID, Comment: "long enough comment"}, "rating must be between 1 and 5"},
		{"rating too high", domain.CreateReviewInput{ProductID: productID, Rating: 6, Comment: "long enough comment"}, "rating must be between 1 and 5"},
		{"short comment", domain.CreateReviewInput{ProductID: productID, Rating: 4, Comment: "too short"}, "comment must be at least 10 characters"},
		{"blank padded comment", domain.CreateReviewInput{ProductID: productID, Rating: 4, Comment: "   short    "}, "comment must be at least 10 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			_, err := f.reviewSvc.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.msg)
			f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestReviewService_Create_UnknownProduct(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("GetByID", ctx, productID).Return(nil, apperrors.NotFound("product", productID))

	_, err := f.reviewSvc.Create(ctx, domain.CreateReviewInput{ProductID: productID, Rating: 3, Comment: "perfectly fine"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_Create_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(false)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("Create", ctx, mock.Anything).Return(nil)

	review, err := f.reviewSvc.Create(ctx, domain.CreateReviewInput{ProductID: productID, Rating: 4, Comment: "Works as described."})
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
}

func TestReviewService_Stats_CacheHit(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	cached := insight.Aggregate(sampleReviews())

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.cache.On("Get", ctx, productID).Return(&cached, nil)

	stats, err := f.reviewSvc.Stats(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, cached, *stats)
	f.reviews.AssertNotCalled(t, "ListAllByProduct", mock.Anything, mock.Anything)
}

func TestReviewService_Stats_CacheMissFillsCache(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	want := insight.Aggregate(sampleReviews())

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.cache.On("Get", ctx, productID).Return(nil, nil)
	f.reviews.On("ListAllByProduct", ctx, productID).Return(sampleReviews(), nil)
	f.cache.On("Set", ctx, productID, want).Return(nil)

	stats, err := f.reviewSvc.Stats(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.Equal(t, 2, stats.PositiveCount)
	assert.Equal(t, 1, stats.NegativeCount)
	f.cache.AssertExpectations(t)
}

func TestReviewService_Stats_CacheErrorFallsThrough(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.cache.On("Get", ctx, productID).Return(nil, errors.New("redis down"))
	f.reviews.On("ListAllByProduct", ctx, productID).Return([]domain.Review{}, nil)
	f.cache.On("Set", ctx, productID, mock.Anything).Return(errors.New("redis down"))

	stats, err := f.reviewSvc.Stats(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReviews)
	assert.Equal(t, insight.SentimentNoData, stats.Sentiment())
}

func TestReviewService_MarkHelpful(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	updated := sampleReviews()[0]
	updated.HelpfulCount = 1

	f.reviews.On("IncrementHelpful", ctx, "r-3").Return(&updated, nil)

	got, err := f.reviewSvc.MarkHelpful(ctx, "r-3")
	require.NoError(t, err)
	assert.Equal(t, 1, got.HelpfulCount)
	assert.Equal(t, []string{event.TopicReviewHelpful}, f.publisher.topics)
}

func TestReviewService_MarkHelpful_NotFound(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.reviews.On("IncrementHelpful", ctx, "missing").Return(nil, apperrors.NotFound("review", "missing"))

	_, err := f.reviewSvc.MarkHelpful(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.publisher.topics)
}

// --- CatalogService ---

func TestCatalogService_List_InvalidSort(t *testing.T) {
	f := newFixture(false)
	_, _, err := f.catalog.List(context.Background(), domain.ProductFilter{SortBy: "cheapest"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.products.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestCatalogService_Get_BySlug(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("GetBySlug", ctx, "wireless-headphones").Return(sampleProduct(), nil)

	p, err := f.catalog.Get(ctx, "Wireless-Headphones")
	require.NoError(t, err)
	assert.Equal(t, productID, p.ID)
	f.products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCatalogService_Detail(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	reviews := sampleReviews()

	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("ListAllByProduct", ctx, productID).Return(reviews, nil)
	f.reviews.On("ListByProduct", ctx, productID, 1, DefaultLatestReviews).Return(reviews, 3, nil)

	detail, err := f.catalog.Detail(ctx, productID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", detail.Product.Name)
	assert.Equal(t, 3, detail.Stats.TotalReviews)
	assert.InDelta(t, 3.667, detail.Stats.AverageRating, 0.001)
	assert.Equal(t, insight.SentimentGenerallyPositive, detail.Sentiment)
	assert.Len(t, detail.LatestReviews, 3)
}

func TestCatalogService_Categories_PrependsAll(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("Categories", ctx).Return([]string{"Electronics", "Home"}, nil)

	cats, err := f.catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"All", "Electronics", "Home"}, cats)
}

// --- AssistantService ---

func newAssistant(f *fixture, delay time.Duration, metrics *AssistantMetrics) *AssistantService {
	a := NewAssistantService(f.catalog, f.reviewSvc, memory.NewConversations(), delay, metrics, testLogger())
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestAssistantService_StartConversation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)

	a := newAssistant(f, 0, nil)
	started, err := a.StartConversation(ctx, productID)
	require.NoError(t, err)

	conv := started.Conversation
	assert.Equal(t, productID, conv.ProductID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, insight.Greeting("Wireless Headphones"), conv.Messages[0].Content)
	assert.Equal(t, insight.Suggestions(), started.Suggestions)

	stored, err := a.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
}

func TestAssistantService_Ask_AppendsBothMessages(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("ListAllByProduct", mock.Anything, productID).Return(sampleReviews(), nil)

	reg := prometheus.NewRegistry()
	metrics := NewAssistantMetrics(reg)
	a := newAssistant(f, 0, metrics)

	started, err := a.StartConversation(ctx, productID)
	require.NoError(t, err)

	ex, err := a.Ask(ctx, started.Conversation.ID, "  How many reviews are there?  ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, ex.Question.Role)
	assert.Equal(t, "How many reviews are there?", ex.Question.Content)
	assert.Equal(t, domain.RoleAssistant, ex.Answer.Role)
	assert.Equal(t, string(insight.CategoryCount), ex.Answer.Category)
	assert.True(t, strings.HasPrefix(ex.Answer.Content, "There are **3 customer reviews**"))

	conv, err := a.GetConversation(ctx, started.Conversation.ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, ex.Question.ID, conv.Messages[1].ID)
	assert.Equal(t, ex.Answer.ID, conv.Messages[2].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.questions.WithLabelValues("count")))
}

func TestAssistantService_Ask_BlankQuestion(t *testing.T) {
	f := newFixture(false)
	a := newAssistant(f, 0, nil)

	_, err := a.Ask(context.Background(), "conv-1", "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAssistantService_Ask_UnknownConversation(t *testing.T) {
	f := newFixture(false)
	a := newAssistant(f, 0, nil)

	_, err := a.Ask(context.Background(), "missing", "Overall sentiment?")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAssistantService_Answer_OneShot(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.products.On("GetByID", ctx, productID).Return(sampleProduct(), nil)
	f.reviews.On("ListAllByProduct", ctx, productID).Return(sampleReviews(), nil)

	a := newAssistant(f, 0, nil)
	answer, err := a.Answer(ctx, productID, "Anything about the cost?")
	require.NoError(t, err)
	assert.Equal(t, insight.CategoryPricing, answer.Category)
	assert.Contains(t, answer.Text, "Great quality for the price.")
}

func TestAssistantService_DelayHonorsContext(t *testing.T) {
	f := newFixture(false)
	f.products.On("GetByID", mock.Anything, productID).Return(sampleProduct(), nil)
	f.reviews.On("ListAllByProduct", mock.Anything, productID).Return(sampleReviews(), nil)

	a := newAssistant(f, time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Answer(ctx, productID, "Overall sentiment?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

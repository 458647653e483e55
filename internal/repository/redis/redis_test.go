package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleConversation() *domain.Conversation {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Conversation{
		ID:          "conv-1",
		ProductID:   "prod-1",
		ProductName: "Wireless Headphones",
		CreatedAt:   now,
		Messages: []domain.Message{
			{ID: "m-1", Role: domain.RoleAssistant, Content: "Hi! Ask me about Wireless Headphones.", Timestamp: now},
		},
	}
}

// ---------------------------------------------------------------------------
// ConversationStore
// ---------------------------------------------------------------------------

func TestConversationStore_CreateAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	conv := sampleConversation()
	require.NoError(t, store.Create(context.Background(), conv))

	got, err := store.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ProductID, got.ProductID)
	assert.Equal(t, conv.ProductName, got.ProductName)
	assert.True(t, conv.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "m-1", got.Messages[0].ID)

	assert.Equal(t, time.Hour, mr.TTL("conversation:conv-1"))
	assert.Equal(t, time.Hour, mr.TTL("conversation:conv-1:messages"))
}

func TestConversationStore_CreateDuplicate(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	conv := sampleConversation()
	require.NoError(t, store.Create(context.Background(), conv))

	err := store.Create(context.Background(), conv)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestConversationStore_GetNotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConversationStore_AppendKeepsOrder(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	conv := sampleConversation()
	require.NoError(t, store.Create(context.Background(), conv))

	err := store.Append(context.Background(), conv.ID,
		domain.Message{ID: "m-2", Role: domain.RoleUser, Content: "How many reviews?"},
		domain.Message{ID: "m-3", Role: domain.RoleAssistant, Content: "📊 This product has 2 reviews.", Category: "count"},
	)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"},
		[]string{got.Messages[0].ID, got.Messages[1].ID, got.Messages[2].ID})
	assert.Equal(t, "count", got.Messages[2].Category)
}

func TestConversationStore_AppendRefreshesTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	conv := sampleConversation()
	require.NoError(t, store.Create(context.Background(), conv))

	mr.FastForward(40 * time.Minute)
	require.NoError(t, store.Append(context.Background(), conv.ID, domain.Message{ID: "m-2", Role: domain.RoleUser}))

	assert.Equal(t, time.Hour, mr.TTL("conversation:conv-1"))
	assert.Equal(t, time.Hour, mr.TTL("conversation:conv-1:messages"))
}

func TestConversationStore_AppendUnknown(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Hour)

	err := store.Append(context.Background(), "missing", domain.Message{ID: "m-1"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConversationStore_Expired(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)

	conv := sampleConversation()
	require.NoError(t, store.Create(context.Background(), conv))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(context.Background(), conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// StatsCache
// ---------------------------------------------------------------------------

func TestStatsCache_MissIsNil(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewStatsCache(client, 10*time.Minute)

	got, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStatsCache_SetGetInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewStatsCache(client, 10*time.Minute)

	stats := insight.Aggregate([]domain.Review{{Rating: 5}, {Rating: 2}})
	require.NoError(t, cache.Set(context.Background(), "prod-1", stats))
	assert.Equal(t, 10*time.Minute, mr.TTL("review-stats:prod-1"))

	got, err := cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stats, *got)

	require.NoError(t, cache.Invalidate(context.Background(), "prod-1"))
	got, err = cache.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStatsCache_CorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewStatsCache(client, time.Minute)

	require.NoError(t, mr.Set("review-stats:prod-1", "{not json"))
	_, err := cache.Get(context.Background(), "prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal stats")
}

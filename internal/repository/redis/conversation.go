package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviewhub/internal/domain"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
)

const conversationPrefix = "conversation:"

// conversationMeta is the conversation header stored apart from its
// message list, so appends never rewrite it.
type conversationMeta struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationStore implements repository.ConversationStore using Redis.
// Each conversation is a JSON header key plus a list of JSON messages. Both
// keys share a TTL that is refreshed on every append.
type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConversationStore creates a Redis-backed conversation store.
func NewConversationStore(client *redis.Client, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, ttl: ttl}
}

func metaKey(id string) string     { return conversationPrefix + id }
func messagesKey(id string) string { return conversationPrefix + id + ":messages" }

// Create stores a new conversation and its initial messages.
func (s *ConversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conversationMeta{
		ID:          conv.ID,
		ProductID:   conv.ProductID,
		ProductName: conv.ProductName,
		CreatedAt:   conv.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	ok, err := s.client.SetNX(ctx, metaKey(conv.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set conversation: %w", err)
	}
	if !ok {
		return apperrors.AlreadyExists("conversation", "id", conv.ID)
	}

	if len(conv.Messages) == 0 {
		return nil
	}
	return s.push(ctx, conv.ID, conv.Messages)
}

// Get loads the conversation header and its full message log.
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	data, err := s.client.Get(ctx, metaKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("conversation", id)
		}
		return nil, fmt.Errorf("redis get conversation: %w", err)
	}

	var meta conversationMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}

	raw, err := s.client.LRange(ctx, messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}

	return &domain.Conversation{
		ID:          meta.ID,
		ProductID:   meta.ProductID,
		ProductName: meta.ProductName,
		CreatedAt:   meta.CreatedAt,
		Messages:    msgs,
	}, nil
}

// Append adds messages to the end of an existing conversation.
func (s *ConversationStore) Append(ctx context.Context, id string, msgs ...domain.Message) error {
	n, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis exists conversation: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("conversation", id)
	}
	if len(msgs) == 0 {
		return nil
	}
	return s.push(ctx, id, msgs)
}

func (s *ConversationStore) push(ctx context.Context, id string, msgs []domain.Message) error {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(id), values...)
		pipe.Expire(ctx, messagesKey(id), s.ttl)
		pipe.Expire(ctx, metaKey(id), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append messages: %w", err)
	}
	return nil
}

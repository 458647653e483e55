package memory

import (
	"context"
	"sync"

	"github.com/utafrali/reviewhub/internal/domain"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
)

// Conversations keeps assistant conversations in a map. Nothing expires.
type Conversations struct {
	mu    sync.RWMutex
	convs map[string]*domain.Conversation
}

func NewConversations() *Conversations {
	return &Conversations{convs: make(map[string]*domain.Conversation)}
}

func (s *Conversations) Create(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conv.ID]; ok {
		return apperrors.AlreadyExists("conversation", "id", conv.ID)
	}
	cp := *conv
	cp.Messages = append([]domain.Message(nil), conv.Messages...)
	s.convs[conv.ID] = &cp
	return nil
}

func (s *Conversations) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, apperrors.NotFound("conversation", id)
	}
	cp := *c
	cp.Messages = append([]domain.Message(nil), c.Messages...)
	return &cp, nil
}

func (s *Conversations) Append(_ context.Context, id string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return apperrors.NotFound("conversation", id)
	}
	c.Messages = append(c.Messages, msgs...)
	return nil
}

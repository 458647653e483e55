package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/reviewhub/internal/domain"
	"github.com/utafrali/reviewhub/internal/insight"
	"github.com/utafrali/reviewhub/internal/repository"
	apperrors "github.com/utafrali/reviewhub/pkg/errors"
	"github.com/utafrali/reviewhub/pkg/logger"
)

const maxQuestionLength = 500

// AssistantMetrics counts answered questions by responder category.
type AssistantMetrics struct {
	questions *prometheus.CounterVec
}

// NewAssistantMetrics registers the assistant counters on reg.
func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_questions_total",
			Help: "Questions answered by the review assistant, by category.",
		}, []string{"category"}),
	}
	reg.MustRegister(m.questions)
	return m
}

func (m *AssistantMetrics) observe(c insight.Category) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(string(c)).Inc()
}

// Exchange is one question and its answer, as appended to a conversation.
type Exchange struct {
	Question domain.Message `json:"question"`
	Answer   domain.Message `json:"answer"`
}

// StartedConversation is a new conversation plus the question chips to offer.
type StartedConversation struct {
	Conversation *domain.Conversation `json:"conversation"`
	Suggestions  []insight.Suggestion `json:"suggestions"`
}

// AssistantService answers questions about a product's reviews and keeps the
// conversation log.
type AssistantService struct {
	catalog *CatalogService
	reviews *ReviewService
	convs   repository.ConversationStore
	delay   time.Duration
	metrics *AssistantMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewAssistantService creates an assistant. delay is waited before each
// answer; zero answers immediately.
func NewAssistantService(
	catalog *CatalogService,
	reviews *ReviewService,
	convs repository.ConversationStore,
	delay time.Duration,
	metrics *AssistantMetrics,
	logger *slog.Logger,
) *AssistantService {
	return &AssistantService{
		catalog: catalog,
		reviews: reviews,
		convs:   convs,
		delay:   delay,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// StartConversation opens a conversation about a product, seeded with the
// assistant's greeting.
func (s *AssistantService) StartConversation(ctx context.Context, productID string) (*StartedConversation, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:          uuid.New().String(),
		ProductID:   p.ID,
		ProductName: p.Name,
		CreatedAt:   now,
		Messages: []domain.Message{{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Content:   insight.Greeting(p.Name),
			Timestamp: now,
		}},
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	ctx = logger.WithConversationID(ctx, conv.ID)
	logger.WithContext(logger.WithProductID(ctx, p.ID), s.logger).InfoContext(ctx, "conversation started")

	return &StartedConversation{Conversation: conv, Suggestions: insight.Suggestions()}, nil
}

// GetConversation returns the conversation with its full log.
func (s *AssistantService) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.convs.Get(ctx, id)
}

// Ask records question in the conversation, answers it over the product's
// current reviews and records the answer.
func (s *AssistantService) Ask(ctx context.Context, conversationID, question string) (*Exchange, error) {
	question, err := cleanQuestion(question)
	if err != nil {
		return nil, err
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithConversationID(ctx, conv.ID)

	asked := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   question,
		Timestamp: s.now(),
	}

	answer, err := s.answer(ctx, conv.ProductID, conv.ProductName, question)
	if err != nil {
		return nil, err
	}

	reply := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   answer.Text,
		Category:  string(answer.Category),
		Timestamp: s.now(),
	}
	if err := s.convs.Append(ctx, conv.ID, asked, reply); err != nil {
		return nil, fmt.Errorf("append messages: %w", err)
	}

	return &Exchange{Question: asked, Answer: reply}, nil
}

// Answer replies to a single question without recording a conversation.
func (s *AssistantService) Answer(ctx context.Context, productID, question string) (*insight.Answer, error) {
	question, err := cleanQuestion(question)
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	answer, err := s.answer(ctx, p.ID, p.Name, question)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *AssistantService) answer(ctx context.Context, productID, productName, question string) (insight.Answer, error) {
	reviews, err := s.reviews.All(ctx, productID)
	if err != nil {
		return insight.Answer{}, err
	}

	if err := s.wait(ctx); err != nil {
		return insight.Answer{}, err
	}

	answer := insight.Analyze(question, reviews, productName)
	s.metrics.observe(answer.Category)
	logger.WithContext(logger.WithProductID(ctx, productID), s.logger).InfoContext(ctx, "question answered",
		slog.String("category", string(answer.Category)),
		slog.Int("reviews", len(reviews)),
	)
	return answer, nil
}

func (s *AssistantService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cleanQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", apperrors.InvalidInput("question is required")
	}
	if len([]rune(q)) > maxQuestionLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("question must be at most %d characters", maxQuestionLength))
	}
	return q, nil
}

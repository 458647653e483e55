package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/reviewhub/internal/domain"
	pkgkafka "github.com/utafrali/reviewhub/pkg/kafka"
	"github.com/utafrali/reviewhub/pkg/logger"
)

// Kafka topics for review domain events.
const (
	TopicReviewCreated = "reviewhub.review.created"
	TopicReviewHelpful = "reviewhub.review.helpful"
)

// Event types carried in the envelope and the event_type header.
const (
	TypeReviewCreated = "review.created"
	TypeReviewHelpful = "review.helpful"
)

// SourceReviewHub identifies events emitted by this service.
const SourceReviewHub = "reviewhub"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID     string  `json:"review_id"`
	ProductID    string  `json:"product_id"`
	ReviewerName string  `json:"reviewer_name"`
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
}

// ReviewHelpfulData is the payload for a review.helpful event.
type ReviewHelpfulData struct {
	ReviewID     string `json:"review_id"`
	ProductID    string `json:"product_id"`
	HelpfulCount int    `json:"helpful_count"`
}

// Publisher is the part of pkg/kafka.Producer the review events need.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer. With a nil publisher, or on a nil
// *Producer, every Publish method is a no-op.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewCreated publishes a review.created event keyed by product.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	data := ReviewCreatedData{
		ReviewID:     r.ID,
		ProductID:    r.ProductID,
		ReviewerName: r.ReviewerName,
		Rating:       r.Rating,
		Comment:      r.Comment,
	}
	return p.publish(ctx, TopicReviewCreated, TypeReviewCreated, r.ProductID, data)
}

// PublishReviewHelpful publishes a review.helpful event keyed by product.
func (p *Producer) PublishReviewHelpful(ctx context.Context, r *domain.Review) error {
	data := ReviewHelpfulData{
		ReviewID:     r.ID,
		ProductID:    r.ProductID,
		HelpfulCount: r.HelpfulCount,
	}
	return p.publish(ctx, TopicReviewHelpful, TypeReviewHelpful, r.ProductID, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(eventType, aggregateID, SourceReviewHub, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

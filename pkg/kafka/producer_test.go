package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("review.created", "rev-1", "reviewhub", map[string]any{"rating": 4.5})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "review.created", ev.Type)
	assert.False(t, ev.OccurredAt.IsZero())

	var data map[string]float64
	require.NoError(t, ev.DecodeData(&data))
	assert.Equal(t, 4.5, data["rating"])
}

func TestNewEvent_Unmarshalable(t *testing.T) {
	_, err := NewEvent("x", "y", "z", make(chan int))
	assert.Error(t, err)
}

func TestPublish_WritesKeyedMessageWithHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, testLogger())

	ev, err := NewEvent("review.created", "prod-7", "reviewhub", map[string]string{"id": "r1"})
	require.NoError(t, err)
	ev.CorrelationID = "corr-1"

	require.NoError(t, p.Publish(context.Background(), "reviewhub.review.created", ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "reviewhub.review.created", msg.Topic)
	assert.Equal(t, "prod-7", string(msg.Key))

	carrier := headerCarrier{&msg.Headers}
	assert.Equal(t, "review.created", carrier.Get("event_type"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
}

func TestPublish_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &fakeWriter{}
	ev, err := NewEvent("review.helpful", "rev-1", "reviewhub", nil)
	require.NoError(t, err)
	require.NoError(t, NewProducerWithWriter(w, nil, testLogger()).Publish(ctx, "t", ev))

	traceparent := headerCarrier{&w.msgs[0].Headers}.Get("traceparent")
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestPublish_WriterError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("leader not available")}, nil, testLogger())
	ev, err := NewEvent("review.created", "p", "reviewhub", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "reviewhub.review.created", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPing_NoBrokers(t *testing.T) {
	err := NewProducerWithWriter(&fakeWriter{}, nil, testLogger()).Ping(context.Background())
	assert.EqualError(t, err, "kafka: no brokers configured")
}

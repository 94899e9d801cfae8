package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
)

type fakeResult struct {
	id  string
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	return f.id, f.err
}

type fakeTopic struct {
	messages []*pubsub.Message
	err      error
}

func (f *fakeTopic) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{id: "msg_1", err: f.err}
}

func newTestPublisher(topic topicPublisher) *PubSubOrderEventPublisher {
	return &PubSubOrderEventPublisher{
		topic:   topic,
		clock:   func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
		marshal: json.Marshal,
	}
}

func TestPubSubOrderEventPublisherPublish(t *testing.T) {
	topic := &fakeTopic{}
	publisher := newTestPublisher(topic)

	err := publisher.Publish(context.Background(), "order.created", map[string]any{
		"order_id": "ord_001",
		"total":    int64(3405),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(topic.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(topic.messages))
	}
	msg := topic.messages[0]
	if msg.Attributes["event"] != "order.created" {
		t.Fatalf("expected event attribute, got %v", msg.Attributes)
	}
	if msg.Attributes["orderId"] != "ord_001" {
		t.Fatalf("expected orderId attribute, got %v", msg.Attributes)
	}

	var envelope orderEventEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if envelope.Event != "order.created" {
		t.Fatalf("unexpected envelope event %q", envelope.Event)
	}
	if !envelope.OccurredAt.Equal(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected occurred_at %v", envelope.OccurredAt)
	}
	if envelope.Payload["order_id"] != "ord_001" {
		t.Fatalf("unexpected payload: %v", envelope.Payload)
	}
}

func TestPubSubOrderEventPublisherRequiresEventName(t *testing.T) {
	publisher := newTestPublisher(&fakeTopic{})

	if err := publisher.Publish(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}

func TestPubSubOrderEventPublisherBrokerFailure(t *testing.T) {
	topic := &fakeTopic{err: errors.New("deadline exceeded")}
	publisher := newTestPublisher(topic)

	err := publisher.Publish(context.Background(), "order.cancelled", map[string]any{"order_id": "ord_002"})
	if err == nil {
		t.Fatal("expected broker error to surface")
	}
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// publishResult is the slice of pubsub.PublishResult the publisher needs,
// extracted so tests can stub the broker.
type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type pubsubTopic struct {
	topic *pubsub.Topic
}

func (t pubsubTopic) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return t.topic.Publish(ctx, msg)
}

// PubSubOrderEventPublisher publishes order lifecycle events to a Pub/Sub
// topic. Downstream consumers (kitchen display, notification workers) fan out
// from there.
type PubSubOrderEventPublisher struct {
	topic   topicPublisher
	clock   func() time.Time
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderEventPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderEventPublisher(topic *pubsub.Topic) (*PubSubOrderEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order event publisher: topic is required")
	}
	return &PubSubOrderEventPublisher{
		topic:   pubsubTopic{topic: topic},
		clock:   time.Now,
		marshal: json.Marshal,
	}, nil
}

type orderEventEnvelope struct {
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publish enqueues one lifecycle event. The event name rides as a message
// attribute so subscribers can filter without decoding the body.
func (p *PubSubOrderEventPublisher) Publish(ctx context.Context, event string, payload map[string]any) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order event publisher: not initialised")
	}
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("pubsub order event publisher: event name is required")
	}

	data, err := p.marshal(orderEventEnvelope{
		Event:      event,
		OccurredAt: p.clock().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := map[string]string{"event": event}
	if orderID, ok := payload["order_id"].(string); ok && strings.TrimSpace(orderID) != "" {
		attrs["orderId"] = orderID
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

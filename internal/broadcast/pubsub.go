package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gpubsub "cloud.google.com/go/pubsub/v2"

	"github.com/thomaggio/thomaggio-backend/pkg/pubsub"
)

type publisherClient interface {
	OrdersPublisher() *gpubsub.Publisher
	PaymentPublisher() *gpubsub.Publisher
}

// PubSubBroadcaster publishes events on the configured Pub/Sub topics.
type PubSubBroadcaster struct {
	client         publisherClient
	publishTimeout time.Duration
}

// NewPubSubBroadcaster wires the broadcaster to the shared Pub/Sub client.
func NewPubSubBroadcaster(client *pubsub.Client, publishTimeout time.Duration) (*PubSubBroadcaster, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &PubSubBroadcaster{client: client, publishTimeout: publishTimeout}, nil
}

func (b *PubSubBroadcaster) NewOrder(ctx context.Context, event OrderEvent) error {
	event.Type = EventNewOrder
	return b.publish(ctx, b.client.OrdersPublisher(), event, EventNewOrder)
}

func (b *PubSubBroadcaster) OrderStatus(ctx context.Context, event OrderStatusEvent) error {
	event.Type = EventOrderStatus
	return b.publish(ctx, b.client.OrdersPublisher(), event, EventOrderStatus)
}

func (b *PubSubBroadcaster) PaymentStatus(ctx context.Context, event PaymentEvent) error {
	event.Type = EventPaymentStatus
	return b.publish(ctx, b.client.PaymentPublisher(), event, EventPaymentStatus)
}

func (b *PubSubBroadcaster) publish(ctx context.Context, publisher *gpubsub.Publisher, payload any, eventType string) error {
	if publisher == nil {
		return fmt.Errorf("publisher not configured")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.publishTimeout)
	defer cancel()

	result := publisher.Publish(ctx, &gpubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}
	return nil
}

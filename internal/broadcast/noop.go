package broadcast

import "context"

// Noop discards events. Used when no Pub/Sub project is configured, so local
// setups run without GCP credentials.
type Noop struct{}

func (Noop) NewOrder(ctx context.Context, event OrderEvent) error          { return nil }
func (Noop) OrderStatus(ctx context.Context, event OrderStatusEvent) error { return nil }
func (Noop) PaymentStatus(ctx context.Context, event PaymentEvent) error   { return nil }

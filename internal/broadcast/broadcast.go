package broadcast

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/enums"
)

// Event type identifiers carried in the message attributes.
const (
	EventNewOrder      = "new_order"
	EventOrderStatus   = "order_status"
	EventPaymentStatus = "payment_status"
)

// OrderEvent announces a freshly placed order to the kitchen displays.
type OrderEvent struct {
	Type          string              `json:"type"`
	OrderCode     string              `json:"order_code"`
	CustomerName  string              `json:"customer_name"`
	DeliveryType  enums.DeliveryType  `json:"delivery_type"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderStatusEvent announces a kitchen-side status transition.
type OrderStatusEvent struct {
	Type       string            `json:"type"`
	OrderCode  string            `json:"order_code"`
	Status     enums.OrderStatus `json:"status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// PaymentEvent announces a payment status change for an order.
type PaymentEvent struct {
	Type            string              `json:"type"`
	OrderCode       string              `json:"order_code"`
	TransactionCode string              `json:"transaction_code"`
	Status          enums.PaymentStatus `json:"status"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

// Broadcaster pushes lifecycle events to the real-time channel. Publishing is
// best effort; callers log failures and keep going.
type Broadcaster interface {
	NewOrder(ctx context.Context, event OrderEvent) error
	OrderStatus(ctx context.Context, event OrderStatusEvent) error
	PaymentStatus(ctx context.Context, event PaymentEvent) error
}

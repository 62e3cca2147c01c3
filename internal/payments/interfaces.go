package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/mercadopago"
)

// Repository defines persistence operations for payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	FindPendingByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByTransactionCode(ctx context.Context, code string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error)
}

// Gateway is the slice of the Mercado Pago client the service needs.
// *mercadopago.Client satisfies it.
type Gateway interface {
	NewIdempotencyKey(prefix string) string
	CreatePayment(ctx context.Context, params mercadopago.PaymentCreateParams) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

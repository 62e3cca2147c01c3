package mpwebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/broadcast"
	"github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/mercadopago"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			address_id TEXT,
			cart_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			delivery_type TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			subtotal NUMERIC NOT NULL,
			discount_value NUMERIC NOT NULL DEFAULT 0,
			delivery_fee NUMERIC NOT NULL DEFAULT 0,
			total NUMERIC NOT NULL,
			promo_code_id TEXT,
			promo_code TEXT,
			cash_tender NUMERIC,
			cash_change NUMERIC,
			notes TEXT,
			privacy_policy_accepted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			size TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price NUMERIC NOT NULL,
			flavors TEXT,
			options TEXT,
			observation TEXT,
			line_total NUMERIC NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			transaction_code TEXT NOT NULL UNIQUE,
			method TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			amount NUMERIC NOT NULL,
			qr_code TEXT,
			qr_code_base64 TEXT,
			ticket_url TEXT,
			expires_at DATETIME,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubGateway struct {
	status       string
	dateApproved *time.Time
	getErr       error
}

func (g *stubGateway) NewIdempotencyKey(prefix string) string { return prefix + "-key" }

func (g *stubGateway) CreatePayment(ctx context.Context, params mercadopago.PaymentCreateParams) (*mercadopago.Payment, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return &mercadopago.Payment{Status: g.status, DateApproved: g.dateApproved}, nil
}

func (g *stubGateway) CancelPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	return nil, errors.New("not used")
}

type stubBroadcaster struct {
	payments []broadcast.PaymentEvent
}

func (b *stubBroadcaster) NewOrder(ctx context.Context, event broadcast.OrderEvent) error { return nil }
func (b *stubBroadcaster) OrderStatus(ctx context.Context, event broadcast.OrderStatusEvent) error {
	return nil
}
func (b *stubBroadcaster) PaymentStatus(ctx context.Context, event broadcast.PaymentEvent) error {
	b.payments = append(b.payments, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel})
}

func newWebhookService(t *testing.T, db *gorm.DB, gateway payments.Gateway, caster broadcast.Broadcaster, now time.Time) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Payments:    payments.NewRepository(db),
		Orders:      orders.NewRepository(db),
		Gateway:     gateway,
		Tx:          stubTxRunner{},
		Broadcaster: caster,
		Logger:      testLogger(),
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedPendingPayment(t *testing.T, db *gorm.DB, transactionCode string, expiresAt time.Time) (*models.Order, *models.Payment) {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		Code:          "orderhook1",
		UserID:        uuid.New(),
		CustomerName:  "Maria Silva",
		CustomerPhone: "5511999990000",
		Status:        enums.OrderStatusPending,
		DeliveryType:  enums.DeliveryTypePickup,
		PaymentMethod: enums.PaymentMethodPIX,
		Subtotal:      decimal.RequireFromString("96.00"),
		Total:         decimal.RequireFromString("96.00"),
	}
	require.NoError(t, db.Create(order).Error)

	qr := "pix-payload"
	payment := &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		TransactionCode: transactionCode,
		Method:          enums.PaymentMethodPIX,
		Status:          enums.PaymentStatusPending,
		Amount:          order.Total,
		QRCode:          &qr,
		ExpiresAt:       &expiresAt,
	}
	require.NoError(t, db.Create(payment).Error)
	return order, payment
}

func paymentEvent(id string) *Event {
	return &Event{Type: "payment", Action: "payment.updated", Data: EventData{ID: id}}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	db := setupWebhookTestDB(t)
	svc := newWebhookService(t, db, &stubGateway{}, &stubBroadcaster{}, time.Now().UTC())

	result, err := svc.HandleEvent(context.Background(), &Event{Type: "plan", Data: EventData{ID: "1"}})
	require.NoError(t, err)
	assert.Equal(t, AckIgnored, result.Status)
}

func TestHandleEventMissingPaymentID(t *testing.T) {
	db := setupWebhookTestDB(t)
	svc := newWebhookService(t, db, &stubGateway{}, &stubBroadcaster{}, time.Now().UTC())

	result, err := svc.HandleEvent(context.Background(), paymentEvent(" "))
	require.NoError(t, err)
	assert.Equal(t, AckNoPaymentID, result.Status)
}

func TestHandleEventGatewayLookupFails(t *testing.T) {
	db := setupWebhookTestDB(t)
	gateway := &stubGateway{getErr: errors.New("boom")}
	svc := newWebhookService(t, db, gateway, &stubBroadcaster{}, time.Now().UTC())

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err, "gateway failures are acked, not retried")
	assert.Equal(t, AckPaymentNotFound, result.Status)
}

func TestHandleEventUnknownLocalPayment(t *testing.T) {
	db := setupWebhookTestDB(t)
	gateway := &stubGateway{status: mercadopago.StatusApproved}
	svc := newWebhookService(t, db, gateway, &stubBroadcaster{}, time.Now().UTC())

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, AckNotFound, result.Status)
}

func TestHandleEventApprovedMarksPaid(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	approvedAt := now.Add(-time.Minute)
	gateway := &stubGateway{status: mercadopago.StatusApproved, dateApproved: &approvedAt}
	caster := &stubBroadcaster{}
	svc := newWebhookService(t, db, gateway, caster, now)
	order, _ := seedPendingPayment(t, db, "123", now.Add(5*time.Minute))

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, "paid", result.Status)

	var reloaded models.Payment
	require.NoError(t, db.Where("transaction_code = ?", "123").First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
	assert.True(t, reloaded.PaidAt.Equal(approvedAt))
	assert.Nil(t, reloaded.QRCode)

	var reloadedOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloadedOrder).Error)
	assert.Equal(t, enums.PaymentStatusPaid, reloadedOrder.PaymentStatus)

	require.Len(t, caster.payments, 1)
	assert.Equal(t, order.Code, caster.payments[0].OrderCode)
	assert.Equal(t, enums.PaymentStatusPaid, caster.payments[0].Status)
}

func TestHandleEventReplayIsIdempotent(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gateway := &stubGateway{status: mercadopago.StatusApproved}
	caster := &stubBroadcaster{}
	svc := newWebhookService(t, db, gateway, caster, now)
	seedPendingPayment(t, db, "123", now.Add(5*time.Minute))

	_, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, "paid", result.Status)
	assert.Len(t, caster.payments, 1, "replays must not re-broadcast")

	// A later contradictory status never un-terminals the payment.
	gateway.status = mercadopago.StatusCancelled
	result, err = svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, "paid", result.Status)
}

func TestHandleEventRejectedCancels(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gateway := &stubGateway{status: mercadopago.StatusRejected}
	caster := &stubBroadcaster{}
	svc := newWebhookService(t, db, gateway, caster, now)
	seedPendingPayment(t, db, "123", now.Add(5*time.Minute))

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, "canceled", result.Status)

	var reloaded models.Payment
	require.NoError(t, db.Where("transaction_code = ?", "123").First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusCanceled, reloaded.Status)
	assert.Nil(t, reloaded.QRCode)
	require.Len(t, caster.payments, 1)

	var reloadedOrder models.Order
	require.NoError(t, db.Where("code = ?", "orderhook1").First(&reloadedOrder).Error)
	assert.Equal(t, enums.PaymentStatusCanceled, reloadedOrder.PaymentStatus)
}

type failingTxRunner struct{ err error }

func (f failingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return f.err
}

func TestHandleEventAcksLocalFailure(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gateway := &stubGateway{status: mercadopago.StatusApproved}

	svc, err := NewService(ServiceParams{
		Payments:    payments.NewRepository(db),
		Orders:      orders.NewRepository(db),
		Gateway:     gateway,
		Tx:          failingTxRunner{err: errors.New("connection reset")},
		Broadcaster: &stubBroadcaster{},
		Logger:      testLogger(),
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err, "local failures are acked so the gateway stops retrying")
	assert.Equal(t, AckInternalError, result.Status)
}

func TestHandleEventInProcessStaysPending(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gateway := &stubGateway{status: mercadopago.StatusInProcess}
	caster := &stubBroadcaster{}
	svc := newWebhookService(t, db, gateway, caster, now)
	seedPendingPayment(t, db, "123", now.Add(5*time.Minute))

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)
	assert.Empty(t, caster.payments)
}

func TestHandleEventExpiredLocalCharge(t *testing.T) {
	db := setupWebhookTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gateway := &stubGateway{status: mercadopago.StatusApproved}
	caster := &stubBroadcaster{}
	svc := newWebhookService(t, db, gateway, caster, now)
	seedPendingPayment(t, db, "123", now.Add(-time.Minute))

	result, err := svc.HandleEvent(context.Background(), paymentEvent("123"))
	require.NoError(t, err)
	assert.Equal(t, AckExpired, result.Status)

	var reloaded models.Payment
	require.NoError(t, db.Where("transaction_code = ?", "123").First(&reloaded).Error)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.Status, "the sweeper owns expiry cancellation")
	assert.Empty(t, caster.payments)
}

package mpwebhook

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/broadcast"
	"github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/mercadopago"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Event is the notification body Mercado Pago posts to the webhook endpoint.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Action string    `json:"action"`
	Data   EventData `json:"data"`
}

// EventData carries the gateway-side payment id.
type EventData struct {
	ID string `json:"id"`
}

// Ack statuses returned to the gateway. Every outcome acks with 200 so the
// gateway stops retrying; failures are logged locally instead.
const (
	AckIgnored         = "ignored"
	AckNoPaymentID     = "no_payment_id"
	AckPaymentNotFound = "payment_not_found"
	AckNotFound        = "not_found"
	AckExpired         = "expired"
	AckInternalError   = "internal_error"
)

// Result reports how the event was handled.
type Result struct {
	Status string `json:"status"`
}

// ServiceParams collects the webhook handler dependencies.
type ServiceParams struct {
	Payments    payments.Repository
	Orders      orders.Repository
	Gateway     payments.Gateway
	Tx          txRunner
	Broadcaster broadcast.Broadcaster
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service reconciles gateway payment notifications into local payment rows.
type Service struct {
	payments    payments.Repository
	orders      orders.Repository
	gateway     payments.Gateway
	tx          txRunner
	broadcaster broadcast.Broadcaster
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the webhook handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Broadcaster == nil {
		params.Broadcaster = broadcast.Noop{}
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		payments:    params.Payments,
		orders:      params.Orders,
		gateway:     params.Gateway,
		tx:          params.Tx,
		broadcaster: params.Broadcaster,
		logg:        params.Logger,
		now:         params.Now,
	}, nil
}

// HandleEvent reconciles one notification. It is idempotent: replays of the
// same event settle on the same local state, and terminal payments never move.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (*Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	if !strings.EqualFold(event.Type, "payment") {
		return &Result{Status: AckIgnored}, nil
	}
	if strings.TrimSpace(event.Data.ID) == "" {
		return &Result{Status: AckNoPaymentID}, nil
	}

	ctx = s.logg.WithTransactionCode(ctx, event.Data.ID)

	charge, err := s.gateway.GetPayment(ctx, event.Data.ID)
	if err != nil {
		// Ack anyway: a charge the gateway cannot return will not become
		// fetchable on retry.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "webhook charge lookup failed")
		return &Result{Status: AckPaymentNotFound}, nil
	}

	now := s.now().UTC()
	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)

		local, err := repo.FindByTransactionCode(ctx, event.Data.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				result = &Result{Status: AckNotFound}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
		}
		if local.Status.IsTerminal() {
			result = &Result{Status: local.Status.String()}
			return nil
		}
		if local.Expired(now) {
			result = &Result{Status: AckExpired}
			return nil
		}

		target := mapGatewayStatus(charge.Status)
		if target == local.Status {
			result = &Result{Status: local.Status.String()}
			return nil
		}

		updates := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		switch target {
		case enums.PaymentStatusPaid:
			paidAt := now
			if charge.DateApproved != nil {
				paidAt = charge.DateApproved.UTC()
			}
			updates["paid_at"] = paidAt
			updates["qr_code"] = nil
			updates["qr_code_base64"] = nil
			updates["ticket_url"] = nil
		case enums.PaymentStatusCanceled:
			updates["qr_code"] = nil
			updates["qr_code_base64"] = nil
			updates["ticket_url"] = nil
		}
		if err := repo.UpdatePayment(ctx, local.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment")
		}
		local.Status = target

		if target.IsTerminal() {
			orderUpdates := map[string]any{
				"payment_status": target,
				"updated_at":     now,
			}
			if err := s.orders.WithTx(tx).UpdateOrder(ctx, local.OrderID, orderUpdates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order payment status")
			}
		}

		s.announce(ctx, tx, local, now)
		result = &Result{Status: target.String()}
		return nil
	})
	if err != nil {
		// The gateway retries on non-2xx. A local failure is not the
		// gateway's problem, so ack and rely on the log for follow-up.
		s.logg.Error(ctx, "webhook reconciliation failed", err)
		return &Result{Status: AckInternalError}, nil
	}

	s.logg.Info(s.logg.WithField(ctx, "ack", result.Status), "webhook handled")
	return result, nil
}

func (s *Service) announce(ctx context.Context, tx *gorm.DB, payment *models.Payment, now time.Time) {
	order, err := s.orders.WithTx(tx).FindByID(ctx, payment.OrderID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment broadcast skipped, order lookup failed")
		return
	}
	event := broadcast.PaymentEvent{
		OrderCode:       order.Code,
		TransactionCode: payment.TransactionCode,
		Status:          payment.Status,
		OccurredAt:      now,
	}
	if err := s.broadcaster.PaymentStatus(ctx, event); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment status broadcast failed")
	}
}

func mapGatewayStatus(status string) enums.PaymentStatus {
	switch status {
	case mercadopago.StatusApproved:
		return enums.PaymentStatusPaid
	case mercadopago.StatusRejected, mercadopago.StatusCancelled:
		return enums.PaymentStatusCanceled
	default:
		return enums.PaymentStatusPending
	}
}

package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/pkg/codes"
	"github.com/thomaggio/thomaggio-backend/pkg/config"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/mercadopago"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusInfo is the polling answer for a PIX charge. A pending charge past
// its deadline reports Expired without changing state; the sweeper cancels.
type StatusInfo struct {
	Status          enums.PaymentStatus `json:"status"`
	TransactionCode string              `json:"transaction_code"`
	Expired         bool                `json:"expired"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
}

// ChangeOutcome reports the order after a payment method switch, plus the
// fresh charge when the switch regenerated a PIX QR.
type ChangeOutcome struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// Service bridges orders to the payment gateway.
type Service interface {
	CreatePIX(ctx context.Context, orderCode string) (*models.Payment, error)
	CreateGeneric(ctx context.Context, orderCode string, method enums.PaymentMethod) (*models.Payment, error)
	RegeneratePIX(ctx context.Context, orderCode string) (*models.Payment, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*models.Payment, error)
	GetByTransactionCode(ctx context.Context, code string) (*models.Payment, error)
	CheckPIXStatus(ctx context.Context, orderCode string) (*StatusInfo, error)
	ChangeMethod(ctx context.Context, orderCode string, method enums.PaymentMethod, cashTender *decimal.Decimal) (*ChangeOutcome, error)
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Gateway Gateway
	Tx      txRunner
	Config  config.PaymentConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	orders  orders.Repository
	gateway Gateway
	tx      txRunner
	cfg     config.PaymentConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.PIXExpiry <= 0 {
		params.Config.PIXExpiry = 10 * time.Minute
	}
	if params.Config.GenericExpiry <= 0 {
		params.Config.GenericExpiry = 10 * time.Minute
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		gateway: params.Gateway,
		tx:      params.Tx,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

func (s *service) CreatePIX(ctx context.Context, orderCode string) (*models.Payment, error) {
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), orderCode)
		if err != nil {
			return err
		}
		if order.PaymentMethod != enums.PaymentMethodPIX {
			return pkgerrors.New(pkgerrors.CodePolicy, "order is not set to pay via pix")
		}
		if err := s.ensureNotPaid(ctx, repo, order.ID); err != nil {
			return err
		}

		now := s.now().UTC()
		pending, err := s.findPending(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			if !pending.Expired(now) {
				payment = pending
				return nil
			}
			if err := s.cancelCharge(ctx, repo, pending, now); err != nil {
				return err
			}
		}

		payment, err = s.openPIXCharge(ctx, repo, order, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithTransactionCode(s.logg.WithOrderCode(ctx, orderCode), payment.TransactionCode)
	s.logg.Info(ctx, "pix charge ready")
	return payment, nil
}

func (s *service) CreateGeneric(ctx context.Context, orderCode string, method enums.PaymentMethod) (*models.Payment, error) {
	if !method.IsValid() || method == enums.PaymentMethodPIX {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method must be cash or card")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), orderCode)
		if err != nil {
			return err
		}
		if err := s.ensureNotPaid(ctx, repo, order.ID); err != nil {
			return err
		}

		now := s.now().UTC()
		pending, err := s.findPending(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if pending != nil && pending.Method == method && !pending.Expired(now) {
			payment = pending
			return nil
		}
		if pending != nil {
			if err := s.cancelCharge(ctx, repo, pending, now); err != nil {
				return err
			}
		}

		expiresAt := now.Add(s.cfg.GenericExpiry)
		payment, err = repo.Create(ctx, &models.Payment{
			ID:              uuid.New(),
			OrderID:         order.ID,
			TransactionCode: codes.Generate(),
			Method:          method,
			Status:          enums.PaymentStatusPending,
			Amount:          order.Total,
			ExpiresAt:       &expiresAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) RegeneratePIX(ctx context.Context, orderCode string) (*models.Payment, error) {
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, s.orders.WithTx(tx), orderCode)
		if err != nil {
			return err
		}
		if order.PaymentMethod != enums.PaymentMethodPIX {
			return pkgerrors.New(pkgerrors.CodePolicy, "order is not set to pay via pix")
		}
		if err := s.ensureNotPaid(ctx, repo, order.ID); err != nil {
			return err
		}

		now := s.now().UTC()
		pending, err := s.findPending(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			if !pending.Expired(now) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "an active pix charge already exists")
			}
			if err := s.cancelCharge(ctx, repo, pending, now); err != nil {
				return err
			}
		}

		payment, err = s.openPIXCharge(ctx, repo, order, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithTransactionCode(s.logg.WithOrderCode(ctx, orderCode), payment.TransactionCode)
	s.logg.Info(ctx, "pix charge regenerated")
	return payment, nil
}

func (s *service) GetByOrderCode(ctx context.Context, orderCode string) (*models.Payment, error) {
	order, err := s.loadOrder(ctx, s.orders, orderCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payments")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment for order")
	}
	return &rows[0], nil
}

func (s *service) GetByTransactionCode(ctx context.Context, code string) (*models.Payment, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction code required")
	}
	payment, err := s.repo.FindByTransactionCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
	}
	return payment, nil
}

func (s *service) CheckPIXStatus(ctx context.Context, orderCode string) (*StatusInfo, error) {
	payment, err := s.GetByOrderCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		Status:          payment.Status,
		TransactionCode: payment.TransactionCode,
		Expired:         payment.Status == enums.PaymentStatusPending && payment.Expired(s.now().UTC()),
		ExpiresAt:       payment.ExpiresAt,
	}, nil
}

func (s *service) ChangeMethod(ctx context.Context, orderCode string, method enums.PaymentMethod, cashTender *decimal.Decimal) (*ChangeOutcome, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if method == enums.PaymentMethodCash && cashTender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash tender required for cash payment")
	}

	var outcome *ChangeOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		order, err := s.loadOrder(ctx, orderRepo, orderCode)
		if err != nil {
			return err
		}
		if err := s.ensureNotPaid(ctx, repo, order.ID); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer change payment method")
		}
		if order.PaymentMethod == method {
			outcome = &ChangeOutcome{Order: order}
			return nil
		}

		now := s.now().UTC()
		pending, err := s.findPending(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			if err := s.cancelCharge(ctx, repo, pending, now); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"payment_method": method,
			"updated_at":     now,
		}
		var tender, change *decimal.Decimal
		if method == enums.PaymentMethodCash {
			if cashTender.LessThan(order.Total) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cash tender below order total").
					WithDetails(map[string]any{"total": order.Total.StringFixed(2)})
			}
			t := *cashTender
			c := t.Sub(order.Total)
			tender, change = &t, &c
		}
		updates["cash_tender"] = tender
		updates["cash_change"] = change
		if err := orderRepo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment method")
		}
		order.PaymentMethod = method
		order.CashTender = tender
		order.CashChange = change
		order.UpdatedAt = now

		outcome = &ChangeOutcome{Order: order}
		if method == enums.PaymentMethodPIX {
			payment, err := s.openPIXCharge(ctx, repo, order, now)
			if err != nil {
				return err
			}
			outcome.Payment = payment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderCode(ctx, orderCode), "payment method changed")
	return outcome, nil
}

// openPIXCharge asks the gateway for a fresh charge and persists the local
// row. The gateway deadline and the local expires_at are the same instant.
func (s *service) openPIXCharge(ctx context.Context, repo Repository, order *models.Order, now time.Time) (*models.Payment, error) {
	expiresAt := now.Add(s.cfg.PIXExpiry)
	first, last := models.User{Name: order.CustomerName}.FirstLast()
	charge, err := s.gateway.CreatePayment(ctx, mercadopago.PaymentCreateParams{
		Amount:          order.Total,
		Description:     fmt.Sprintf("Pedido #%s", order.Code),
		PaymentMethodID: mercadopago.MethodPIX,
		Payer: mercadopago.Payer{
			Email:     fmt.Sprintf("cliente_%s@temp.com", order.UserID),
			FirstName: first,
			LastName:  last,
		},
		ExpiresAt:      &expiresAt,
		IdempotencyKey: s.gateway.NewIdempotencyKey("tmg"),
	})
	if err != nil {
		return nil, err
	}
	if charge.Status != mercadopago.StatusPending || charge.QRCode() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned an unusable charge").
			WithDetails(map[string]any{"gateway_status": charge.Status})
	}

	qr := charge.QRCode()
	qrB64 := charge.QRCodeBase64()
	ticket := charge.TicketURL()
	payment, err := repo.Create(ctx, &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		TransactionCode: strconv.FormatInt(charge.ID, 10),
		Method:          enums.PaymentMethodPIX,
		Status:          enums.PaymentStatusPending,
		Amount:          order.Total,
		QRCode:          &qr,
		QRCodeBase64:    &qrB64,
		TicketURL:       &ticket,
		ExpiresAt:       &expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment")
	}
	return payment, nil
}

// cancelCharge voids a pending charge locally and, for pix, at the gateway.
// Gateway refusal is logged and ignored; the local row is authoritative.
func (s *service) cancelCharge(ctx context.Context, repo Repository, payment *models.Payment, now time.Time) error {
	if payment.Status.IsTerminal() {
		return nil
	}
	if payment.Method == enums.PaymentMethodPIX {
		if _, err := s.gateway.CancelPayment(ctx, payment.TransactionCode); err != nil {
			s.logg.Warn(
				s.logg.WithTransactionCode(s.logg.WithField(ctx, "error", err.Error()), payment.TransactionCode),
				"gateway cancel failed",
			)
		}
	}
	updates := map[string]any{
		"status":         enums.PaymentStatusCanceled,
		"qr_code":        nil,
		"qr_code_base64": nil,
		"ticket_url":     nil,
		"updated_at":     now,
	}
	if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "canceling payment")
	}
	payment.Status = enums.PaymentStatusCanceled
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, orderCode string) (*models.Order, error) {
	if strings.TrimSpace(orderCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	order, err := repo.FindByCode(ctx, orderCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) findPending(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Payment, error) {
	pending, err := repo.FindPendingByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading pending payment")
	}
	return pending, nil
}

func (s *service) ensureNotPaid(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	rows, err := repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payments")
	}
	for _, row := range rows {
		if row.Status == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
		}
	}
	return nil
}

package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentssvc "github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/pkg/db/models"
)

// PaymentView is the public shape of a charge. QR fields are only present
// while a PIX charge is payable.
type PaymentView struct {
	TransactionCode string          `json:"transaction_code"`
	OrderID         uuid.UUID       `json:"order_id"`
	Method          string          `json:"method"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	QRCode          *string         `json:"qr_code,omitempty"`
	QRCodeBase64    *string         `json:"qr_code_base64,omitempty"`
	TicketURL       *string         `json:"ticket_url,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type changeMethodResponse struct {
	OrderCode     string           `json:"order_code"`
	PaymentMethod string           `json:"payment_method"`
	CashTender    *decimal.Decimal `json:"cash_tender,omitempty"`
	CashChange    *decimal.Decimal `json:"cash_change,omitempty"`
	Payment       *PaymentView     `json:"payment,omitempty"`
}

func newPaymentView(record *models.Payment) PaymentView {
	return PaymentView{
		TransactionCode: record.TransactionCode,
		OrderID:         record.OrderID,
		Method:          record.Method.String(),
		Status:          record.Status.String(),
		Amount:          record.Amount,
		QRCode:          record.QRCode,
		QRCodeBase64:    record.QRCodeBase64,
		TicketURL:       record.TicketURL,
		ExpiresAt:       record.ExpiresAt,
		PaidAt:          record.PaidAt,
		CreatedAt:       record.CreatedAt,
	}
}

func newChangeMethodResponse(outcome *paymentssvc.ChangeOutcome) changeMethodResponse {
	resp := changeMethodResponse{
		OrderCode:     outcome.Order.Code,
		PaymentMethod: outcome.Order.PaymentMethod.String(),
		CashTender:    outcome.Order.CashTender,
		CashChange:    outcome.Order.CashChange,
	}
	if outcome.Payment != nil {
		view := newPaymentView(outcome.Payment)
		resp.Payment = &view
	}
	return resp
}

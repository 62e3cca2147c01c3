package mercadopago

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses reported by the gateway.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusInProcess   = "in_process"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

// Payment method identifiers used on charge creation.
const (
	MethodPIX = "pix"
)

// Payer identifies who is charged. The gateway requires an email even for
// walk-in customers, so callers pass a synthetic one when none exists.
type Payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// PaymentCreateParams carries everything needed to open a charge.
type PaymentCreateParams struct {
	Amount          decimal.Decimal
	Description     string
	PaymentMethodID string
	Payer           Payer
	ExpiresAt       *time.Time
	IdempotencyKey  string
}

type paymentCreateRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description,omitempty"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             Payer   `json:"payer"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
}

func (p PaymentCreateParams) toRequest() paymentCreateRequest {
	req := paymentCreateRequest{
		TransactionAmount: p.Amount.InexactFloat64(),
		Description:       p.Description,
		PaymentMethodID:   p.PaymentMethodID,
		Payer:             p.Payer,
	}
	if p.ExpiresAt != nil {
		req.DateOfExpiration = p.ExpiresAt.UTC().Format("2006-01-02T15:04:05.000-07:00")
	}
	return req
}

// Payment is the gateway's view of a charge.
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail"`
	DateOfExpiration   *time.Time          `json:"date_of_expiration"`
	DateApproved       *time.Time          `json:"date_approved"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction"`
}

// PointOfInteraction holds PIX payload data on pending charges.
type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data"`
}

// TransactionData carries the scannable PIX artifacts.
type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// QRCode returns the copy-paste PIX payload, empty when absent.
func (p *Payment) QRCode() string {
	if p == nil || p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return ""
	}
	return p.PointOfInteraction.TransactionData.QRCode
}

// QRCodeBase64 returns the rendered QR image, empty when absent.
func (p *Payment) QRCodeBase64() string {
	if p == nil || p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return ""
	}
	return p.PointOfInteraction.TransactionData.QRCodeBase64
}

// TicketURL returns the hosted payment page, empty when absent.
func (p *Payment) TicketURL() string {
	if p == nil || p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return ""
	}
	return p.PointOfInteraction.TransactionData.TicketURL
}

type apiErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

package payments

import (
	"github.com/shopspring/decimal"
)

type createPaymentRequest struct {
	OrderCode string `json:"order_code" validate:"required"`
	Method    string `json:"method" validate:"required"`
}

type pixChargeRequest struct {
	OrderCode string `json:"order_code" validate:"required"`
}

type changeMethodRequest struct {
	Method     string           `json:"method" validate:"required"`
	CashTender *decimal.Decimal `json:"cash_tender,omitempty"`
}

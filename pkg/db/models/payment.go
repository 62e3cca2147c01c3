package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/enums"
)

// Payment tracks one gateway charge for an order. An order can accumulate
// several rows when earlier charges expire or are canceled; at most one is
// ever pending.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Order           *Order              `gorm:"foreignKey:OrderID"`
	TransactionCode string              `gorm:"column:transaction_code;type:text;not null;uniqueIndex"`
	Method          enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	QRCode          *string             `gorm:"column:qr_code;type:text"`
	QRCodeBase64    *string             `gorm:"column:qr_code_base64;type:text"`
	TicketURL       *string             `gorm:"column:ticket_url;type:text"`
	ExpiresAt       *time.Time          `gorm:"column:expires_at"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether a pending charge has passed its deadline.
func (p Payment) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

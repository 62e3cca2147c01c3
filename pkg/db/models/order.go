package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/enums"
)

// Order is an immutable snapshot of a completed checkout. Totals, line prices
// and the customer identity are frozen at creation; later catalog or promo
// edits never touch it.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                  string              `gorm:"column:code;type:text;not null;uniqueIndex"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	User                  *User               `gorm:"foreignKey:UserID"`
	CustomerName          string              `gorm:"column:customer_name;type:text;not null"`
	CustomerPhone         string              `gorm:"column:customer_phone;type:text;not null"`
	AddressID             *uuid.UUID          `gorm:"column:address_id;type:uuid"`
	Address               *Address            `gorm:"foreignKey:AddressID"`
	CartID                *uuid.UUID          `gorm:"column:cart_id;type:uuid"`
	Status                enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	DeliveryType          enums.DeliveryType  `gorm:"column:delivery_type;type:text;not null"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Subtotal              decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountValue         decimal.Decimal     `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	DeliveryFee           decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Total                 decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PromoCodeID           *uuid.UUID          `gorm:"column:promo_code_id;type:uuid"`
	PromoCode             *string             `gorm:"column:promo_code;type:text"`
	CashTender            *decimal.Decimal    `gorm:"column:cash_tender;type:numeric(12,2)"`
	CashChange            *decimal.Decimal    `gorm:"column:cash_change;type:numeric(12,2)"`
	Notes                 *string             `gorm:"column:notes;type:text"`
	PrivacyPolicyAccepted bool                `gorm:"column:privacy_policy_accepted;not null;default:false"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/enums"
)

// Cart is the pre-checkout aggregate addressed by its public code. Totals are
// never stored; they are derived from the items on every read.
type Cart struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string           `gorm:"column:code;type:text;not null;uniqueIndex"`
	Status       enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	WhatsappID   *string          `gorm:"column:whatsapp_id;type:text"`
	Neighborhood *string          `gorm:"column:neighborhood;type:text"`
	DeliveryFee  decimal.Decimal  `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`

	// Promo snapshot, written by promo apply and cleared by promo remove.
	PromoCodeID        *uuid.UUID       `gorm:"column:promo_code_id;type:uuid"`
	PromoCode          *string          `gorm:"column:promo_code;type:text"`
	DiscountPercentage *decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountValue      *decimal.Decimal `gorm:"column:discount_value;type:numeric(12,2)"`
	PromoAppliedAt     *time.Time       `gorm:"column:promo_applied_at"`

	Items     []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

// HasItems reports whether the cart still holds at least one line.
func (c Cart) HasItems() bool {
	return len(c.Items) > 0
}

// HasPromo reports whether a promo snapshot is applied.
func (c Cart) HasPromo() bool {
	return c.PromoCodeID != nil
}

// Total sums the item subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineSubtotal())
	}
	return total
}

// TotalWithDiscount applies the snapshotted discount, clamped at zero.
func (c Cart) TotalWithDiscount() decimal.Decimal {
	total := c.Total()
	if c.DiscountValue == nil {
		return total
	}
	discounted := total.Sub(*c.DiscountValue)
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

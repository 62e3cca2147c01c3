package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// CartItem is one cart line with its price snapshot. The snapshot keeps the
// line stable when the catalog changes under an open cart.
type CartItem struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID              `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID   uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	ProductName string                 `gorm:"column:product_name;type:text;not null"`
	Size        string                 `gorm:"column:size;type:text;not null"`
	Quantity    int                    `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal        `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Flavors     types.FlavorSelections `gorm:"column:flavors;type:jsonb;serializer:json"`
	Options     types.OptionPrices     `gorm:"column:options;type:jsonb;serializer:json"`
	Observation *string                `gorm:"column:observation;type:text"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// LineSubtotal is quantity times the snapshotted unit price plus options.
func (i CartItem) LineSubtotal() decimal.Decimal {
	unit := i.UnitPrice.Add(i.Options.Sum())
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SameSelection reports whether another line targets the same product, size,
// flavors, options and observation. Matching lines merge by quantity instead
// of duplicating; a line that differs in any customization stays separate so
// no selection is silently discarded.
func (i CartItem) SameSelection(other CartItem) bool {
	if i.ProductID != other.ProductID || i.Size != other.Size {
		return false
	}
	if !i.Flavors.Equal(other.Flavors) || !i.Options.Equal(other.Options) {
		return false
	}
	return equalText(i.Observation, other.Observation)
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

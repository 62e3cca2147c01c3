package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	ProductName string                 `gorm:"column:product_name;type:text;not null"`
	Size        string                 `gorm:"column:size;type:text;not null"`
	Quantity    int                    `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal        `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Flavors     types.FlavorSelections `gorm:"column:flavors;type:jsonb;serializer:json"`
	Options     types.OptionPrices     `gorm:"column:options;type:jsonb;serializer:json"`
	Observation *string                `gorm:"column:observation;type:text"`
	LineTotal   decimal.Decimal        `gorm:"column:line_total;type:numeric(12,2);not null"`
}

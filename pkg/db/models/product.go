package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thomaggio/thomaggio-backend/pkg/types"
)

// Product is a menu entry. Prices are keyed by size so a single product row
// covers every portion it is sold in.
type Product struct {
	ID           uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                     `gorm:"column:name;type:text;not null"`
	Description  *string                    `gorm:"column:description;type:text"`
	Category     string                     `gorm:"column:category;type:text;not null;index"`
	PricesBySize map[string]decimal.Decimal `gorm:"column:prices_by_size;type:jsonb;serializer:json;not null"`
	MinFlavors   map[string]int             `gorm:"column:min_flavors;type:jsonb;serializer:json"`
	MaxFlavors   map[string]int             `gorm:"column:max_flavors;type:jsonb;serializer:json"`
	Flavors      []string                   `gorm:"column:flavors;type:jsonb;serializer:json"`
	Options      types.OptionPrices         `gorm:"column:options;type:jsonb;serializer:json"`
	Active       bool                       `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the unit price for the given size.
func (p Product) PriceFor(size string) (decimal.Decimal, bool) {
	price, ok := p.PricesBySize[size]
	return price, ok
}

// FlavorBoundsFor returns the allowed flavor count range for the given size.
// A zero max means the product takes no flavor selection.
func (p Product) FlavorBoundsFor(size string) (min, max int) {
	return p.MinFlavors[size], p.MaxFlavors[size]
}

// HasFlavor reports whether the named flavor is on the product's menu.
func (p Product) HasFlavor(name string) bool {
	for _, flavor := range p.Flavors {
		if flavor == name {
			return true
		}
	}
	return false
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCode is a percentage discount with an optional validity window, usage
// cap and minimum order value.
type PromoCode struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string          `gorm:"column:code;type:text;not null;uniqueIndex"`
	Description        *string         `gorm:"column:description;type:text"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	MinOrderValue      decimal.Decimal `gorm:"column:min_order_value;type:numeric(12,2);not null;default:0"`
	MaxUses            *int            `gorm:"column:max_uses"`
	CurrentUses        int             `gorm:"column:current_uses;not null;default:0"`
	StartsAt           *time.Time      `gorm:"column:starts_at"`
	EndsAt             *time.Time      `gorm:"column:ends_at"`
	Active             bool            `gorm:"column:active;not null;default:true"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// WithinWindow reports whether the code is usable at the given instant.
func (p PromoCode) WithinWindow(now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}

// Exhausted reports whether the usage cap has been reached.
func (p PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.CurrentUses >= *p.MaxUses
}

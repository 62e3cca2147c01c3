package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a delivery destination owned by a user. Identical submissions
// reuse the stored row instead of inserting duplicates.
type Address struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Street       string    `gorm:"column:street;type:text;not null"`
	Number       string    `gorm:"column:number;type:text;not null"`
	Neighborhood string    `gorm:"column:neighborhood;type:text;not null"`
	Complement   *string   `gorm:"column:complement;type:text"`
	Reference    *string   `gorm:"column:reference;type:text"`
	City         string    `gorm:"column:city;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Matches reports whether another address describes the same destination.
func (a Address) Matches(other Address) bool {
	if a.Street != other.Street || a.Number != other.Number {
		return false
	}
	if a.Neighborhood != other.Neighborhood || a.City != other.City {
		return false
	}
	return equalOptional(a.Complement, other.Complement) && equalOptional(a.Reference, other.Reference)
}

func equalOptional(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a customer identified by phone number. No login exists; the phone
// ties repeat orders to the same person.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Phone     string    `gorm:"column:phone;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// FirstLast splits the display name into a first name and the remainder, used
// when the payment gateway wants the payer name in two fields.
func (u User) FirstLast() (string, string) {
	for i := 0; i < len(u.Name); i++ {
		if u.Name[i] == ' ' {
			return u.Name[:i], u.Name[i+1:]
		}
	}
	return u.Name, ""
}

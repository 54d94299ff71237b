package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a saved delivery address owned by a user.
type Address struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Phone       string    `gorm:"column:phone;not null"`
	AddressLine string    `gorm:"column:address_line;not null"`
	City        string    `gorm:"column:city;not null"`
	Country     string    `gorm:"column:country;not null"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Snapshot copies the address fields without identifiers.
func (a Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		City:        a.City,
		Country:     a.Country,
		IsDefault:   a.IsDefault,
	}
}

// AddressSnapshot is the delivery address frozen onto an order.
type AddressSnapshot struct {
	Phone       string `json:"phone,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

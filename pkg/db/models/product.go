package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/wacka-accessories/wacka-backend/pkg/db/types"
)

// Product is a catalog entry. Stock lives on InventoryItem.
type Product struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name          string             `gorm:"column:name;not null"`
	Slug          string             `gorm:"column:slug;not null;uniqueIndex"`
	Description   string             `gorm:"column:description;not null;default:''"`
	SKU           string             `gorm:"column:sku;not null;uniqueIndex"`
	Category      string             `gorm:"column:category;not null;default:''"`
	Price         decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal   `gorm:"column:discount_price;type:numeric(12,2)"`
	Images        dbtypes.StringList `gorm:"column:images;type:text;not null"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// EffectivePrice is the discount price when set, otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

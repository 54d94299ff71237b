package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// InventoryItem holds the on-hand quantity for one product.
type InventoryItem struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity          int       `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:10"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string { return "inventory" }

// IsLowStock reports whether the quantity is at or under the threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.LowStockThreshold
}

// InventoryLog is an append-only record of one quantity change.
type InventoryLog struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	QuantityChange int                       `gorm:"column:quantity_change;not null"`
	Reason         enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	ReferenceID    string                    `gorm:"column:reference_id;not null"`
	CreatedBy      *uuid.UUID                `gorm:"column:created_by;type:uuid"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (l *InventoryLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

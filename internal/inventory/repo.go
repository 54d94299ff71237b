package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
)

// StockRow is an inventory record joined with its product name.
type StockRow struct {
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	SKU               string    `json:"sku"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsLowStock        bool      `json:"is_low_stock" gorm:"-"`
}

// Repository persists inventory rows and their audit log.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, now: r.now}
}

func (r *Repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// QuantitiesFor returns on-hand quantity per product. Products without a row
// are absent from the map.
func (r *Repository) QuantitiesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.InventoryItem
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row.Quantity
	}
	return out, nil
}

// Decrement removes qty only when at least qty is on hand.
func (r *Repository) Decrement(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND quantity >= ?", productID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": r.now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// ApplyDelta adds delta unless the result would go below zero.
func (r *Repository) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND quantity + ? >= 0", productID, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": r.now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) AppendLog(ctx context.Context, entry *models.InventoryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Logs returns the newest log entries for a product.
func (r *Repository) Logs(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error) {
	var rows []models.InventoryLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) stockQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("inventory").
		Select("inventory.product_id, products.name AS product_name, products.sku, inventory.quantity, inventory.low_stock_threshold").
		Joins("JOIN products ON products.id = inventory.product_id")
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]StockRow, error) {
	var rows []StockRow
	err := r.stockQuery(ctx).Order("products.name ASC").Limit(limit).Offset(offset).Scan(&rows).Error
	return markLow(rows), err
}

// LowStock lists active products at or below their threshold, lowest first.
func (r *Repository) LowStock(ctx context.Context, limit int) ([]StockRow, error) {
	var rows []StockRow
	err := r.stockQuery(ctx).
		Where("inventory.quantity <= inventory.low_stock_threshold AND products.is_active = ?", true).
		Order("inventory.quantity ASC").
		Limit(limit).
		Scan(&rows).Error
	return markLow(rows), err
}

func markLow(rows []StockRow) []StockRow {
	for i := range rows {
		rows[i].IsLowStock = rows[i].Quantity <= rows[i].LowStockThreshold
	}
	return rows
}

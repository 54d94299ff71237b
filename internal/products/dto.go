package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
)

// ProductDTO is the catalog shape returned to clients.
type ProductDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Category      string           `json:"category"`
	SKU           string           `json:"sku"`
	Images        []string         `json:"images"`
	IsActive      bool             `json:"is_active"`
	StockQuantity int              `json:"stock_quantity"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toDTO(p models.Product, stock int) ProductDTO {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Category:      p.Category,
		SKU:           p.SKU,
		Images:        images,
		IsActive:      p.IsActive,
		StockQuantity: stock,
		CreatedAt:     p.CreatedAt,
	}
}

// CreateProductInput is the admin payload for a new catalog entry.
type CreateProductInput struct {
	Name              string           `json:"name" validate:"required"`
	Description       string           `json:"description"`
	Price             decimal.Decimal  `json:"price" validate:"required"`
	DiscountPrice     *decimal.Decimal `json:"discount_price,omitempty"`
	Category          string           `json:"category" validate:"required"`
	SKU               string           `json:"sku" validate:"required"`
	Images            []string         `json:"images"`
	InitialStock      int              `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

// UpdateProductInput changes only the fields that are set.
type UpdateProductInput struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Images        []string         `json:"images,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

// ListFilters narrows catalog listings.
type ListFilters struct {
	Category        string
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// CategoryDTO is a catalog category with its count of active products.
type CategoryDTO struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
}

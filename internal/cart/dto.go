package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput adds quantity units of a product.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput sets the quantity of a line; zero removes it.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// Line is one priced cart row.
type Line struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// View is the cart priced with live catalog prices.
type View struct {
	Items     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func emptyView() *View {
	return &View{Items: []Line{}, Total: decimal.Zero}
}

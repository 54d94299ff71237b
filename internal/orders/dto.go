package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// AddressInput is an inline delivery address supplied at checkout.
type AddressInput struct {
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// CreateOrderInput carries the checkout fields.
type CreateOrderInput struct {
	AddressID      *uuid.UUID           `json:"address_id,omitempty"`
	Address        *AddressInput        `json:"address,omitempty"`
	PhoneNumber    string               `json:"phone_number" validate:"required"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method" validate:"required"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
}

// UpdateStatusInput is the admin status change payload.
type UpdateStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Note   string            `json:"note"`
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

// OrderItemDTO is one captured line.
type OrderItemDTO struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// OrderDTO is the order shape returned to clients.
type OrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"user_id"`
	Items           []OrderItemDTO         `json:"items"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Status          enums.OrderStatus      `json:"status"`
	AddressSnapshot models.AddressSnapshot `json:"address_snapshot"`
	PhoneNumber     string                 `json:"phone_number"`
	PaymentMethod   enums.PaymentMethod    `json:"payment_method"`
	DeliveryMethod  enums.DeliveryMethod   `json:"delivery_method"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// HistoryDTO is one status history entry.
type HistoryDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	ChangedBy *uuid.UUID        `json:"changed_by,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// FromModel maps a persisted order.
func FromModel(o models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Price:        it.UnitPrice,
			Quantity:     it.Quantity,
		})
	}
	return OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		AddressSnapshot: o.AddressSnapshot,
		PhoneNumber:     o.PhoneNumber,
		PaymentMethod:   o.PaymentMethod,
		DeliveryMethod:  o.DeliveryMethod,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, o := range rows {
		out = append(out, FromModel(o))
	}
	return out
}

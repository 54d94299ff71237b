package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// OrderCreatedEvent announces a new checkout.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	ItemCount     int                 `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every status transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Source  string            `json:"source"`
}

// PaymentEvent covers initiation and settlement of a payment.
type PaymentEvent struct {
	PaymentID         uuid.UUID           `json:"payment_id"`
	OrderID           uuid.UUID           `json:"order_id"`
	Status            enums.PaymentStatus `json:"status"`
	Amount            decimal.Decimal     `json:"amount"`
	CheckoutRequestID string              `json:"checkout_request_id,omitempty"`
	Receipt           string              `json:"receipt,omitempty"`
	ResultCode        *int                `json:"result_code,omitempty"`
}

// InventoryAdjustedEvent reports a manual stock change.
type InventoryAdjustedEvent struct {
	ProductID   uuid.UUID                 `json:"product_id"`
	Delta       int                       `json:"delta"`
	NewQuantity int                       `json:"new_quantity"`
	Reason      enums.StockMovementReason `json:"reason"`
	ReferenceID string                    `json:"reference_id"`
}

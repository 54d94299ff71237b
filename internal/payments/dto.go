package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// InitiateInput starts an STK push for an order.
type InitiateInput struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	PhoneNumber string    `json:"phone_number"`
}

// InitiateResult is returned for both fresh and reused payments.
type InitiateResult struct {
	PaymentID         uuid.UUID           `json:"payment_id"`
	CheckoutRequestID string              `json:"checkout_request_id,omitempty"`
	Status            enums.PaymentStatus `json:"status"`
	CustomerMessage   string              `json:"customer_message,omitempty"`
	Existing          bool                `json:"existing"`
}

// StatusResult is the customer's view of a payment.
type StatusResult struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	OrderID     uuid.UUID           `json:"order_id"`
	Status      enums.PaymentStatus `json:"status"`
	Receipt     string              `json:"mpesa_receipt,omitempty"`
	ResultDesc  string              `json:"result_description,omitempty"`
	OrderStatus enums.OrderStatus   `json:"order_status"`
}

// PaymentDTO is the admin listing shape.
type PaymentDTO struct {
	ID                uuid.UUID           `json:"id"`
	OrderID           uuid.UUID           `json:"order_id"`
	UserID            uuid.UUID           `json:"user_id"`
	Method            enums.PaymentMethod `json:"method"`
	Amount            decimal.Decimal     `json:"amount"`
	PhoneNumber       string              `json:"phone_number"`
	Status            enums.PaymentStatus `json:"status"`
	CheckoutRequestID string              `json:"checkout_request_id,omitempty"`
	MpesaReceipt      string              `json:"mpesa_receipt,omitempty"`
	ResultCode        *int                `json:"result_code,omitempty"`
	ResultDescription string              `json:"result_description,omitempty"`
	ErrorDetail       string              `json:"error_detail,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}

func fromModel(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		Method:            p.Method,
		Amount:            p.Amount,
		PhoneNumber:       p.PhoneNumber,
		Status:            p.Status,
		CheckoutRequestID: deref(p.CheckoutRequestID),
		MpesaReceipt:      deref(p.MpesaReceipt),
		ResultCode:        p.ResultCode,
		ResultDescription: deref(p.ResultDescription),
		ErrorDetail:       deref(p.ErrorDetail),
		CreatedAt:         p.CreatedAt,
		CompletedAt:       p.CompletedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

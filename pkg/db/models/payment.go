package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// Payment is one mobile money collection attempt for an order.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Method            enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PhoneNumber       string              `gorm:"column:phone_number;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null;index"`
	CheckoutRequestID *string             `gorm:"column:checkout_request_id;uniqueIndex"`
	MerchantRequestID *string             `gorm:"column:merchant_request_id"`
	MpesaReceipt      *string             `gorm:"column:mpesa_receipt"`
	ResultCode        *int                `gorm:"column:result_code"`
	ResultDescription *string             `gorm:"column:result_description"`
	ErrorDetail       *string             `gorm:"column:error_detail"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// MpesaTransaction records the gateway's reply to an STK push.
type MpesaTransaction struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID           uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	CheckoutRequestID   string          `gorm:"column:checkout_request_id;not null"`
	MerchantRequestID   string          `gorm:"column:merchant_request_id;not null;default:''"`
	ResponseCode        string          `gorm:"column:response_code;not null;default:''"`
	ResponseDescription string          `gorm:"column:response_description;not null;default:''"`
	CustomerMessage     string          `gorm:"column:customer_message;not null;default:''"`
	PhoneNumber         string          `gorm:"column:phone_number;not null"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *MpesaTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// MpesaCallbackLog keeps every raw callback body for dispute resolution.
type MpesaCallbackLog struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CheckoutRequestID string    `gorm:"column:checkout_request_id;not null;default:'';index"`
	Payload           string    `gorm:"column:payload;type:text;not null"`
	ReceivedAt        time.Time `gorm:"column:received_at;not null"`
}

func (l *MpesaCallbackLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

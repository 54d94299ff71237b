package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
)

// Repository persists payments, gateway replies and raw callbacks.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindOpenForOrder returns the initiated or pending payment of an order, or
// nil when there is none.
func (r *Repository) FindOpenForOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, enums.OpenPaymentStatuses).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPending records the gateway correlation ids on an initiated payment.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, checkoutRequestID, merchantRequestID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusInitiated).
		Updates(map[string]any{
			"status":              enums.PaymentStatusPending,
			"checkout_request_id": checkoutRequestID,
			"merchant_request_id": merchantRequestID,
			"updated_at":          time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// Outcome is the terminal state written by Finalize.
type Outcome struct {
	Status            enums.PaymentStatus
	Receipt           string
	ResultCode        *int
	ResultDescription string
	ErrorDetail       string
	CompletedAt       time.Time
}

// Finalize moves an open payment to a terminal status. Zero rows means the
// payment was already settled by someone else.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID, out Outcome) (bool, error) {
	updates := map[string]any{
		"status":       out.Status,
		"completed_at": out.CompletedAt,
		"updated_at":   out.CompletedAt,
	}
	if out.Receipt != "" {
		updates["mpesa_receipt"] = out.Receipt
	}
	if out.ResultCode != nil {
		updates["result_code"] = *out.ResultCode
	}
	if out.ResultDescription != "" {
		updates["result_description"] = out.ResultDescription
	}
	if out.ErrorDetail != "" {
		updates["error_detail"] = out.ErrorDetail
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, enums.OpenPaymentStatuses).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) CreateTransaction(ctx context.Context, t *models.MpesaTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) LogCallback(ctx context.Context, entry *models.MpesaCallbackLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) List(ctx context.Context, status *enums.PaymentStatus, limit, offset int) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Payment
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

// ListStale returns open payments created before cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", enums.OpenPaymentStatuses, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox/payloads"
)

// Service exposes the admin inventory operations.
type Service interface {
	Adjust(ctx context.Context, actorID uuid.UUID, input AdjustInput) (*AdjustResult, error)
	List(ctx context.Context, limit, offset int) ([]StockRow, error)
	LowStock(ctx context.Context) ([]StockRow, error)
	Logs(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error)
}

// AdjustInput is a signed manual stock change.
type AdjustInput struct {
	ProductID uuid.UUID                 `json:"product_id" validate:"required"`
	Change    int                       `json:"change" validate:"required"`
	Reason    enums.StockMovementReason `json:"reason" validate:"required"`
}

type AdjustResult struct {
	ProductID   uuid.UUID `json:"product_id"`
	NewQuantity int       `json:"new_quantity"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockJobs interface {
	LowStockCheck() notifications.Job
}

type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Outbox   outbox.Emitter
	Jobs     lowStockJobs
	Enqueuer notifications.Enqueuer
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outbox.Emitter
	jobs     lowStockJobs
	enqueuer notifications.Enqueuer
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("inventory repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Jobs == nil || params.Enqueuer == nil:
		return nil, fmt.Errorf("notification jobs required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		jobs:     params.Jobs,
		enqueuer: params.Enqueuer,
	}, nil
}

// AdjustReference tags manual adjustments with the acting admin.
func AdjustReference(actorID uuid.UUID) string {
	return "ADJ-" + actorID.String()[:8]
}

func (s *service) Adjust(ctx context.Context, actorID uuid.UUID, input AdjustInput) (*AdjustResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Change == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change must be non-zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason")
	}

	ref := AdjustReference(actorID)
	var result AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Get(ctx, input.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
		}
		ok, err := repo.ApplyDelta(ctx, input.ProductID, input.Change)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust inventory")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "Cannot reduce stock below 0")
		}
		var actor *uuid.UUID
		if actorID != uuid.Nil {
			actor = &actorID
		}
		if err := appendLog(ctx, repo, Movement{
			ProductID:   input.ProductID,
			Reason:      input.Reason,
			ReferenceID: ref,
			ActorID:     actor,
		}, input.Change); err != nil {
			return err
		}
		updated, err := repo.Get(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
		}
		result = AdjustResult{ProductID: input.ProductID, NewQuantity: updated.Quantity}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateInventory,
			AggregateID:   input.ProductID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data: payloads.InventoryAdjustedEvent{
				ProductID:   input.ProductID,
				Delta:       input.Change,
				NewQuantity: updated.Quantity,
				Reason:      input.Reason,
				ReferenceID: ref,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.enqueuer.Enqueue(ctx, s.jobs.LowStockCheck())
	return &result, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]StockRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return rows, nil
}

func (s *service) LowStock(ctx context.Context) ([]StockRow, error) {
	rows, err := s.repo.LowStock(ctx, lowStockAlertLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}

func (s *service) Logs(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.repo.Logs(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory logs")
	}
	return rows, nil
}

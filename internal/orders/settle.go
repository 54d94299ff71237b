package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox/payloads"
)

// Settler applies payment outcomes to orders on the caller's transaction.
type Settler interface {
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, note string) (*Settlement, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, note string) (*Settlement, error)
}

// Shortfall is a paid line the shelf could not cover.
type Shortfall struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
}

// Settlement reports what a payment outcome did to the order. Applied is
// false when the order had already left pending_payment.
type Settlement struct {
	Order      *models.Order
	From       enums.OrderStatus
	To         enums.OrderStatus
	Applied    bool
	Shortfalls []Shortfall
}

// MarkPaid moves a pending_payment order to paid and takes its stock. Lines
// that can no longer be covered are recorded as shortfalls and raised to the
// admin inbox; stock never goes negative.
func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, note string) (*Settlement, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	result := &Settlement{Order: order, From: order.Status, To: enums.OrderStatusPaid}
	if order.Status != enums.OrderStatusPendingPayment {
		return result, nil
	}
	ok, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPendingPayment, enums.OrderStatusPaid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !ok {
		return result, nil
	}

	for i := range order.Items {
		line := &order.Items[i]
		err := s.stock.Deduct(ctx, tx, inventory.Movement{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			Reason:      enums.StockReasonSale,
			ReferenceID: order.ID.String(),
		})
		if pkgerrors.HasCode(err, pkgerrors.CodeOutOfStock) {
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
			})
			productID := line.ProductID
			if err := s.notifier.Notify(ctx, tx, notifications.NotifyInput{
				Type:      enums.NotificationLowStock,
				Title:     "Stock Shortfall",
				Message:   fmt.Sprintf("Order #%s was paid but %s could not cover %d units", order.ShortID(), line.ProductName, line.Quantity),
				OrderID:   &order.ID,
				ProductID: &productID,
			}); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := repo.SetDeductedQty(ctx, line.ID, line.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deducted quantity")
		}
		line.DeductedQty = line.Quantity
	}
	at := s.now().UTC()
	if err := repo.MarkStockDeducted(ctx, order.ID, &at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark stock deducted")
	}

	if note == "" {
		note = "Payment received"
	}
	if err := s.recordSettlement(ctx, tx, order, enums.OrderStatusPaid, note); err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusPaid
	order.StockDeductedAt = &at
	result.Applied = true
	return result, nil
}

// MarkFailed moves a pending_payment order to failed. No stock is held at
// that point so nothing is restored.
func (s *service) MarkFailed(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, note string) (*Settlement, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	result := &Settlement{Order: order, From: order.Status, To: enums.OrderStatusFailed}
	if order.Status != enums.OrderStatusPendingPayment {
		return result, nil
	}
	ok, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPendingPayment, enums.OrderStatusFailed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
	}
	if !ok {
		return result, nil
	}
	if note == "" {
		note = "Payment failed"
	}
	if err := s.recordSettlement(ctx, tx, order, enums.OrderStatusFailed, note); err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusFailed
	result.Applied = true
	return result, nil
}

func (s *service) recordSettlement(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, note string) error {
	if err := s.repo.WithTx(tx).AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID: order.ID,
		Status:  to,
		Note:    note,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			From:    order.Status,
			To:      to,
			Source:  sourcePayment,
		},
	})
}

package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
)

const lowStockAlertLimit = 100

// Ledger pairs every quantity change with an inventory log row. All writes
// run on the caller's transaction.
type Ledger struct {
	repo *Repository
}

func NewLedger(repo *Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Movement is one stock change against a product.
type Movement struct {
	ProductID   uuid.UUID
	Quantity    int
	Reason      enums.StockMovementReason
	ReferenceID string
	ActorID     *uuid.UUID
}

// Init creates the inventory row for a new product and logs the opening stock.
func (l *Ledger) Init(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity, threshold int, actorID *uuid.UUID) error {
	repo := l.repo.WithTx(tx)
	if err := repo.Create(ctx, &models.InventoryItem{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: threshold,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory")
	}
	if quantity == 0 {
		return nil
	}
	return appendLog(ctx, repo, Movement{
		ProductID:   productID,
		Quantity:    quantity,
		Reason:      enums.StockReasonRestock,
		ReferenceID: productID.String(),
		ActorID:     actorID,
	}, quantity)
}

// Deduct takes m.Quantity off hand with a conditional update. It returns an
// INSUFFICIENT_STOCK error when less is available.
func (l *Ledger) Deduct(ctx context.Context, tx *gorm.DB, m Movement) error {
	if m.Quantity <= 0 {
		return nil
	}
	repo := l.repo.WithTx(tx)
	ok, err := repo.Decrement(ctx, m.ProductID, m.Quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": m.ProductID, "requested": m.Quantity})
	}
	if m.Reason == "" {
		m.Reason = enums.StockReasonSale
	}
	return appendLog(ctx, repo, m, -m.Quantity)
}

// Restore puts m.Quantity back on hand and logs it as a return.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, m Movement) error {
	if m.Quantity <= 0 {
		return nil
	}
	repo := l.repo.WithTx(tx)
	ok, err := repo.ApplyDelta(ctx, m.ProductID, m.Quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore inventory")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("inventory for product %s not found", m.ProductID))
	}
	if m.Reason == "" {
		m.Reason = enums.StockReasonReturn
	}
	return appendLog(ctx, repo, m, m.Quantity)
}

// QuantitiesFor exposes on-hand quantities for catalog and cart reads.
func (l *Ledger) QuantitiesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	return l.repo.QuantitiesFor(ctx, productIDs)
}

// Available reads on-hand quantities on tx.
func (l *Ledger) Available(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	return l.repo.WithTx(tx).QuantitiesFor(ctx, productIDs)
}

// LowStockLines feeds the low stock alert email.
func (l *Ledger) LowStockLines(ctx context.Context) ([]mailer.LowStockLine, error) {
	rows, err := l.repo.LowStock(ctx, lowStockAlertLimit)
	if err != nil {
		return nil, err
	}
	out := make([]mailer.LowStockLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, mailer.LowStockLine{Name: row.ProductName, Quantity: row.Quantity, Threshold: row.LowStockThreshold})
	}
	return out, nil
}

func appendLog(ctx context.Context, repo *Repository, m Movement, change int) error {
	entry := &models.InventoryLog{
		ProductID:      m.ProductID,
		QuantityChange: change,
		Reason:         m.Reason,
		ReferenceID:    m.ReferenceID,
		CreatedBy:      m.ActorID,
	}
	if err := repo.AppendLog(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory log")
	}
	return nil
}

package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	product "github.com/wacka-accessories/wacka-backend/internal/products"
	"github.com/wacka-accessories/wacka-backend/pkg/db/dbtest"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	dbtypes "github.com/wacka-accessories/wacka-backend/pkg/db/types"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

type fixture struct {
	conn *gorm.DB
	svc  Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), product.NewRepository(conn), inventory.NewRepository(conn))
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc}
}

func (f fixture) product(t *testing.T, price int64, discount *int64, stock int, active bool) uuid.UUID {
	t.Helper()
	p := models.Product{
		Name:     "Item " + uuid.NewString()[:4],
		Slug:     uuid.NewString(),
		SKU:      uuid.NewString(),
		Price:    decimal.NewFromInt(price),
		Images:   dbtypes.StringList{"https://cdn.test/a.jpg"},
		IsActive: true,
	}
	if discount != nil {
		d := decimal.NewFromInt(*discount)
		p.DiscountPrice = &d
	}
	require.NoError(t, f.conn.Create(&p).Error)
	if !active {
		require.NoError(t, f.conn.Model(&p).Update("is_active", false).Error)
	}
	require.NoError(t, f.conn.Create(&models.InventoryItem{ProductID: p.ID, Quantity: stock, LowStockThreshold: 1}).Error)
	return p.ID
}

func TestGetEmptyCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	view, err := f.svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.True(t, view.Total.IsZero())
}

func TestAddAccumulatesAndChecksStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	discount := int64(80)
	pid := f.product(t, 100, &discount, 3, true)

	view, err := f.svc.Add(ctx, user, AddItemInput{ProductID: pid, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.True(t, view.Items[0].Price.Equal(decimal.NewFromInt(80)))
	require.True(t, view.Total.Equal(decimal.NewFromInt(160)))
	require.Equal(t, "https://cdn.test/a.jpg", view.Items[0].ProductImage)

	view, err = f.svc.Add(ctx, user, AddItemInput{ProductID: pid, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, 3, view.Items[0].Quantity)

	_, err = f.svc.Add(ctx, user, AddItemInput{ProductID: pid, Quantity: 1})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
	require.Contains(t, err.Error(), "Available: 3")
}

func TestAddRejectsInactiveProduct(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	pid := f.product(t, 100, nil, 5, false)
	_, err := f.svc.Add(context.Background(), uuid.New(), AddItemInput{ProductID: pid, Quantity: 1})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestUpdateAndRemove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.product(t, 100, nil, 10, true)
	b := f.product(t, 50, nil, 10, true)

	_, err := f.svc.Update(ctx, user, a, UpdateItemInput{Quantity: 1})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "cart must exist, got %v", err)

	_, err = f.svc.Add(ctx, user, AddItemInput{ProductID: a, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, user, AddItemInput{ProductID: b, Quantity: 1})
	require.NoError(t, err)

	view, err := f.svc.Update(ctx, user, a, UpdateItemInput{Quantity: 4})
	require.NoError(t, err)
	require.True(t, view.Total.Equal(decimal.NewFromInt(450)))

	_, err = f.svc.Update(ctx, user, a, UpdateItemInput{Quantity: 11})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	view, err = f.svc.Update(ctx, user, a, UpdateItemInput{Quantity: 0})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	view, err = f.svc.Remove(ctx, user, b)
	require.NoError(t, err)
	require.Empty(t, view.Items)

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("user_id = ?", user).Count(&carts).Error)
	require.EqualValues(t, 1, carts)
}

func TestClearKeepsCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	pid := f.product(t, 100, nil, 10, true)
	_, err := f.svc.Add(ctx, user, AddItemInput{ProductID: pid, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, user))
	view, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

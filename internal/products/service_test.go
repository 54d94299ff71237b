package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/pkg/db/dbtest"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *inventory.Repository) {
	t.Helper()
	client, conn := dbtest.Client(t)
	invRepo := inventory.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), client, inventory.NewLedger(invRepo))
	require.NoError(t, err)
	return svc, invRepo
}

func intPtr(v int) *int { return &v }

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"iPhone 15 Pro Case":   "iphone-15-pro-case",
		"  USB-C  Cable (2m) ": "usb-c-cable-2m",
		"***":                  "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateProductAddsInventoryRow(t *testing.T) {
	t.Parallel()
	svc, invRepo := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, uuid.New(), CreateProductInput{
		Name:         "Leather Case",
		Price:        decimal.NewFromInt(1500),
		Category:     "cases",
		SKU:          "CASE-001",
		InitialStock: 12,
	})
	require.NoError(t, err)
	require.Equal(t, "leather-case", dto.Slug)
	require.True(t, dto.IsActive)
	require.Equal(t, 12, dto.StockQuantity)

	item, err := invRepo.Get(ctx, dto.ID)
	require.NoError(t, err)
	require.Equal(t, 12, item.Quantity)
	require.Equal(t, DefaultLowStockThreshold, item.LowStockThreshold)

	second, err := svc.Create(ctx, uuid.Nil, CreateProductInput{
		Name:              "Leather Case",
		Price:             decimal.NewFromInt(900),
		SKU:               "CASE-002",
		LowStockThreshold: intPtr(3),
	})
	require.NoError(t, err)
	require.Equal(t, "leather-case-case-002", second.Slug)

	_, err = svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Dup", Price: decimal.NewFromInt(1), SKU: "CASE-001"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCreateProductValidatesPrices(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	discount := decimal.NewFromInt(200)
	_, err := svc.Create(context.Background(), uuid.Nil, CreateProductInput{
		Name: "Case", SKU: "X", Price: decimal.NewFromInt(100), DiscountPrice: &discount,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestListAndDeactivate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Blue Strap", Category: "straps", SKU: "S-1", Price: decimal.NewFromInt(300), InitialStock: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Red Case", Category: "cases", SKU: "C-1", Price: decimal.NewFromInt(500)})
	require.NoError(t, err)

	straps, err := svc.List(ctx, ListFilters{Category: "straps"})
	require.NoError(t, err)
	require.Len(t, straps, 1)
	require.Equal(t, 1, straps[0].StockQuantity)

	found, err := svc.List(ctx, ListFilters{Search: "CASE"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, svc.Deactivate(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID, false)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	got, err := svc.Get(ctx, a.ID, true)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	all, err := svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.True(t, pkgerrors.HasCode(svc.Deactivate(ctx, uuid.New()), pkgerrors.CodeNotFound))
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Case", SKU: "C-9", Price: decimal.NewFromInt(500)})
	require.NoError(t, err)

	discount := decimal.NewFromInt(400)
	name := "  Slim Case "
	updated, err := svc.Update(ctx, p.ID, UpdateProductInput{Name: &name, DiscountPrice: &discount})
	require.NoError(t, err)
	require.Equal(t, "Slim Case", updated.Name)
	require.True(t, updated.DiscountPrice.Equal(discount))

	tooHigh := decimal.NewFromInt(600)
	_, err = svc.Update(ctx, p.ID, UpdateProductInput{DiscountPrice: &tooHigh})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Update(ctx, uuid.New(), UpdateProductInput{Name: &name})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestCategoriesCountActiveProducts(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, in := range []CreateProductInput{
		{Name: "Blue Strap", Category: "watch-straps", SKU: "S-1"},
		{Name: "Red Strap", Category: "watch-straps", SKU: "S-2"},
		{Name: "Clear Case", Category: "phone-cases", SKU: "C-1"},
		{Name: "Loose Item", SKU: "L-1"},
	} {
		in.Price = decimal.NewFromInt(int64(100 * (i + 1)))
		_, err := svc.Create(ctx, uuid.Nil, in)
		require.NoError(t, err)
	}
	hidden, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Old Case", Category: "phone-cases", SKU: "C-2", Price: decimal.NewFromInt(50)})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, hidden.ID))

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []CategoryDTO{
		{Slug: "phone-cases", Name: "Phone Cases", ProductCount: 1},
		{Slug: "watch-straps", Name: "Watch Straps", ProductCount: 2},
	}, cats)
}

func TestRelatedProducts(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	base, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Blue Strap", Category: "straps", SKU: "S-1", Price: decimal.NewFromInt(300)})
	require.NoError(t, err)
	sibling, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Red Strap", Category: "straps", SKU: "S-2", Price: decimal.NewFromInt(300), InitialStock: 3})
	require.NoError(t, err)
	retired, err := svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Green Strap", Category: "straps", SKU: "S-3", Price: decimal.NewFromInt(300)})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, retired.ID))
	_, err = svc.Create(ctx, uuid.Nil, CreateProductInput{Name: "Case", Category: "cases", SKU: "C-1", Price: decimal.NewFromInt(300)})
	require.NoError(t, err)

	related, err := svc.Related(ctx, base.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 1)
	require.Equal(t, sibling.ID, related[0].ID)
	require.Equal(t, 3, related[0].StockQuantity)

	_, err = svc.Related(ctx, retired.ID, 4)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Related(ctx, uuid.New(), 4)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

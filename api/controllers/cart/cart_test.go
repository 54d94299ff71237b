package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wacka-accessories/wacka-backend/api/middleware"
	cartsvc "github.com/wacka-accessories/wacka-backend/internal/cart"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
)

type stubCart struct {
	cartsvc.Service

	addFn    func(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.View, error)
	updateFn func(ctx context.Context, userID, productID uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.View, error)
}

func (s *stubCart) Add(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.View, error) {
	return s.addFn(ctx, userID, input)
}

func (s *stubCart) Update(ctx context.Context, userID, productID uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.View, error) {
	return s.updateFn(ctx, userID, productID, input)
}

func TestCartAddItem(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubCart{
		addFn: func(ctx context.Context, uid uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.View, error) {
			if uid != userID || input.ProductID != productID || input.Quantity != 2 {
				t.Fatalf("unexpected call %s %+v", uid, input)
			}
			return &cartsvc.View{ItemCount: 2, Total: decimal.NewFromInt(3000)}, nil
		},
	}
	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ItemCount != 2 || !envelope.Data.Total.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
}

func TestCartAddItemRejectsZeroQuantity(t *testing.T) {
	svc := &stubCart{
		addFn: func(context.Context, uuid.UUID, cartsvc.AddItemInput) (*cartsvc.View, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartUpdateItemStockError(t *testing.T) {
	productID := uuid.New()
	svc := &stubCart{
		updateFn: func(ctx context.Context, uid, pid uuid.UUID, input cartsvc.UpdateItemInput) (*cartsvc.View, error) {
			if pid != productID {
				t.Fatalf("unexpected product %s", pid)
			}
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "Not enough stock")
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/"+productID.String(), strings.NewReader(`{"quantity":50}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", productID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil)(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

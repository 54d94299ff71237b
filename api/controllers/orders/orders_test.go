package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wacka-accessories/wacka-backend/api/middleware"
	ordersvc "github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
)

type stubOrders struct {
	ordersvc.Service

	createFn       func(ctx context.Context, userID uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error)
	cancelFn       func(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error)
	updateStatusFn func(ctx context.Context, actorID, orderID uuid.UUID, input ordersvc.UpdateStatusInput) (*ordersvc.OrderDTO, error)
	adminListFn    func(ctx context.Context, filters ordersvc.ListFilters) ([]ordersvc.OrderDTO, error)
}

func (s *stubOrders) Create(ctx context.Context, userID uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
	return s.createFn(ctx, userID, input)
}

func (s *stubOrders) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return s.cancelFn(ctx, userID, orderID)
}

func (s *stubOrders) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input ordersvc.UpdateStatusInput) (*ordersvc.OrderDTO, error) {
	return s.updateStatusFn(ctx, actorID, orderID, input)
}

func (s *stubOrders) AdminList(ctx context.Context, filters ordersvc.ListFilters) ([]ordersvc.OrderDTO, error) {
	return s.adminListFn(ctx, filters)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeError(t *testing.T, body []byte) (string, string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code, payload.Error.Message
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrders{
		createFn: func(ctx context.Context, uid uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			if input.PaymentMethod != enums.PaymentMethodMpesa || input.PhoneNumber != "0712345678" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &ordersvc.OrderDTO{ID: orderID, Status: enums.OrderStatusPendingPayment}, nil
		},
	}

	body := `{"phone_number":"0712345678","payment_method":"mpesa","delivery_method":"delivery"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data ordersvc.OrderDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ID != orderID {
		t.Fatalf("expected order %s got %s", orderID, envelope.Data.ID)
	}
}

func TestCreateOrderRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&stubOrders{}, nil)(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateOrderSurfacesEmptyCart(t *testing.T) {
	svc := &stubOrders{
		createFn: func(context.Context, uuid.UUID, ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
		},
	}
	body := `{"phone_number":"0712345678","payment_method":"pay_on_delivery"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	Create(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	code, msg := decodeError(t, resp.Body.Bytes())
	if code != string(pkgerrors.CodeValidation) || msg != "Cart is empty" {
		t.Fatalf("unexpected error %s %q", code, msg)
	}
}

func TestCancelMapsStateConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrders{
		cancelFn: func(ctx context.Context, uid, oid uuid.UUID) (*ordersvc.OrderDTO, error) {
			if oid != orderID {
				t.Fatalf("unexpected order %s", oid)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Cannot cancel order that has been shipped")
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withParam(withUser(req, uuid.New()), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	Cancel(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if _, msg := decodeError(t, resp.Body.Bytes()); msg != "Cannot cancel order that has been shipped" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestAdminUpdateStatusPassesActor(t *testing.T) {
	actorID := uuid.New()
	orderID := uuid.New()
	var got ordersvc.UpdateStatusInput
	svc := &stubOrders{
		updateStatusFn: func(ctx context.Context, aid, oid uuid.UUID, input ordersvc.UpdateStatusInput) (*ordersvc.OrderDTO, error) {
			if aid != actorID || oid != orderID {
				t.Fatalf("unexpected ids %s %s", aid, oid)
			}
			got = input
			return &ordersvc.OrderDTO{ID: orderID, Status: input.Status}, nil
		},
	}
	body := `{"status":"processing","note":"packing"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/orders/"+orderID.String()+"/status", strings.NewReader(body))
	req = withParam(withUser(req, actorID), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Status != enums.OrderStatusProcessing || got.Note != "packing" {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestAdminListRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrders{
		adminListFn: func(context.Context, ordersvc.ListFilters) ([]ordersvc.OrderDTO, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=lost", nil)
	resp := httptest.NewRecorder()
	AdminList(svc, nil)(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminListFiltersByStatus(t *testing.T) {
	svc := &stubOrders{
		adminListFn: func(ctx context.Context, filters ordersvc.ListFilters) ([]ordersvc.OrderDTO, error) {
			if filters.Status == nil || *filters.Status != enums.OrderStatusPaid {
				t.Fatalf("expected paid filter, got %v", filters.Status)
			}
			if filters.Limit != 10 || filters.Offset != 20 {
				t.Fatalf("unexpected page %d/%d", filters.Limit, filters.Offset)
			}
			return []ordersvc.OrderDTO{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=paid&limit=10&offset=20", nil)
	resp := httptest.NewRecorder()
	AdminList(svc, nil)(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wacka-accessories/wacka-backend/api/middleware"
	paymentsvc "github.com/wacka-accessories/wacka-backend/internal/payments"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
)

type stubPayments struct {
	initiateFn func(ctx context.Context, userID uuid.UUID, input paymentsvc.InitiateInput) (*paymentsvc.InitiateResult, error)
}

func (s *stubPayments) Initiate(ctx context.Context, userID uuid.UUID, input paymentsvc.InitiateInput) (*paymentsvc.InitiateResult, error) {
	return s.initiateFn(ctx, userID, input)
}

func (s *stubPayments) HandleCallback(context.Context, []byte) mpesa.Ack { return mpesa.Accepted }

func (s *stubPayments) Status(context.Context, uuid.UUID, uuid.UUID) (*paymentsvc.StatusResult, error) {
	return nil, nil
}

func (s *stubPayments) AdminList(context.Context, *enums.PaymentStatus, int, int) ([]paymentsvc.PaymentDTO, error) {
	return nil, nil
}

func (s *stubPayments) ExpireStale(context.Context, time.Duration, int) (int, error) { return 0, nil }

func initiateRequest(orderID uuid.UUID) *http.Request {
	body := `{"order_id":"` + orderID.String() + `","phone_number":"0712345678"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/initiate", strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestInitiateStatusCodes(t *testing.T) {
	orderID := uuid.New()
	cases := []struct {
		name   string
		result *paymentsvc.InitiateResult
		err    error
		want   int
	}{
		{"fresh", &paymentsvc.InitiateResult{Status: enums.PaymentStatusPending}, nil, http.StatusCreated},
		{"existing", &paymentsvc.InitiateResult{Status: enums.PaymentStatusPending, Existing: true}, nil, http.StatusOK},
		{"gateway", nil, pkgerrors.New(pkgerrors.CodeGateway, "failed to initiate payment"), http.StatusBadGateway},
		{"not payable", nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is not in a payable state"), http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		svc := &stubPayments{
			initiateFn: func(ctx context.Context, uid uuid.UUID, input paymentsvc.InitiateInput) (*paymentsvc.InitiateResult, error) {
				if input.OrderID != orderID || input.PhoneNumber != "0712345678" {
					t.Fatalf("%s: unexpected input %+v", tc.name, input)
				}
				return tc.result, tc.err
			},
		}
		resp := httptest.NewRecorder()
		Initiate(svc, nil)(resp, initiateRequest(orderID))
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

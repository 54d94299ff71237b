package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/db"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox/payloads"
)

// Service covers STK push initiation, callback reconciliation and reads.
type Service interface {
	Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*InitiateResult, error)
	HandleCallback(ctx context.Context, raw []byte) mpesa.Ack
	Status(ctx context.Context, userID, paymentID uuid.UUID) (*StatusResult, error)
	AdminList(ctx context.Context, status *enums.PaymentStatus, limit, offset int) ([]PaymentDTO, error)
	ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Jobs builds the mail jobs scheduled after a payment settles.
type Jobs interface {
	PaymentSuccess(to string, data mailer.PaymentEmail) notifications.Job
	LowStockCheck() notifications.Job
}

type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Orders   orderReader
	Settler  orders.Settler
	Users    userLookup
	Gateway  mpesa.Gateway
	Guard    *CallbackGuard
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Jobs     Jobs
	Enqueuer notifications.Enqueuer
	Metrics  *metrics.ShopMetrics
	Logger   *logger.Logger
	Config   config.MpesaConfig
}

type service struct {
	repo     *Repository
	tx       txRunner
	orders   orderReader
	settler  orders.Settler
	users    userLookup
	gateway  mpesa.Gateway
	guard    *CallbackGuard
	outbox   outbox.Emitter
	notifier notifications.Notifier
	jobs     Jobs
	enqueuer notifications.Enqueuer
	metrics  *metrics.ShopMetrics
	logg     *logger.Logger
	cfg      config.MpesaConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Orders == nil || params.Settler == nil:
		return nil, fmt.Errorf("orders dependencies required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("mpesa gateway required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Jobs == nil || params.Enqueuer == nil:
		return nil, fmt.Errorf("notification jobs required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := params.Config
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "WA"
	}
	if cfg.Description == "" {
		cfg.Description = "Wacka Accessories"
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		orders:   params.Orders,
		settler:  params.Settler,
		users:    params.Users,
		gateway:  params.Gateway,
		guard:    params.Guard,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		jobs:     params.Jobs,
		enqueuer: params.Enqueuer,
		metrics:  params.Metrics,
		logg:     logg,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Reference is the AccountReference shown on the customer's handset.
func Reference(prefix string, orderID uuid.UUID) string {
	return prefix + models.ShortID(orderID)
}

// Initiate sends an STK push for a pending_payment order. A payment already
// open for the order is returned instead of pushing again.
func (s *service) Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*InitiateResult, error) {
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	order, err := s.orders.FindForUser(ctx, input.OrderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is not in a payable state").
			WithDetails(map[string]any{"status": order.Status})
	}
	raw := strings.TrimSpace(input.PhoneNumber)
	if raw == "" {
		raw = order.PhoneNumber
	}
	phone := mpesa.NormalizePhone(raw)
	if !validPhone(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid phone_number")
	}

	var (
		payment  *models.Payment
		existing bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		open, err := repo.FindOpenForOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open payment")
		}
		if open != nil {
			payment, existing = open, true
			return nil
		}
		payment = &models.Payment{
			OrderID:     order.ID,
			UserID:      userID,
			Method:      enums.PaymentMethodMpesa,
			Amount:      order.TotalAmount,
			PhoneNumber: phone,
			Status:      enums.PaymentStatusInitiated,
		}
		return repo.Create(ctx, payment)
	})
	if err != nil && db.IsUniqueViolation(err, "") {
		// A concurrent tap won the partial unique index.
		open, ferr := s.repo.FindOpenForOrder(ctx, order.ID)
		if ferr == nil && open != nil {
			payment, existing, err = open, true, nil
		}
	}
	if err != nil {
		s.metrics.PaymentInitiation(metrics.OutcomeError)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve payment")
	}
	if existing {
		s.metrics.PaymentInitiation(metrics.OutcomeExisting)
		return &InitiateResult{
			PaymentID:         payment.ID,
			CheckoutRequestID: deref(payment.CheckoutRequestID),
			Status:            payment.Status,
			Existing:          true,
		}, nil
	}

	resp, gwErr := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:       phone,
		Amount:      order.TotalAmount.Ceil().IntPart(),
		Reference:   Reference(s.cfg.ReferencePrefix, order.ID),
		Description: s.cfg.Description,
	})
	if gwErr != nil {
		s.logg.Error(ctx, "stk push failed", gwErr)
		s.metrics.PaymentInitiation(metrics.OutcomeFailure)
		if err := s.recordInitiationFailure(ctx, payment, gwErr); err != nil {
			s.logg.Error(ctx, "record failed payment", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, gwErr, "failed to initiate payment")
	}

	ctx = s.logg.WithCheckoutRequestID(ctx, resp.CheckoutRequestID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkPending(ctx, payment.ID, resp.CheckoutRequestID, resp.MerchantRequestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment pending")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is no longer open")
		}
		if err := repo.CreateTransaction(ctx, &models.MpesaTransaction{
			PaymentID:           payment.ID,
			CheckoutRequestID:   resp.CheckoutRequestID,
			MerchantRequestID:   resp.MerchantRequestID,
			ResponseCode:        resp.ResponseCode,
			ResponseDescription: resp.ResponseDescription,
			CustomerMessage:     resp.CustomerMessage,
			PhoneNumber:         phone,
			Amount:              payment.Amount,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record mpesa transaction")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.PaymentEvent{
				PaymentID:         payment.ID,
				OrderID:           order.ID,
				Status:            enums.PaymentStatusPending,
				Amount:            payment.Amount,
				CheckoutRequestID: resp.CheckoutRequestID,
			},
		})
	})
	if err != nil {
		s.metrics.PaymentInitiation(metrics.OutcomeError)
		return nil, err
	}

	s.metrics.PaymentInitiation(metrics.OutcomeSuccess)
	s.logg.Info(ctx, "stk push sent")
	return &InitiateResult{
		PaymentID:         payment.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Status:            enums.PaymentStatusPending,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

func (s *service) recordInitiationFailure(ctx context.Context, payment *models.Payment, cause error) error {
	detail := cause.Error()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Finalize(ctx, payment.ID, Outcome{
			Status:      enums.PaymentStatusFailed,
			ErrorDetail: detail,
			CompletedAt: s.now().UTC(),
		})
		if err != nil || !ok {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Status:    enums.PaymentStatusFailed,
				Amount:    payment.Amount,
			},
		})
	})
}

func validPhone(phone string) bool {
	if len(phone) != 12 || !strings.HasPrefix(phone, "254") {
		return false
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *service) Status(ctx context.Context, userID, paymentID uuid.UUID) (*StatusResult, error) {
	p, err := s.repo.FindForUser(ctx, paymentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	order, err := s.orders.FindByID(ctx, p.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &StatusResult{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Status:      p.Status,
		Receipt:     deref(p.MpesaReceipt),
		ResultDesc:  deref(p.ResultDescription),
		OrderStatus: order.Status,
	}, nil
}

func (s *service) AdminList(ctx context.Context, status *enums.PaymentStatus, limit, offset int) ([]PaymentDTO, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, fromModel(p))
	}
	return out, nil
}

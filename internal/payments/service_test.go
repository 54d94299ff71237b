package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/address"
	"github.com/wacka-accessories/wacka-backend/internal/cart"
	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	product "github.com/wacka-accessories/wacka-backend/internal/products"
	"github.com/wacka-accessories/wacka-backend/internal/users"
	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/db"
	"github.com/wacka-accessories/wacka-backend/pkg/db/dbtest"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
)

type stubGateway struct {
	mu    sync.Mutex
	calls []mpesa.STKPushRequest
	err   error
	seq   int
}

func (g *stubGateway) STKPush(_ context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	g.seq++
	return &mpesa.STKPushResponse{
		MerchantRequestID:   fmt.Sprintf("mr-%d", g.seq),
		CheckoutRequestID:   fmt.Sprintf("ws_CO_%d", g.seq),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

type memoryGuardStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryGuardStore) ClaimOnce(_ context.Context, scope, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope + ":" + id
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryGuardStore) ReleaseClaim(_ context.Context, scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+":"+id)
	return nil
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, job notifications.Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, job.Kind)
	return true
}

func (r *recordingEnqueuer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = nil
}

type stubJobs struct{}

func noop(context.Context) error { return nil }

func (stubJobs) OrderConfirmation(mailer.OrderEmail) notifications.Job {
	return notifications.Job{Kind: notifications.JobOrderConfirmation, Run: noop}
}

func (stubJobs) OrderStatus(mailer.OrderEmail) notifications.Job {
	return notifications.Job{Kind: notifications.JobOrderStatus, Run: noop}
}

func (stubJobs) PaymentSuccess(string, mailer.PaymentEmail) notifications.Job {
	return notifications.Job{Kind: notifications.JobPaymentSuccess, Run: noop}
}

func (stubJobs) LowStockCheck() notifications.Job {
	return notifications.Job{Kind: notifications.JobLowStockCheck, Run: noop}
}

type fixture struct {
	conn     *gorm.DB
	orders   orders.Service
	svc      Service
	gateway  *stubGateway
	guard    *memoryGuardStore
	enqueuer *recordingEnqueuer
	userID   uuid.UUID
	product  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	notifier, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	userRepo := users.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	f := &fixture{
		conn:     conn,
		gateway:  &stubGateway{},
		guard:    &memoryGuardStore{keys: map[string]bool{}},
		enqueuer: &recordingEnqueuer{},
	}

	f.orders, err = orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Tx:        client,
		Carts:     cart.NewRepository(conn),
		Products:  product.NewRepository(conn),
		Stock:     inventory.NewLedger(inventory.NewRepository(conn)),
		Addresses: address.NewRepository(conn),
		Users:     userRepo,
		Outbox:    emitter,
		Notifier:  notifier,
		Jobs:      stubJobs{},
		Enqueuer:  f.enqueuer,
	})
	require.NoError(t, err)

	guard, err := NewCallbackGuard(f.guard, time.Hour)
	require.NoError(t, err)
	f.svc, err = NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       client,
		Orders:   orderRepo,
		Settler:  f.orders,
		Users:    userRepo,
		Gateway:  f.gateway,
		Guard:    guard,
		Outbox:   emitter,
		Notifier: notifier,
		Jobs:     stubJobs{},
		Enqueuer: f.enqueuer,
		Config:   config.MpesaConfig{ReferencePrefix: "WA", Description: "Wacka Accessories"},
	})
	require.NoError(t, err)

	u := models.User{Email: "amina@example.com", PasswordHash: "x", FirstName: "Amina", Role: enums.UserRoleCustomer}
	require.NoError(t, conn.Create(&u).Error)
	f.userID = u.ID

	p := models.Product{Name: "Leather Wallet", Slug: "leather-wallet", SKU: "WAL-1", Price: decimal.NewFromInt(100), IsActive: true}
	require.NoError(t, conn.Create(&p).Error)
	require.NoError(t, conn.Create(&models.InventoryItem{ProductID: p.ID, Quantity: 5, LowStockThreshold: 1}).Error)
	f.product = p.ID
	return f
}

func (f *fixture) mpesaOrder(t *testing.T, qty int) *orders.OrderDTO {
	t.Helper()
	ctx := context.Background()
	carts := cart.NewRepository(f.conn)
	c, err := carts.GetOrCreate(ctx, f.userID)
	require.NoError(t, err)
	require.NoError(t, carts.SetItemQuantity(ctx, c.ID, f.product, qty))
	order, err := f.orders.Create(ctx, f.userID, orders.CreateOrderInput{
		PhoneNumber:   "0712345678",
		PaymentMethod: enums.PaymentMethodMpesa,
	})
	require.NoError(t, err)
	f.enqueuer.reset()
	return order
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	var row models.InventoryItem
	require.NoError(t, f.conn.First(&row, "product_id = ?", f.product).Error)
	return row.Quantity
}

func (f *fixture) payment(t *testing.T, id uuid.UUID) models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, f.conn.First(&p, "id = ?", id).Error)
	return p
}

func (f *fixture) orderStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var o models.Order
	require.NoError(t, f.conn.First(&o, "id = ?", id).Error)
	return o.Status
}

func successCallback(checkoutID, receipt string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":%q,"ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":200},{"Name":"MpesaReceiptNumber","Value":%q},{"Name":"PhoneNumber","Value":254712345678}]}}}}`, checkoutID, receipt))
}

func failureCallback(checkoutID string) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":%q,"ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`, checkoutID))
}

func TestInitiateSendsSTKPush(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)

	res, err := f.svc.Initiate(context.Background(), f.userID, InitiateInput{OrderID: order.ID, PhoneNumber: "+254 712 345 678"})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, res.Status)
	require.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	require.False(t, res.Existing)

	require.Len(t, f.gateway.calls, 1)
	call := f.gateway.calls[0]
	require.Equal(t, "254712345678", call.Phone)
	require.Equal(t, int64(200), call.Amount)
	require.Equal(t, "WA"+models.ShortID(order.ID), call.Reference)

	var txns []models.MpesaTransaction
	require.NoError(t, f.conn.Find(&txns).Error)
	require.Len(t, txns, 1)
	require.Equal(t, res.PaymentID, txns[0].PaymentID)
}

func TestInitiateTwiceReturnsSamePayment(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	ctx := context.Background()

	first, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)
	second, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	require.Equal(t, first.PaymentID, second.PaymentID)
	require.Equal(t, first.CheckoutRequestID, second.CheckoutRequestID)
	require.True(t, second.Existing)
	require.Len(t, f.gateway.calls, 1)

	var count int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestInitiateLosingRaceReturnsWinningPayment(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	ctx := context.Background()

	winnerCheckout := "ws_CO_winner"
	winner := models.Payment{
		OrderID:           order.ID,
		UserID:            f.userID,
		Method:            enums.PaymentMethodMpesa,
		Amount:            order.TotalAmount,
		PhoneNumber:       "254712345678",
		Status:            enums.PaymentStatusPending,
		CheckoutRequestID: &winnerCheckout,
	}
	require.NoError(t, f.conn.Create(&winner).Error)

	// The first open-payment lookup misses the row, as it would when the
	// other request commits between our read and our insert.
	hidden := false
	require.NoError(t, f.conn.Callback().Query().After("gorm:query").Register("test:hide_open_payment", func(tx *gorm.DB) {
		if hidden || tx.Statement.Table != "payments" {
			return
		}
		hidden = true
		tx.Statement.RowsAffected = 0
		_ = tx.AddError(gorm.ErrRecordNotFound)
	}))

	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)
	require.True(t, hidden)
	require.True(t, res.Existing)
	require.Equal(t, winner.ID, res.PaymentID)
	require.Equal(t, winnerCheckout, res.CheckoutRequestID)
	require.Empty(t, f.gateway.calls)

	var count int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestInitiateRejectsNonPayableOrder(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	ctx := context.Background()
	_, err := f.orders.Cancel(ctx, f.userID, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.Initiate(ctx, uuid.New(), InitiateInput{OrderID: order.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
	require.Empty(t, f.gateway.calls)
}

func TestInitiateGatewayFailureRecordsFailedPayment(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	f.gateway.err = &mpesa.GatewayError{Op: "stkpush", StatusCode: 500, Message: "upstream down"}

	_, err := f.svc.Initiate(context.Background(), f.userID, InitiateInput{OrderID: order.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeGateway), "got %v", err)
	typed := pkgerrors.As(err)
	require.Equal(t, "failed to initiate payment", typed.Message())

	var rows []models.Payment
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.PaymentStatusFailed, rows[0].Status)
	require.NotNil(t, rows[0].ErrorDetail)
	require.Contains(t, *rows[0].ErrorDetail, "upstream down")
	require.Equal(t, enums.OrderStatusPendingPayment, f.orderStatus(t, order.ID))

	f.gateway.err = nil
	res, err := f.svc.Initiate(context.Background(), f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)
	require.NotEqual(t, rows[0].ID, res.PaymentID)
}

func TestSuccessCallbackMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	ack := f.svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, "QGH7X1Y2Z3"))
	require.Equal(t, mpesa.Accepted, ack)

	p := f.payment(t, res.PaymentID)
	require.Equal(t, enums.PaymentStatusSuccess, p.Status)
	require.Equal(t, "QGH7X1Y2Z3", *p.MpesaReceipt)
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
	require.Equal(t, 3, f.stock(t))

	var history []models.OrderStatusHistory
	require.NoError(t, f.conn.Where("order_id = ? AND status = ?", order.ID, enums.OrderStatusPaid).Find(&history).Error)
	require.Len(t, history, 1)

	var notes []models.Notification
	require.NoError(t, f.conn.Where("type = ?", enums.NotificationPaymentSuccess).Find(&notes).Error)
	require.Len(t, notes, 1)
	require.ElementsMatch(t, []string{notifications.JobPaymentSuccess, notifications.JobLowStockCheck}, f.enqueuer.kinds)

	status, err := f.svc.Status(ctx, f.userID, res.PaymentID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, status.OrderStatus)
	require.Equal(t, "QGH7X1Y2Z3", status.Receipt)
}

func TestDuplicateCallbackIsNoOp(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	body := successCallback(res.CheckoutRequestID, "QGH7X1Y2Z3")
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, body))
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, body))

	// Without the Redis fast path the database guard still holds.
	f.guard.keys = map[string]bool{}
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, body))

	require.Equal(t, 3, f.stock(t))
	var history []models.OrderStatusHistory
	require.NoError(t, f.conn.Where("order_id = ? AND status = ?", order.ID, enums.OrderStatusPaid).Find(&history).Error)
	require.Len(t, history, 1)

	var logs int64
	require.NoError(t, f.conn.Model(&models.MpesaCallbackLog{}).Count(&logs).Error)
	require.EqualValues(t, 3, logs)
}

func TestFailureCallbackFailsOrder(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, failureCallback(res.CheckoutRequestID)))

	p := f.payment(t, res.PaymentID)
	require.Equal(t, enums.PaymentStatusFailed, p.Status)
	require.Equal(t, 1032, *p.ResultCode)
	require.Equal(t, enums.OrderStatusFailed, f.orderStatus(t, order.ID))
	require.Equal(t, 5, f.stock(t))
	require.Empty(t, f.enqueuer.kinds)
}

func TestFailureCallbackForInitiatedPayment(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	checkoutID := "ws_CO_manual"
	payment := models.Payment{
		OrderID:           order.ID,
		UserID:            f.userID,
		Method:            enums.PaymentMethodMpesa,
		Amount:            order.TotalAmount,
		PhoneNumber:       "254712345678",
		Status:            enums.PaymentStatusInitiated,
		CheckoutRequestID: &checkoutID,
	}
	require.NoError(t, f.conn.Create(&payment).Error)

	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(context.Background(), failureCallback(checkoutID)))

	require.Equal(t, enums.PaymentStatusFailed, f.payment(t, payment.ID).Status)
	require.Equal(t, enums.OrderStatusFailed, f.orderStatus(t, order.ID))
	require.Equal(t, 5, f.stock(t))
}

func TestSuccessCallbackAfterCancelRaisesRefund(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, f.userID, order.ID)
	require.NoError(t, err)

	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, "RFD123")))

	require.Equal(t, enums.PaymentStatusSuccess, f.payment(t, res.PaymentID).Status)
	require.Equal(t, enums.OrderStatusCancelled, f.orderStatus(t, order.ID))
	require.Equal(t, 5, f.stock(t))

	var note models.Notification
	require.NoError(t, f.conn.Where("title = ?", "Payment Needs Refund").First(&note).Error)
	require.Contains(t, note.Message, "RFD123")
}

func TestUnknownAndMalformedCallbacksAreAcknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, []byte(`{not json`)))
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, successCallback("ws_CO_missing", "X")))

	var logs []models.MpesaCallbackLog
	require.NoError(t, f.conn.Order("received_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.Equal(t, "", logs[0].CheckoutRequestID)
	require.Equal(t, "ws_CO_missing", logs[1].CheckoutRequestID)
	require.Empty(t, f.guard.keys, "unknown checkout ids must not stay claimed")
}

type panickingSettler struct{ orders.Settler }

func (panickingSettler) MarkPaid(context.Context, *gorm.DB, uuid.UUID, string) (*orders.Settlement, error) {
	panic("settlement exploded")
}

func TestCallbackPanicIsAcknowledgedAndReleasesGuard(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 2)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	conn := f.conn
	guard, err := NewCallbackGuard(f.guard, time.Hour)
	require.NoError(t, err)
	notifier, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.NewFromConn(conn),
		Orders:   orders.NewRepository(conn),
		Settler:  panickingSettler{f.orders},
		Users:    users.NewRepository(conn),
		Gateway:  f.gateway,
		Guard:    guard,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Notifier: notifier,
		Jobs:     stubJobs{},
		Enqueuer: f.enqueuer,
	})
	require.NoError(t, err)

	var ack mpesa.Ack
	require.NotPanics(t, func() {
		ack = svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, "PANIC1"))
	})
	require.Equal(t, mpesa.Accepted, ack)
	require.Empty(t, f.guard.keys, "a panicked callback must not stay claimed")
	require.Equal(t, enums.PaymentStatusPending, f.payment(t, res.PaymentID).Status)

	// The provider retry goes through once settlement works again.
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, "PANIC1")))
	require.Equal(t, enums.PaymentStatusSuccess, f.payment(t, res.PaymentID).Status)
}

func TestExpireStaleFailsOpenPayments(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	ctx := context.Background()
	res, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	n, err := f.svc.ExpireStale(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, f.conn.Model(&models.Payment{}).Where("id = ?", res.PaymentID).
		Update("created_at", time.Now().UTC().Add(-2*time.Hour)).Error)
	n, err = f.svc.ExpireStale(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	p := f.payment(t, res.PaymentID)
	require.Equal(t, enums.PaymentStatusFailed, p.Status)
	require.Equal(t, staleResultDescription, *p.ResultDescription)
	require.Equal(t, enums.OrderStatusFailed, f.orderStatus(t, order.ID))

	// A late success callback no longer changes anything.
	require.Equal(t, mpesa.Accepted, f.svc.HandleCallback(ctx, successCallback(res.CheckoutRequestID, "LATE1")))
	require.Equal(t, enums.PaymentStatusFailed, f.payment(t, res.PaymentID).Status)
	require.Equal(t, 5, f.stock(t))
}

func TestAdminListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	order := f.mpesaOrder(t, 1)
	ctx := context.Background()
	_, err := f.svc.Initiate(ctx, f.userID, InitiateInput{OrderID: order.ID})
	require.NoError(t, err)

	pending := enums.PaymentStatusPending
	rows, err := f.svc.AdminList(ctx, &pending, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	success := enums.PaymentStatusSuccess
	rows, err = f.svc.AdminList(ctx, &success, 0, 0)
	require.NoError(t, err)
	require.Empty(t, rows)

	bogus := enums.PaymentStatus("refunded")
	_, err = f.svc.AdminList(ctx, &bogus, 0, 0)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCallbackGuardRequiresStore(t *testing.T) {
	_, err := NewCallbackGuard(nil, time.Hour)
	require.Error(t, err)
	_, err = NewCallbackGuard(&memoryGuardStore{keys: map[string]bool{}}, 0)
	require.Error(t, err)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	pkgerrors "github.com/wacka-accessories/wacka-backend/pkg/errors"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox/payloads"
)

const (
	sourceCustomer = "customer"
	sourceAdmin    = "admin"
	sourcePayment  = "payment"

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service is the order state machine exposed to handlers and the payment flow.
type Service interface {
	Settler
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, filters ListFilters) ([]OrderDTO, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	History(ctx context.Context, orderID uuid.UUID) ([]HistoryDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	LoadForCheckout(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	ClearForCheckout(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type productStore interface {
	FindForCheckout(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type stockLedger interface {
	Available(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
	Deduct(ctx context.Context, tx *gorm.DB, m inventory.Movement) error
	Restore(ctx context.Context, tx *gorm.DB, m inventory.Movement) error
}

type addressLookup interface {
	FindOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Jobs builds the background mail jobs orders schedule after commit.
type Jobs interface {
	OrderConfirmation(data mailer.OrderEmail) notifications.Job
	OrderStatus(data mailer.OrderEmail) notifications.Job
	LowStockCheck() notifications.Job
}

// ServiceParams groups the order service collaborators.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Carts     cartStore
	Products  productStore
	Stock     stockLedger
	Addresses addressLookup
	Users     userLookup
	Outbox    outbox.Emitter
	Notifier  notifications.Notifier
	Jobs      Jobs
	Enqueuer  notifications.Enqueuer
	Metrics   *metrics.ShopMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	carts     cartStore
	products  productStore
	stock     stockLedger
	addresses addressLookup
	users     userLookup
	outbox    outbox.Emitter
	notifier  notifications.Notifier
	jobs      Jobs
	enqueuer  notifications.Enqueuer
	metrics   *metrics.ShopMetrics
	logg      *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService validates and wires the order service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart store required")
	case params.Products == nil:
		return nil, fmt.Errorf("product store required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address lookup required")
	case params.Users == nil:
		return nil, fmt.Errorf("user lookup required")
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
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		carts:     params.Carts,
		products:  params.Products,
		stock:     params.Stock,
		addresses: params.Addresses,
		users:     params.Users,
		outbox:    params.Outbox,
		notifier:  params.Notifier,
		jobs:      params.Jobs,
		enqueuer:  params.Enqueuer,
		metrics:   params.Metrics,
		logg:      logg,
		tracer:    otel.Tracer("wacka.orders"),
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (_ *OrderDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Create", trace.WithAttributes(
		attribute.String("payment_method", string(input.PaymentMethod)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment_method")
	}
	if input.DeliveryMethod == "" {
		input.DeliveryMethod = enums.DeliveryMethodDelivery
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery_method")
	}
	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone_number is required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.resolveAddress(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          input.PaymentMethod.InitialOrderStatus(),
		PaymentMethod:   input.PaymentMethod,
		DeliveryMethod:  input.DeliveryMethod,
		PhoneNumber:     phone,
		AddressSnapshot: snapshot,
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		c, err := s.carts.LoadForCheckout(ctx, tx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if c == nil || len(c.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
		}

		ids := make([]uuid.UUID, 0, len(c.Items))
		for _, it := range c.Items {
			ids = append(ids, it.ProductID)
		}
		products, err := s.products.FindForCheckout(ctx, tx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		stock, err := s.stock.Available(ctx, tx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
		}

		total := decimal.Zero
		order.Items = make([]models.OrderLineItem, 0, len(c.Items))
		for i, it := range c.Items {
			p, ok := products[it.ProductID]
			if !ok || !p.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Product %s is no longer available", it.ProductID)).
					WithDetails(map[string]any{"product_id": it.ProductID})
			}
			if it.Quantity > stock[it.ProductID] {
				return insufficientStock(p, it.Quantity, stock[it.ProductID])
			}
			line := models.OrderLineItem{
				OrderID:      order.ID,
				ProductID:    p.ID,
				ProductName:  p.Name,
				ProductImage: p.Images.First(),
				UnitPrice:    p.EffectivePrice(),
				Quantity:     it.Quantity,
				Position:     i,
			}
			total = total.Add(line.Subtotal())
			order.Items = append(order.Items, line)
		}
		order.TotalAmount = total

		if input.PaymentMethod.DeductsStockAtCheckout() {
			for i := range order.Items {
				line := &order.Items[i]
				err := s.stock.Deduct(ctx, tx, inventory.Movement{
					ProductID:   line.ProductID,
					Quantity:    line.Quantity,
					Reason:      enums.StockReasonSale,
					ReferenceID: order.ID.String(),
					ActorID:     &userID,
				})
				if pkgerrors.HasCode(err, pkgerrors.CodeOutOfStock) {
					return insufficientStock(products[line.ProductID], line.Quantity, stock[line.ProductID])
				}
				if err != nil {
					return err
				}
				line.DeductedQty = line.Quantity
			}
			at := s.now().UTC()
			order.StockDeductedAt = &at
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    order.Status,
			Note:      "Order created",
			ChangedBy: &userID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		if err := s.carts.ClearForCheckout(ctx, tx, c.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if err := s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			Type:    enums.NotificationOrderPlaced,
			Title:   "New Order Placed",
			Message: fmt.Sprintf("Order #%s placed by %s", order.ShortID(), user.FullName()),
			OrderID: &order.ID,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(user.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        userID,
				Status:        order.Status,
				PaymentMethod: order.PaymentMethod,
				TotalAmount:   order.TotalAmount,
				ItemCount:     len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(string(order.PaymentMethod))
	s.logg.Info(ctx, "order created")
	s.enqueuer.Enqueue(ctx, s.jobs.OrderConfirmation(OrderEmail(*order, user.Email)))
	if order.PaymentMethod.DeductsStockAtCheckout() {
		s.enqueuer.Enqueue(ctx, s.jobs.LowStockCheck())
	}

	created, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	dto := FromModel(*created)
	return &dto, nil
}

func insufficientStock(p models.Product, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("Not enough stock for %s", p.Name)).
		WithDetails(map[string]any{
			"product_id": p.ID,
			"requested":  requested,
			"available":  available,
		})
}

func (s *service) resolveAddress(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (models.AddressSnapshot, error) {
	switch {
	case input.AddressID != nil:
		addr, err := s.addresses.FindOwned(ctx, userID, *input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.AddressSnapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return models.AddressSnapshot{}, err
		}
		return addr.Snapshot(), nil
	case input.Address != nil:
		return models.AddressSnapshot{
			Phone:       strings.TrimSpace(input.Address.Phone),
			AddressLine: strings.TrimSpace(input.Address.AddressLine),
			City:        strings.TrimSpace(input.Address.City),
			Country:     strings.TrimSpace(input.Address.Country),
		}, nil
	default:
		return models.AddressSnapshot{}, nil
	}
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]OrderDTO, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return fromModels(rows), nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context, filters ListFilters) ([]OrderDTO, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	filters.Limit, filters.Offset = clampPage(filters.Limit, filters.Offset)
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return fromModels(rows), nil
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]HistoryDTO, error) {
	rows, err := s.repo.History(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	out := make([]HistoryDTO, 0, len(rows))
	for _, h := range rows {
		out = append(out, HistoryDTO{Status: h.Status, Note: h.Note, ChangedBy: h.ChangedBy, Timestamp: h.CreatedAt})
	}
	return out, nil
}

// Cancel lets a customer cancel their own order before it ships.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindForUser(ctx, orderID, userID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if err := cancelGuard(order.Status); err != nil {
			return err
		}
		from = order.Status
		return s.cancelTx(ctx, tx, order, &userID, "Cancelled by customer", sourceCustomer)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrderTransition(string(from), string(enums.OrderStatusCancelled))
	return s.Get(ctx, userID, orderID)
}

func cancelGuard(status enums.OrderStatus) error {
	switch status {
	case enums.OrderStatusShipped:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Cannot cancel order that has been shipped")
	case enums.OrderStatusCompleted:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Cannot cancel order that has been completed")
	case enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Order is already cancelled")
	case enums.OrderStatusFailed:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "Cannot cancel a failed order")
	}
	if !status.Cancellable() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Cannot cancel order in status %s", status))
	}
	return nil
}

// cancelTx moves the order to cancelled and puts back whatever stock it holds.
func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor *uuid.UUID, note, source string) error {
	repo := s.repo.WithTx(tx)
	ok, err := repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	restored := false
	for _, line := range order.Items {
		if line.DeductedQty <= 0 {
			continue
		}
		if err := s.stock.Restore(ctx, tx, inventory.Movement{
			ProductID:   line.ProductID,
			Quantity:    line.DeductedQty,
			Reason:      enums.StockReasonReturn,
			ReferenceID: order.ID.String(),
			ActorID:     actor,
		}); err != nil {
			return err
		}
		if err := repo.SetDeductedQty(ctx, line.ID, 0); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset deducted quantity")
		}
		restored = true
	}
	if restored {
		if err := repo.MarkStockDeducted(ctx, order.ID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear stock deduction")
		}
	}

	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    enums.OrderStatusCancelled,
		Note:      note,
		ChangedBy: actor,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	if err := s.notifier.Notify(ctx, tx, notifications.NotifyInput{
		Type:    enums.NotificationOrderCancelled,
		Title:   "Order Cancelled",
		Message: fmt.Sprintf("Order #%s was cancelled (%s)", order.ShortID(), source),
		OrderID: &order.ID,
	}); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			From:    order.Status,
			To:      enums.OrderStatusCancelled,
			Source:  source,
		},
	})
}

// UpdateStatus is the admin status change. Moves are checked against the
// transition table; paid and failed belong to the payment callback.
func (s *service) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	target := input.Status
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if target.GatewayOwned() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %s is set by the payment callback", target))
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var (
		from  enums.OrderStatus
		order *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		from = order.Status
		if from == target {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order is already %s", target))
		}
		if !from.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Cannot move order from %s to %s", from, target)).
				WithDetails(map[string]any{"from": from, "to": target})
		}
		note := strings.TrimSpace(input.Note)
		if target == enums.OrderStatusCancelled {
			if note == "" {
				note = "Cancelled by admin"
			}
			return s.cancelTx(ctx, tx, order, &actorID, note, sourceAdmin)
		}

		ok, err := repo.TransitionStatus(ctx, order.ID, from, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if note == "" {
			note = fmt.Sprintf("Status updated to %s", target.Title())
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    target,
			Note:      note,
			ChangedBy: &actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		if err := s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			Type:    enums.NotificationTypeForStatus(target),
			Title:   "Order Status Updated",
			Message: fmt.Sprintf("Order #%s status changed to %s", order.ShortID(), target.Title()),
			OrderID: &order.ID,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(&actorID),
			Data: payloads.OrderStatusChangedEvent{
				OrderID: order.ID,
				From:    from,
				To:      target,
				Source:  sourceAdmin,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderTransition(string(from), string(target))
	s.logg.Info(s.logg.WithField(ctx, "status", target), "order status updated")

	updated, err := s.AdminGet(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch target {
	case enums.OrderStatusShipped, enums.OrderStatusCompleted, enums.OrderStatusCancelled:
		s.enqueueStatusEmail(ctx, *order, target)
	}
	return updated, nil
}

func (s *service) enqueueStatusEmail(ctx context.Context, order models.Order, status enums.OrderStatus) {
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "status email skipped: customer lookup failed")
		return
	}
	order.Status = status
	s.enqueuer.Enqueue(ctx, s.jobs.OrderStatus(OrderEmail(order, user.Email)))
}

// OrderEmail renders an order into the mail template data.
func OrderEmail(order models.Order, customerEmail string) mailer.OrderEmail {
	lines := make([]mailer.OrderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, mailer.OrderLine{Name: it.ProductName, Quantity: it.Quantity, Price: it.UnitPrice})
	}
	return mailer.OrderEmail{
		Reference:      order.ShortID(),
		Status:         order.Status.Title(),
		PaymentMethod:  string(order.PaymentMethod),
		DeliveryMethod: string(order.DeliveryMethod),
		CustomerEmail:  customerEmail,
		Items:          lines,
		Total:          order.TotalAmount,
	}
}

func actorRef(actor *uuid.UUID) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *actor}
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

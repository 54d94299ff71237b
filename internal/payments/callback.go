package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox/payloads"
)

const staleResultDescription = "Expired without callback"

// settleResult is what a terminal payment write did.
type settleResult struct {
	Payment    *models.Payment
	Duplicate  bool
	Settlement *orders.Settlement
}

// HandleCallback reconciles an STK push callback. It always returns the
// Accepted ack; failures are logged and the guard released so the provider
// retry can try again.
func (s *service) HandleCallback(ctx context.Context, raw []byte) (ack mpesa.Ack) {
	checkoutID := ""
	claimed := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.logg.Error(ctx, "mpesa callback panicked", fmt.Errorf("panic: %v", r))
		if claimed {
			s.releaseGuard(ctx, checkoutID)
		}
		s.metrics.PaymentCallback(metrics.OutcomeError)
		ack = mpesa.Accepted
	}()

	cb, parseErr := mpesa.ParseCallback(raw)
	if cb != nil {
		checkoutID = cb.CheckoutRequestID
		ctx = s.logg.WithCheckoutRequestID(ctx, checkoutID)
	}

	if err := s.repo.LogCallback(ctx, &models.MpesaCallbackLog{
		CheckoutRequestID: checkoutID,
		Payload:           string(raw),
		ReceivedAt:        s.now().UTC(),
	}); err != nil {
		s.logg.Error(ctx, "store mpesa callback log", err)
	}

	if parseErr != nil {
		s.metrics.PaymentCallback(metrics.OutcomeMalformed)
		s.logg.Warn(s.logg.WithField(ctx, "error", parseErr.Error()), "malformed mpesa callback")
		return mpesa.Accepted
	}

	claimed = true
	if s.guard != nil {
		ok, err := s.guard.Claim(ctx, checkoutID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback guard unavailable, relying on database")
		} else {
			claimed = ok
		}
	}
	if !claimed {
		s.metrics.PaymentCallback(metrics.OutcomeDuplicate)
		s.logg.Info(ctx, "duplicate mpesa callback dropped")
		return mpesa.Accepted
	}

	outcome, err := s.reconcile(ctx, cb)
	if err != nil || outcome == metrics.OutcomeUnknown {
		s.releaseGuard(ctx, checkoutID)
	}
	if err != nil {
		s.metrics.PaymentCallback(metrics.OutcomeError)
		s.logg.Error(ctx, "process mpesa callback", err)
		return mpesa.Accepted
	}
	s.metrics.PaymentCallback(outcome)
	return mpesa.Accepted
}

func (s *service) releaseGuard(ctx context.Context, checkoutID string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, checkoutID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release callback guard")
	}
}

func (s *service) reconcile(ctx context.Context, cb *mpesa.Callback) (string, error) {
	var result *settleResult
	unknown := false
	resultCode := cb.ResultCode

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.repo.WithTx(tx).FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			unknown = true
			return nil
		}
		if err != nil {
			return err
		}
		if payment.Status.IsTerminal() {
			result = &settleResult{Payment: payment, Duplicate: true}
			return nil
		}
		out := Outcome{
			Status:            enums.PaymentStatusFailed,
			ResultCode:        &resultCode,
			ResultDescription: cb.ResultDesc,
			CompletedAt:       s.now().UTC(),
		}
		if cb.Succeeded() {
			out.Status = enums.PaymentStatusSuccess
			out.Receipt = cb.Receipt()
		}
		result, err = s.settleTx(ctx, tx, payment, out)
		return err
	})
	if err != nil {
		return "", err
	}
	if unknown {
		s.logg.Warn(ctx, "mpesa callback for unknown checkout request")
		return metrics.OutcomeUnknown, nil
	}
	if result.Duplicate {
		s.logg.Info(ctx, "mpesa callback already settled")
		return metrics.OutcomeDuplicate, nil
	}

	s.afterSettle(ctx, result)
	if cb.Succeeded() {
		return metrics.OutcomeSuccess, nil
	}
	return metrics.OutcomeFailure, nil
}

// settleTx writes the terminal payment state and applies it to the order.
// Both callbacks and the stale sweep go through here.
func (s *service) settleTx(ctx context.Context, tx *gorm.DB, payment *models.Payment, out Outcome) (*settleResult, error) {
	ok, err := s.repo.WithTx(tx).Finalize(ctx, payment.ID, out)
	if err != nil {
		return nil, fmt.Errorf("finalize payment: %w", err)
	}
	if !ok {
		return &settleResult{Payment: payment, Duplicate: true}, nil
	}
	payment.Status = out.Status
	if out.Receipt != "" {
		receipt := out.Receipt
		payment.MpesaReceipt = &receipt
	}

	var (
		settlement *orders.Settlement
		eventType  = enums.EventPaymentFailed
	)
	if out.Status == enums.PaymentStatusSuccess {
		eventType = enums.EventPaymentSucceeded
		settlement, err = s.settler.MarkPaid(ctx, tx, payment.OrderID, "M-Pesa payment received "+out.Receipt)
		if err != nil {
			return nil, err
		}
		if err := s.notifyPaid(ctx, tx, payment, settlement, out.Receipt); err != nil {
			return nil, err
		}
	} else {
		note := "M-Pesa payment failed"
		if out.ResultDescription != "" {
			note += ": " + out.ResultDescription
		}
		settlement, err = s.settler.MarkFailed(ctx, tx, payment.OrderID, note)
		if err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: payloads.PaymentEvent{
			PaymentID:         payment.ID,
			OrderID:           payment.OrderID,
			Status:            out.Status,
			Amount:            payment.Amount,
			CheckoutRequestID: deref(payment.CheckoutRequestID),
			Receipt:           out.Receipt,
			ResultCode:        out.ResultCode,
		},
	}); err != nil {
		return nil, err
	}
	return &settleResult{Payment: payment, Settlement: settlement}, nil
}

func (s *service) notifyPaid(ctx context.Context, tx *gorm.DB, payment *models.Payment, settlement *orders.Settlement, receipt string) error {
	order := settlement.Order
	if !settlement.Applied {
		return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			Type:  enums.NotificationPaymentSuccess,
			Title: "Payment Needs Refund",
			Message: fmt.Sprintf("Payment %s of KES %s arrived for order #%s while it was %s. Refund manually.",
				receipt, payment.Amount.StringFixed(2), order.ShortID(), order.Status.Title()),
			OrderID: &order.ID,
		})
	}
	return s.notifier.Notify(ctx, tx, notifications.NotifyInput{
		Type:    enums.NotificationPaymentSuccess,
		Title:   "Payment Received",
		Message: fmt.Sprintf("KES %s received for order #%s (receipt %s)", payment.Amount.StringFixed(2), order.ShortID(), receipt),
		OrderID: &order.ID,
	})
}

// afterSettle runs once the settlement is committed.
func (s *service) afterSettle(ctx context.Context, result *settleResult) {
	st := result.Settlement
	if st == nil {
		return
	}
	if st.Applied {
		s.metrics.OrderTransition(string(st.From), string(st.To))
	}
	if len(st.Shortfalls) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "shortfalls", len(st.Shortfalls)), "paid order could not be fully covered by stock")
	}
	if result.Payment.Status != enums.PaymentStatusSuccess || !st.Applied {
		return
	}
	user, err := s.users.FindByID(ctx, result.Payment.UserID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment email skipped: customer lookup failed")
	} else {
		s.enqueuer.Enqueue(ctx, s.jobs.PaymentSuccess(user.Email, mailer.PaymentEmail{
			Reference: st.Order.ShortID(),
			Receipt:   deref(result.Payment.MpesaReceipt),
			Amount:    result.Payment.Amount,
		}))
	}
	s.enqueuer.Enqueue(ctx, s.jobs.LowStockCheck())
}

// ExpireStale fails open payments older than olderThan the same way a failure
// callback would, and fails their orders.
func (s *service) ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := s.now().UTC().Add(-olderThan)
	stale, err := s.repo.ListStale(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale payments: %w", err)
	}
	expired := 0
	for i := range stale {
		payment := stale[i]
		var result *settleResult
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			result, err = s.settleTx(ctx, tx, &payment, Outcome{
				Status:            enums.PaymentStatusFailed,
				ResultDescription: staleResultDescription,
				CompletedAt:       s.now().UTC(),
			})
			return err
		})
		if err != nil {
			return expired, fmt.Errorf("expire payment %s: %w", payment.ID, err)
		}
		if result.Duplicate {
			continue
		}
		s.afterSettle(ctx, result)
		expired++
	}
	return expired, nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wacka-accessories/wacka-backend/pkg/logger"
)

const (
	staleBatchSize         = 100
	defaultRetentionDays   = 30
	defaultStalePaymentAge = 30 * time.Minute
	jobLowStockSweep       = "low-stock-sweep"
	jobStalePaymentExpiry  = "stale-payment-expiry"
	jobNotificationRetain  = "notification-retention"
	jobOutboxRetention     = "outbox-retention"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockAlerter interface {
	SendLowStockAlert(ctx context.Context) (int, error)
}

// NewLowStockSweepJob mails the admin one alert when anything is at or
// below its threshold.
func NewLowStockSweepJob(logg *logger.Logger, alerter lowStockAlerter) (Job, error) {
	if logg == nil || alerter == nil {
		return nil, fmt.Errorf("logger and alerter required")
	}
	return &lowStockSweepJob{logg: logg, alerter: alerter}, nil
}

type lowStockSweepJob struct {
	logg    *logger.Logger
	alerter lowStockAlerter
}

func (j *lowStockSweepJob) Name() string { return jobLowStockSweep }

func (j *lowStockSweepJob) Run(ctx context.Context) error {
	n, err := j.alerter.SendLowStockAlert(ctx)
	if err != nil {
		return fmt.Errorf("low stock sweep: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "low_stock_products", n), "low stock sweep complete")
	return nil
}

type paymentExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// NewStalePaymentJob fails payments that never got a callback.
func NewStalePaymentJob(logg *logger.Logger, payments paymentExpirer, age time.Duration) (Job, error) {
	if logg == nil || payments == nil {
		return nil, fmt.Errorf("logger and payments required")
	}
	if age <= 0 {
		age = defaultStalePaymentAge
	}
	return &stalePaymentJob{logg: logg, payments: payments, age: age}, nil
}

type stalePaymentJob struct {
	logg     *logger.Logger
	payments paymentExpirer
	age      time.Duration
}

func (j *stalePaymentJob) Name() string { return jobStalePaymentExpiry }

func (j *stalePaymentJob) Run(ctx context.Context) error {
	total := 0
	for {
		n, err := j.payments.ExpireStale(ctx, j.age, staleBatchSize)
		total += n
		if err != nil {
			return fmt.Errorf("stale payment expiry: %w", err)
		}
		if n < staleBatchSize {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"expired":     total,
		"max_age_sec": int(j.age.Seconds()),
	}), "stale payment expiry complete")
	return nil
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationRetentionJob drops read admin notifications older than
// retentionDays.
func NewNotificationRetentionJob(logg *logger.Logger, repo notificationPurger, retentionDays int) (Job, error) {
	if logg == nil || repo == nil {
		return nil, fmt.Errorf("logger and notifications repository required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &notificationRetentionJob{logg: logg, repo: repo, retention: retentionDays, now: time.Now}, nil
}

type notificationRetentionJob struct {
	logg      *logger.Logger
	repo      notificationPurger
	retention int
	now       func() time.Time
}

func (j *notificationRetentionJob) Name() string { return jobNotificationRetain }

func (j *notificationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "notification retention complete")
	return nil
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops published outbox rows older than retentionDays.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo outboxPurger, retentionDays int) (Job, error) {
	if logg == nil || db == nil || repo == nil {
		return nil, fmt.Errorf("logger, db runner and outbox repository required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &outboxRetentionJob{logg: logg, db: db, repo: repo, retention: retentionDays, now: time.Now}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPurger
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return jobOutboxRetention }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx.WithContext(ctx), cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "outbox retention complete")
	return nil
}

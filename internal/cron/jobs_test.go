package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wacka-accessories/wacka-backend/pkg/db/dbtest"
	"github.com/wacka-accessories/wacka-backend/pkg/db/models"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
)

type fakeAlerter struct {
	n   int
	err error
}

func (f *fakeAlerter) SendLowStockAlert(context.Context) (int, error) { return f.n, f.err }

func TestLowStockSweepPropagatesErrors(t *testing.T) {
	job, err := NewLowStockSweepJob(logger.Nop(), &fakeAlerter{err: errors.New("smtp down")})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "low-stock-sweep" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeExpirer struct {
	batches []int
	calls   int
	age     time.Duration
}

func (f *fakeExpirer) ExpireStale(_ context.Context, age time.Duration, limit int) (int, error) {
	f.age = age
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	n := f.batches[f.calls]
	f.calls++
	return n, nil
}

func TestStalePaymentJobDrainsFullBatches(t *testing.T) {
	expirer := &fakeExpirer{batches: []int{staleBatchSize, staleBatchSize, 3}}
	job, err := NewStalePaymentJob(logger.Nop(), expirer, 45*time.Minute)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", expirer.calls)
	}
	if expirer.age != 45*time.Minute {
		t.Fatalf("expected configured age, got %s", expirer.age)
	}
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

func TestNotificationRetentionUsesCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakePurger{}
	jobIface, err := NewNotificationRetentionJob(logger.Nop(), repo, 0)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*notificationRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-defaultRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}

	repo.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutboxRetentionDeletesOnlyOldPublishedRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)
	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: []byte(`{}`), PublishedAt: &old},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: []byte(`{}`), PublishedAt: &recent},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, Payload: []byte(`{}`)},
	}
	if err := conn.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	job, err := NewOutboxRetentionJob(logger.Nop(), client, outbox.NewRepository(conn), 30)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	var left int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&left).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 rows left, got %d", left)
	}
}

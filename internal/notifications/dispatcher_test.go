package notifications

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestDispatcherRunsJobsAndDrains(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := NewDispatcher(config.NotificationsConfig{Workers: 2, QueueSize: 8, JobTimeout: time.Second}, logger.Nop(), metrics.NewShopMetrics(reg))
	d.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := d.Enqueue(context.Background(), Job{Kind: JobOrderStatus, Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
		if !ok {
			t.Fatalf("job %d dropped", i)
		}
	}
	d.Enqueue(context.Background(), Job{Kind: JobLowStockCheck, Run: func(ctx context.Context) error {
		return errors.New("smtp down")
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if ran.Load() != 5 {
		t.Fatalf("expected 5 jobs run, got %d", ran.Load())
	}
	name := "wacka_notification_jobs_total"
	if v := counterValue(t, reg, name, map[string]string{"kind": JobOrderStatus, "outcome": metrics.OutcomeSuccess}); v != 5 {
		t.Fatalf("expected 5 successes, got %v", v)
	}
	if v := counterValue(t, reg, name, map[string]string{"kind": JobLowStockCheck, "outcome": metrics.OutcomeFailure}); v != 1 {
		t.Fatalf("expected 1 failure, got %v", v)
	}
	if d.Enqueue(context.Background(), Job{Kind: JobOrderStatus, Run: func(context.Context) error { return nil }}) {
		t.Fatal("expected enqueue after shutdown to be dropped")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(config.NotificationsConfig{Workers: 1, QueueSize: 1}, logger.Nop(), nil)

	job := Job{Kind: JobOrderStatus, Run: func(context.Context) error { return nil }}
	if !d.Enqueue(context.Background(), job) {
		t.Fatal("first job should fit")
	}
	if d.Enqueue(context.Background(), job) {
		t.Fatal("second job should be dropped while workers are stopped")
	}
	d.Start()
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestDispatcherDetachesRequestCancellation(t *testing.T) {
	d := NewDispatcher(config.NotificationsConfig{Workers: 1, QueueSize: 1, JobTimeout: time.Second}, logger.Nop(), nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	var jobErr atomic.Value
	d.Enqueue(reqCtx, Job{Kind: JobOrderConfirmation, Run: func(ctx context.Context) error {
		jobErr.Store(ctx.Err() == nil)
		return nil
	}})
	cancel()

	d.Start()
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if live, _ := jobErr.Load().(bool); !live {
		t.Fatal("job context should survive request cancellation")
	}
}

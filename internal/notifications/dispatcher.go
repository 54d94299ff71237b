package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
)

// Job kinds handled by the dispatcher.
const (
	JobOrderConfirmation = "order_confirmation"
	JobPaymentSuccess    = "payment_success"
	JobOrderStatus       = "order_status"
	JobLowStockCheck     = "low_stock_check"
)

// Job is one unit of best-effort background work.
type Job struct {
	Kind string
	Run  func(ctx context.Context) error
}

// Enqueuer accepts background jobs without blocking the caller.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) bool
}

type queuedJob struct {
	ctx context.Context
	job Job
}

// Dispatcher runs jobs on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	logg    *logger.Logger
	metrics *metrics.ShopMetrics
	workers int
	timeout time.Duration

	queue chan queuedJob
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewDispatcher sizes the pool from configuration.
func NewDispatcher(cfg config.NotificationsConfig, logg *logger.Logger, m *metrics.ShopMetrics) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{
		logg:    logg,
		metrics: m,
		workers: workers,
		timeout: timeout,
		queue:   make(chan queuedJob, size),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Enqueue hands job to the pool. It returns false when the job was dropped
// because the queue is full or the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) bool {
	if job.Run == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, job, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- queuedJob{ctx: context.WithoutCancel(ctx), job: job}:
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.drop(ctx, job, "notification queue full")
		return false
	}
}

// Shutdown stops intake and waits for queued jobs to finish or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("notification dispatcher drain timed out")
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for item := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.run(item)
	}
}

func (d *Dispatcher) run(item queuedJob) {
	ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
	defer cancel()
	ctx = d.logg.WithField(ctx, "job", item.job.Kind)

	defer func() {
		if rec := recover(); rec != nil {
			d.metrics.NotificationJob(item.job.Kind, metrics.OutcomeError)
			d.logg.Error(ctx, "notification job panicked", errors.New("panic in notification job"))
		}
	}()

	if err := item.job.Run(ctx); err != nil {
		d.metrics.NotificationJob(item.job.Kind, metrics.OutcomeFailure)
		d.logg.Error(ctx, "notification job failed", err)
		return
	}
	d.metrics.NotificationJob(item.job.Kind, metrics.OutcomeSuccess)
}

func (d *Dispatcher) drop(ctx context.Context, job Job, reason string) {
	d.metrics.NotificationJob(job.Kind, metrics.OutcomeDropped)
	d.logg.Warn(d.logg.WithField(ctx, "job", job.Kind), reason)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wacka-accessories/wacka-backend/internal/address"
	"github.com/wacka-accessories/wacka-backend/internal/cart"
	"github.com/wacka-accessories/wacka-backend/internal/cron"
	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/internal/payments"
	products "github.com/wacka-accessories/wacka-backend/internal/products"
	"github.com/wacka-accessories/wacka-backend/internal/users"
	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/db"
	"github.com/wacka-accessories/wacka-backend/pkg/instance"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/migrate"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(context.Background(), logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(context.Background(), logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(context.Background(), logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	ledger := inventory.NewLedger(inventory.NewRepository(gormDB))
	outboxRepo := outbox.NewRepository(gormDB)
	emitter := outbox.NewService(outboxRepo, logg)
	jobs := notifications.NewJobs(mailer.New(cfg.SMTP, logg), ledger)
	shopMetrics := metrics.NewShopMetrics(prometheus.DefaultRegisterer)

	// Mail queued by expired payments drains before the process exits.
	dispatcher := notifications.NewDispatcher(cfg.Notifications, logg, shopMetrics)
	dispatcher.Start()
	defer func() {
		if err := dispatcher.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "error draining dispatcher", err)
		}
	}()

	notificationRepo := notifications.NewRepository(gormDB)
	notificationService, err := notifications.NewService(notificationRepo)
	requireResource(context.Background(), logg, "notification service", err)

	orderRepo := orders.NewRepository(gormDB)
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Tx:        dbClient,
		Carts:     cart.NewRepository(gormDB),
		Products:  productRepo,
		Stock:     ledger,
		Addresses: address.NewRepository(gormDB),
		Users:     userRepo,
		Outbox:    emitter,
		Notifier:  notificationService,
		Jobs:      jobs,
		Enqueuer:  dispatcher,
		Metrics:   shopMetrics,
		Logger:    logg,
	})
	requireResource(context.Background(), logg, "order service", err)

	gateway, err := mpesa.NewClient(cfg.Mpesa)
	requireResource(context.Background(), logg, "mpesa client", err)

	guard, err := payments.NewCallbackGuard(redisClient, cfg.Mpesa.CallbackGuardTTL)
	requireResource(context.Background(), logg, "callback guard", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(gormDB),
		Tx:       dbClient,
		Orders:   orderRepo,
		Settler:  orderService,
		Users:    userRepo,
		Gateway:  gateway,
		Guard:    guard,
		Outbox:   emitter,
		Notifier: notificationService,
		Jobs:     jobs,
		Enqueuer: dispatcher,
		Metrics:  shopMetrics,
		Logger:   logg,
		Config:   cfg.Mpesa,
	})
	requireResource(context.Background(), logg, "payment service", err)

	lowStockJob, err := cron.NewLowStockSweepJob(logg, jobs)
	requireResource(context.Background(), logg, "low stock job", err)
	staleJob, err := cron.NewStalePaymentJob(logg, paymentService, cfg.Cron.StalePaymentAge)
	requireResource(context.Background(), logg, "stale payment job", err)
	notificationJob, err := cron.NewNotificationRetentionJob(logg, notificationRepo, cfg.Cron.NotificationRetentionDays)
	requireResource(context.Background(), logg, "notification retention job", err)
	outboxJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outboxRepo, cfg.Cron.OutboxRetentionDays)
	requireResource(context.Background(), logg, "outbox retention job", err)

	lock, err := cron.NewWorkerLock(redisClient, cfg.Cron.LockTTL)
	requireResource(context.Background(), logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lowStockJob, staleJob, notificationJob, outboxJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	requireResource(context.Background(), logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}

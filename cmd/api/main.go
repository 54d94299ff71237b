package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wacka-accessories/wacka-backend/api/routes"
	"github.com/wacka-accessories/wacka-backend/internal/address"
	"github.com/wacka-accessories/wacka-backend/internal/auth"
	"github.com/wacka-accessories/wacka-backend/internal/cart"
	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/internal/payments"
	products "github.com/wacka-accessories/wacka-backend/internal/products"
	"github.com/wacka-accessories/wacka-backend/internal/users"
	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/db"
	"github.com/wacka-accessories/wacka-backend/pkg/env"
	"github.com/wacka-accessories/wacka-backend/pkg/instance"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/mailer"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/migrate"
	"github.com/wacka-accessories/wacka-backend/pkg/mpesa"
	"github.com/wacka-accessories/wacka-backend/pkg/outbox"
	"github.com/wacka-accessories/wacka-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shopMetrics := metrics.NewShopMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	dispatcher := notifications.NewDispatcher(cfg.Notifications, logg, shopMetrics)
	dispatcher.Start()

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	addressRepo := address.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	stockRepo := inventory.NewRepository(gormDB)
	ledger := inventory.NewLedger(stockRepo)
	cartRepo := cart.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)
	jobs := notifications.NewJobs(mailer.New(cfg.SMTP, logg), ledger)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireResource(context.Background(), logg, "auth service", err)

	addressService, err := address.NewService(addressRepo, dbClient)
	requireResource(context.Background(), logg, "address service", err)

	productService, err := products.NewService(productRepo, dbClient, ledger)
	requireResource(context.Background(), logg, "product service", err)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:     stockRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Jobs:     jobs,
		Enqueuer: dispatcher,
	})
	requireResource(context.Background(), logg, "inventory service", err)

	cartService, err := cart.NewService(cartRepo, productRepo, ledger)
	requireResource(context.Background(), logg, "cart service", err)

	notificationRepo := notifications.NewRepository(gormDB)
	notificationService, err := notifications.NewService(notificationRepo)
	requireResource(context.Background(), logg, "notification service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(gormDB),
		Tx:        dbClient,
		Carts:     cartRepo,
		Products:  productRepo,
		Stock:     ledger,
		Addresses: addressRepo,
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
		Orders:   orders.NewRepository(gormDB),
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

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Gatherer:      registry,
		HTTPMetrics:   httpMetrics,
		Auth:          authService,
		Addresses:     addressService,
		Products:      productService,
		Inventory:     inventoryService,
		Cart:          cartService,
		Orders:        orderService,
		Payments:      paymentService,
		Notifications: notificationService,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "wacka-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down")
		// The dispatcher drains after the server so in-flight requests can still enqueue.
		return multierr.Append(server.Shutdown(shutdownCtx), dispatcher.Shutdown(shutdownCtx))
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}

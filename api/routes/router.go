package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wacka-accessories/wacka-backend/api/controllers"
	cartcontrollers "github.com/wacka-accessories/wacka-backend/api/controllers/cart"
	ordercontrollers "github.com/wacka-accessories/wacka-backend/api/controllers/orders"
	paymentcontrollers "github.com/wacka-accessories/wacka-backend/api/controllers/payments"
	webhookcontrollers "github.com/wacka-accessories/wacka-backend/api/controllers/webhooks"
	"github.com/wacka-accessories/wacka-backend/api/middleware"
	"github.com/wacka-accessories/wacka-backend/internal/address"
	"github.com/wacka-accessories/wacka-backend/internal/auth"
	"github.com/wacka-accessories/wacka-backend/internal/cart"
	"github.com/wacka-accessories/wacka-backend/internal/inventory"
	"github.com/wacka-accessories/wacka-backend/internal/notifications"
	"github.com/wacka-accessories/wacka-backend/internal/orders"
	"github.com/wacka-accessories/wacka-backend/internal/payments"
	products "github.com/wacka-accessories/wacka-backend/internal/products"
	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/enums"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
	"github.com/wacka-accessories/wacka-backend/pkg/metrics"
	"github.com/wacka-accessories/wacka-backend/pkg/redis"
)

// redisStore is the Redis surface the HTTP layer needs: request
// idempotency, rate-limit counters and the readiness ping.
type redisStore interface {
	redis.IdempotencyStore
	redis.Pinger
	rateLimitStore
}

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         redisStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Auth          auth.Service
	Addresses     address.Service
	Products      products.Service
	Inventory     inventory.Service
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)
	paymentPolicy := middleware.NewUserRateLimitPolicy(
		"payment_initiate",
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.PaymentIPLimit,
		cfg.RateLimit.PaymentUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// The gateway cannot authenticate; the callback is acked whatever happens.
	r.Post("/api/v1/webhooks/mpesa/callback", webhookcontrollers.MpesaCallback(d.Payments, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.RateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		})

		r.Get("/products", controllers.ProductList(d.Products, logg, false))
		r.Get("/products/categories", controllers.ProductCategories(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg, false))
		r.Get("/products/{productId}/related", controllers.ProductRelated(d.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/auth/me", controllers.AuthMe(d.Auth, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(d.Addresses, logg))
				r.Post("/", controllers.AddressCreate(d.Addresses, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(d.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(d.Cart, logg))
				r.Put("/items/{productId}", cartcontrollers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(d.Orders, logg))
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg, false))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(middleware.RateLimit(paymentPolicy, d.Redis, logg)).Post("/mpesa/initiate", paymentcontrollers.Initiate(d.Payments, logg))
				r.Get("/{paymentId}/status", paymentcontrollers.Status(d.Payments, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireStaff(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/", controllers.AdminListUsers(d.Auth, logg))
			r.Post("/", controllers.AdminCreateUser(d.Auth, logg))
			r.Patch("/{userId}/role", controllers.AdminUpdateUserRole(d.Auth, logg))
			r.Delete("/{userId}", controllers.AdminDeleteUser(d.Auth, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(d.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(d.Orders, logg))
			r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg, true))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(d.Orders, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.Products, logg, true))
			r.Get("/{productId}", controllers.ProductDetail(d.Products, logg, true))
			r.Post("/", controllers.AdminProductCreate(d.Products, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(d.Products, logg))
			r.Delete("/{productId}", controllers.AdminProductDeactivate(d.Products, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(d.Inventory, logg))
			r.Get("/low-stock", controllers.InventoryLowStock(d.Inventory, logg))
			r.Get("/{productId}/logs", controllers.InventoryLogs(d.Inventory, logg))
			r.Post("/adjust", controllers.InventoryAdjust(d.Inventory, logg))
		})

		r.Get("/payments", paymentcontrollers.AdminList(d.Payments, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Get("/unread/count", controllers.UnreadNotificationCount(d.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/mark-all-read", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})
	})

	return r
}

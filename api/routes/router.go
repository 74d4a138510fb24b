package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	couponcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/coupons"
	inventorycontrollers "github.com/angelmondragon/storefront-backend/api/controllers/inventory"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/payments"
	returncontrollers "github.com/angelmondragon/storefront-backend/api/controllers/returns"
	shippingcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/shipping"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store backs idempotency replay and rate limiting.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps is everything the API surface needs. A nil service answers its routes
// with INTERNAL_ERROR instead of panicking.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Store       Store
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Orders    orders.Service
	Payments  paymentcontrollers.Service
	Regional  paymentcontrollers.RegionalCallbacks
	Returns   returns.Service
	Coupons   couponcontrollers.Service
	Shipping  shippingcontrollers.Service
	Inventory inventorycontrollers.Service

	StripeEvents   webhookcontrollers.StripeEventHandler
	StripeVerifier webhookcontrollers.StripeVerifier
	StripeDedupe   webhookcontrollers.EventDeduper
	SquareEvents   webhookcontrollers.SquareEventHandler
	SquareSigner   webhookcontrollers.SquareSigner
	SquareDedupe   webhookcontrollers.EventDeduper
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}, logg))
	})
	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)
	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon",
		cfg.RateLimit.CouponWindow,
		cfg.RateLimit.CouponIPLimit,
		cfg.RateLimit.CouponUserLimit,
	)

	// Gateway callbacks carry no bearer token and read the raw body themselves.
	redirects := paymentcontrollers.RedirectTargets{
		Success: cfg.App.CheckoutSuccessURL(),
		Cancel:  cfg.App.CheckoutCancelURL(),
	}
	r.Post("/api/v1/payments/webhook", webhookcontrollers.StripeWebhook(deps.StripeEvents, deps.StripeVerifier, deps.StripeDedupe, logg))
	r.Post("/api/v1/payments/square/webhook", webhookcontrollers.SquareWebhook(deps.SquareEvents, deps.SquareSigner, deps.SquareDedupe, cfg.App.SquareWebhookURL(), logg))
	r.Get("/api/v1/payments/ipn", paymentcontrollers.RegionalIPN(deps.Regional, logg))
	r.Post("/api/v1/payments/ipn", paymentcontrollers.RegionalIPN(deps.Regional, logg))
	r.Post("/api/v1/payments/sslcommerz/success", paymentcontrollers.RegionalSuccess(deps.Regional, redirects, logg))
	r.Post("/api/v1/payments/sslcommerz/fail", paymentcontrollers.RegionalFailure(deps.Regional, redirects, "Payment failed", "failed", logg))
	r.Post("/api/v1/payments/sslcommerz/cancel", paymentcontrollers.RegionalFailure(deps.Regional, redirects, "Payment cancelled by customer", "cancelled", logg))

	r.Get("/api/v1/shipping/track/{trackingNumber}", shippingcontrollers.Track(deps.Shipping, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Store, logg))

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/stats", ordercontrollers.Stats(deps.Orders, logg))
			r.Get("/number/{orderNumber}", ordercontrollers.ByNumber(deps.Orders, logg))
			r.Get("/{id}", ordercontrollers.Detail(deps.Orders, logg))
			r.Patch("/{id}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, deps.Store, logg)).
			Post("/api/v1/payments/{orderId}/initiate", paymentcontrollers.Initiate(deps.Payments, logg))
		r.Get("/api/v1/payments/order/{orderId}", paymentcontrollers.ListForOrder(deps.Payments, logg))

		r.Route("/api/v1/returns", func(r chi.Router) {
			r.Post("/", returncontrollers.Create(deps.Returns, logg))
			r.Get("/", returncontrollers.ListMine(deps.Returns, logg))
			r.Get("/{id}", returncontrollers.Detail(deps.Returns, logg))
			r.Patch("/{id}/cancel", returncontrollers.Cancel(deps.Returns, logg))
		})

		r.With(middleware.RateLimit(couponPolicy, deps.Store, logg)).
			Post("/api/v1/coupons/validate", couponcontrollers.Validate(deps.Coupons, logg))

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/stats", ordercontrollers.Stats(deps.Orders, logg))
				r.Patch("/{id}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.Post("/{id}/shipping", shippingcontrollers.Add(deps.Shipping, logg))
				r.Patch("/{id}/shipping", shippingcontrollers.Update(deps.Shipping, logg))
			})
			r.Route("/payments", func(r chi.Router) {
				r.Post("/", paymentcontrollers.CreateManual(deps.Payments, logg))
				r.Patch("/{id}/status", paymentcontrollers.UpdateStatus(deps.Payments, logg))
				r.Patch("/{id}/refund", paymentcontrollers.Refund(deps.Payments, logg))
			})
			r.Route("/returns", func(r chi.Router) {
				r.Get("/", returncontrollers.AdminList(deps.Returns, logg))
				r.Patch("/{id}/status", returncontrollers.UpdateStatus(deps.Returns, logg))
			})
			r.Route("/coupons", func(r chi.Router) {
				r.Post("/", couponcontrollers.Create(deps.Coupons, logg))
				r.Get("/", couponcontrollers.List(deps.Coupons, logg))
				r.Get("/{id}", couponcontrollers.Detail(deps.Coupons, logg))
				r.Put("/{id}", couponcontrollers.Update(deps.Coupons, logg))
				r.Patch("/{id}", couponcontrollers.Update(deps.Coupons, logg))
				r.Delete("/{id}", couponcontrollers.Delete(deps.Coupons, logg))
				r.Patch("/{id}/toggle", couponcontrollers.Toggle(deps.Coupons, logg))
			})
			r.Route("/inventory", func(r chi.Router) {
				r.Post("/adjust", inventorycontrollers.Adjust(deps.Inventory, logg))
				r.Get("/{productId}/history", inventorycontrollers.History(deps.Inventory, logg))
			})
		})
	})

	return r
}

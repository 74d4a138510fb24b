package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/internal/webhooks"
	squarewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/square"
	"github.com/angelmondragon/storefront-backend/pkg/sslcommerz"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// buildDeps wires repositories, gateways and services into the router deps.
// Gateways without credentials are registered as unavailable.
func buildDeps(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Deps, error) {
	gdb := dbClient.DB()
	paymentMetrics := metrics.NewPaymentMetrics(reg)
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)

	invRepo := inventory.NewRepository(gdb)
	couponRepo := coupons.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)

	stock, err := inventory.NewManager(inventory.ServiceParams{Repo: invRepo, TransactionRunner: dbClient, Logger: logg})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("inventory: %w", err)
	}
	engine, err := pricing.NewEngine(pricing.ServiceParams{Inventory: invRepo, Coupons: couponRepo, Logger: logg})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("pricing: %w", err)
	}
	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: couponRepo, TransactionRunner: dbClient, Logger: logg})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("coupons: %w", err)
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		TransactionRunner: dbClient,
		Pricing:           engine,
		Coupons:           couponRepo,
		Inventory:         stock,
		Outbox:            emitter,
		Logger:            logg,
		Currency:          cfg.Orders.Currency,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("orders: %w", err)
	}

	recon, err := reconciler.NewService(reconciler.ServiceParams{
		Repo:              reconciler.NewRepository(gdb),
		Orders:            orderRepo,
		Lifecycle:         orderSvc,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("reconciler: %w", err)
	}

	gateways := []payments.Gateway{
		payments.NewCashOnDeliveryGateway(),
		payments.NewStubGateway(enums.PaymentGatewayPayPal),
		payments.NewStubGateway(enums.PaymentGatewayRazorpay),
	}
	deps := routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Store:     redisClient,
		Gatherer:  reg,
		Orders:    orderSvc,
		Coupons:   couponSvc,
		Inventory: stock,
	}

	if cfg.Stripe.Enabled() {
		client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return routes.Deps{}, fmt.Errorf("stripe: %w", err)
		}
		gateway, err := payments.NewStripeGateway(payments.StripeGatewayParams{
			Client:     client,
			SuccessURL: cfg.App.CheckoutSuccessURL(),
			CancelURL:  cfg.App.CheckoutCancelURL(),
		})
		if err != nil {
			return routes.Deps{}, fmt.Errorf("stripe gateway: %w", err)
		}
		events, err := stripewebhook.NewService(stripewebhook.ServiceParams{Reconciler: recon, Logger: logg})
		if err != nil {
			return routes.Deps{}, fmt.Errorf("stripe webhook: %w", err)
		}
		dedupe, err := webhooks.NewDeduper(redisClient, webhooks.DefaultDedupeTTL, "stripe-event")
		if err != nil {
			return routes.Deps{}, fmt.Errorf("stripe dedupe: %w", err)
		}
		gateways = append(gateways, gateway)
		deps.StripeEvents, deps.StripeVerifier, deps.StripeDedupe = events, client, dedupe
	} else {
		gateways = append(gateways, payments.NewStubGateway(enums.PaymentGatewayStripe))
	}

	if cfg.Square.Enabled() {
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return routes.Deps{}, fmt.Errorf("square: %w", err)
		}
		gateway, err := payments.NewSquareGateway(client)
		if err != nil {
			return routes.Deps{}, fmt.Errorf("square gateway: %w", err)
		}
		events, err := squarewebhook.NewService(squarewebhook.ServiceParams{Reconciler: recon, Logger: logg})
		if err != nil {
			return routes.Deps{}, fmt.Errorf("square webhook: %w", err)
		}
		dedupe, err := webhooks.NewDeduper(redisClient, webhooks.DefaultDedupeTTL, "square-event")
		if err != nil {
			return routes.Deps{}, fmt.Errorf("square dedupe: %w", err)
		}
		gateways = append(gateways, gateway)
		deps.SquareEvents, deps.SquareSigner, deps.SquareDedupe = events, client, dedupe
	} else {
		gateways = append(gateways, payments.NewStubGateway(enums.PaymentGatewaySquare))
	}

	if cfg.SSLCommerz.Enabled() {
		client, err := sslcommerz.NewClient(cfg.SSLCommerz, logg)
		if err != nil {
			return routes.Deps{}, fmt.Errorf("sslcommerz: %w", err)
		}
		gateway, err := payments.NewRegionalGateway(payments.RegionalGatewayParams{
			Client:     client,
			BackendURL: cfg.App.BackendURL,
		})
		if err != nil {
			return routes.Deps{}, fmt.Errorf("sslcommerz gateway: %w", err)
		}
		callbacks, err := payments.NewRegionalCallbacks(payments.RegionalCallbackParams{
			Validator: client,
			Applier:   recon,
			Metrics:   paymentMetrics,
			Logger:    logg,
			Timeout:   cfg.SSLCommerz.Timeout,
		})
		if err != nil {
			return routes.Deps{}, fmt.Errorf("sslcommerz callbacks: %w", err)
		}
		gateways = append(gateways, gateway)
		deps.Regional = callbacks
	} else {
		gateways = append(gateways, payments.NewStubGateway(enums.PaymentGatewaySSLCommerz))
	}

	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(gdb),
		Orders:            orderRepo,
		Lifecycle:         orderSvc,
		Completer:         recon,
		Gateways:          payments.NewRegistry(gateways...),
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("payments: %w", err)
	}
	returnSvc, err := returns.NewService(returns.ServiceParams{
		Repo:              returns.NewRepository(gdb),
		Orders:            orderRepo,
		Inventory:         stock,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
		ReturnWindowDays:  cfg.Orders.ReturnWindowDays,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("returns: %w", err)
	}
	shippingSvc, err := shipping.NewService(shipping.ServiceParams{
		Repo:              shipping.NewRepository(gdb),
		Orders:            orderRepo,
		Lifecycle:         orderSvc,
		TransactionRunner: dbClient,
		Outbox:            emitter,
		Logger:            logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("shipping: %w", err)
	}

	deps.Payments = paymentSvc
	deps.Returns = returnSvc
	deps.Shipping = shippingSvc
	return deps, nil
}

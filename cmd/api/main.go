package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rahulmehra/shopkart-backend/api/routes"
	"github.com/rahulmehra/shopkart-backend/internal/cart"
	"github.com/rahulmehra/shopkart-backend/internal/catalog"
	checkoutsvc "github.com/rahulmehra/shopkart-backend/internal/checkout"
	"github.com/rahulmehra/shopkart-backend/internal/coupons"
	"github.com/rahulmehra/shopkart-backend/internal/locations"
	"github.com/rahulmehra/shopkart-backend/internal/orders"
	"github.com/rahulmehra/shopkart-backend/internal/pricing"
	paymentwebhook "github.com/rahulmehra/shopkart-backend/internal/webhooks/payment"
	"github.com/rahulmehra/shopkart-backend/pkg/cache"
	"github.com/rahulmehra/shopkart-backend/pkg/config"
	"github.com/rahulmehra/shopkart-backend/pkg/db"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
	"github.com/rahulmehra/shopkart-backend/pkg/metrics"
	"github.com/rahulmehra/shopkart-backend/pkg/migrate"
	"github.com/rahulmehra/shopkart-backend/pkg/payments"
	"github.com/rahulmehra/shopkart-backend/pkg/redis"
)

const webhookIdempotencyTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var storeCache cache.Cache
	if cfg.Cache.Enabled {
		storeCache = cache.NewRedis(redisClient, cfg.Cache.DefaultTTL)
	} else {
		storeCache = cache.NewNoop()
	}

	paymentsClient, err := payments.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payments client", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	var defaultGroupID *uuid.UUID
	if raw := cfg.Store.DefaultLocationGroupID; raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			logg.Error(context.Background(), "malformed default location group id", err)
			os.Exit(1)
		}
		defaultGroupID = &parsed
	}

	locationsRepo := locations.NewRepository(dbClient.DB())
	locationsService, err := locations.NewService(locationsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create locations service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(
		pricing.NewRepository(dbClient),
		locationsRepo,
		storeCache,
		cfg.Cache.DefaultTTL,
		defaultGroupID,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(coupons.NewRepository(dbClient), dbClient, storeCache, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient), dbClient, storeCache, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient), locationsService, pricingService, couponsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient)
	ordersService, err := orders.NewService(ordersRepo, dbClient, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartService,
		ordersRepo,
		couponsService,
		paymentsClient,
		cfg.Store.Currency,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := paymentwebhook.NewService(ordersRepo, dbClient, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "payment-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			locationsService,
			pricingService,
			couponsService,
			cartService,
			catalogService,
			ordersService,
			checkoutService,
			webhookService,
			webhookGuard,
			paymentsClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

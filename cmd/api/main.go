package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adorncommerce/adorn-backend/api/routes"
	"github.com/adorncommerce/adorn-backend/internal/addresses"
	"github.com/adorncommerce/adorn-backend/internal/cart"
	checkoutsvc "github.com/adorncommerce/adorn-backend/internal/checkout"
	"github.com/adorncommerce/adorn-backend/internal/inventory"
	"github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/internal/orders"
	paymentsvc "github.com/adorncommerce/adorn-backend/internal/payments"
	postpay "github.com/adorncommerce/adorn-backend/internal/postpayment"
	"github.com/adorncommerce/adorn-backend/internal/pricing"
	"github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/metrics"
	"github.com/adorncommerce/adorn-backend/pkg/migrate"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
	"github.com/adorncommerce/adorn-backend/pkg/paystack"
	"github.com/adorncommerce/adorn-backend/pkg/redis"
)

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
		fatal(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		fatal(logg, "failed to create paystack client", err)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}
	promotionService, err := promotions.NewService(promotions.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create promotions service", err)
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}
	addressService, err := addresses.NewService(addresses.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create addresses service", err)
	}
	inventoryService, err := inventory.NewService(inventoryRepo, logg)
	if err != nil {
		fatal(logg, "failed to create inventory service", err)
	}
	orderService, err := orders.NewService(orderRepo, dbClient, pricing.NewPolicy(cfg.Pricing), notificationService, outboxService, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	checkoutService, err := checkoutsvc.NewService(dbClient, cartService, promotionService, orderService, redisClient, checkoutMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}
	paymentService, err := paymentsvc.NewService(orderRepo, paystackClient, cfg.Paystack, checkoutMetrics, logg)
	if err != nil {
		fatal(logg, "failed to create payments service", err)
	}
	settlementService, err := postpay.NewService(
		orderRepo,
		dbClient,
		notificationService,
		outboxService,
		addressService,
		promotionService,
		inventoryRepo,
		redisClient,
		logg,
	)
	if err != nil {
		fatal(logg, "failed to create post-payment service", err)
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
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			cartService,
			promotionService,
			orderService,
			checkoutService,
			paymentService,
			settlementService,
			inventoryService,
			addressService,
			notificationService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

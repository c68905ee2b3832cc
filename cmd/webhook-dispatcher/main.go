package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adorncommerce/adorn-backend/internal/webhooks"
	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/metrics"
	"github.com/adorncommerce/adorn-backend/pkg/migrate"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "webhook-dispatcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "webhook-dispatcher",
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

	dispatchMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	dispatcher, err := webhooks.NewDispatcher(cfg.Webhook, dispatchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dispatcher", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Dispatcher:    dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "webhook-dispatcher",
	})
	logg.Info(ctx, "starting webhook dispatcher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "webhook dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "webhook dispatcher shutting down gracefully")
}

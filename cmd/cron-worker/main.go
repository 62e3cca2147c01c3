package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/internal/cron"
	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/internal/promo"
	"github.com/thomaggio/thomaggio-backend/pkg/config"
	"github.com/thomaggio/thomaggio-backend/pkg/db"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/metrics"
	"github.com/thomaggio/thomaggio-backend/pkg/migrate"
	"github.com/thomaggio/thomaggio-backend/pkg/redis"
)

const lockKeyFormat = "thomaggio:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	promoRepo := promo.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	cartExpiry, err := cron.NewCartExpiryJob(cron.CartExpiryJobParams{
		Logger:      logg,
		DB:          dbClient,
		Carts:       cartRepo,
		Metrics:     metricsCollector,
		ExpireAfter: cfg.Sweeper.CartExpireAfter,
		BatchSize:   cfg.Sweeper.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart expiry job", err)
		os.Exit(1)
	}

	cartPurge, err := cron.NewCartPurgeJob(cron.CartPurgeJobParams{
		Logger:     logg,
		DB:         dbClient,
		Carts:      cartRepo,
		Metrics:    metricsCollector,
		PurgeAfter: cfg.Sweeper.CartPurgeAfter,
		BatchSize:  cfg.Sweeper.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart purge job", err)
		os.Exit(1)
	}

	paymentExpiry, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:    logg,
		DB:        dbClient,
		Payments:  paymentsRepo,
		Metrics:   metricsCollector,
		BatchSize: cfg.Sweeper.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}

	promoCleanup, err := cron.NewPromoCleanupJob(cron.PromoCleanupJobParams{
		Logger:  logg,
		DB:      dbClient,
		Promos:  promoRepo,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create promo cleanup job", err)
		os.Exit(1)
	}

	// Payment expiry runs before the cart sweeps so a just-freed order can be
	// retried against a cart that is still intact.
	registry := cron.NewRegistry(paymentExpiry, cartExpiry, cartPurge, promoCleanup)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

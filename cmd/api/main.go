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

	"github.com/thomaggio/thomaggio-backend/api/routes"
	"github.com/thomaggio/thomaggio-backend/internal/broadcast"
	"github.com/thomaggio/thomaggio-backend/internal/cart"
	"github.com/thomaggio/thomaggio-backend/internal/catalog"
	"github.com/thomaggio/thomaggio-backend/internal/orders"
	"github.com/thomaggio/thomaggio-backend/internal/payments"
	"github.com/thomaggio/thomaggio-backend/internal/promo"
	"github.com/thomaggio/thomaggio-backend/internal/users"
	mpwebhook "github.com/thomaggio/thomaggio-backend/internal/webhooks/mercadopago"
	"github.com/thomaggio/thomaggio-backend/pkg/config"
	"github.com/thomaggio/thomaggio-backend/pkg/db"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
	"github.com/thomaggio/thomaggio-backend/pkg/mercadopago"
	"github.com/thomaggio/thomaggio-backend/pkg/migrate"
	"github.com/thomaggio/thomaggio-backend/pkg/pubsub"
	"github.com/thomaggio/thomaggio-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	broadcaster, cleanup := newBroadcaster(context.Background(), cfg, logg)
	defer cleanup()

	gateway, err := mercadopago.NewClient(cfg.MercadoPago, cfg.App.Env, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	promoRepo := promo.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:     catalogRepo,
		Cache:    redisClient,
		Logger:   logg,
		CacheTTL: cfg.Catalog.CacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalogService,
		Tx:      dbClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	promoService, err := promo.NewService(promo.ServiceParams{
		Repo:     promoRepo,
		CartRepo: cartRepo,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create promo service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Users:       usersRepo,
		CartRepo:    cartRepo,
		PromoRepo:   promoRepo,
		Catalog:     catalogService,
		Tx:          dbClient,
		Broadcaster: broadcaster,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:    paymentsRepo,
		Orders:  ordersRepo,
		Gateway: gateway,
		Tx:      dbClient,
		Config:  cfg.Payment,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Payments:    paymentsRepo,
		Orders:      ordersRepo,
		Gateway:     gateway,
		Tx:          dbClient,
		Broadcaster: broadcaster,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
		Cart:     cartService,
		Promo:    promoService,
		Orders:   ordersService,
		Payments: paymentsService,
		Webhook:  webhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shut down")
}

// newBroadcaster prefers Pub/Sub and degrades to a no-op when no GCP project
// is configured, so local setups run without credentials.
func newBroadcaster(ctx context.Context, cfg *config.Config, logg *logger.Logger) (broadcast.Broadcaster, func()) {
	if cfg.GCP.ProjectID == "" {
		logg.Warn(ctx, "no gcp project configured; order events will not be broadcast")
		return broadcast.Noop{}, func() {}
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to create pubsub client", err)
		os.Exit(1)
	}

	broadcaster, err := broadcast.NewPubSubBroadcaster(client, cfg.PubSub.PublishTimeout)
	if err != nil {
		logg.Error(ctx, "failed to create broadcaster", err)
		os.Exit(1)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}
	return broadcaster, cleanup
}

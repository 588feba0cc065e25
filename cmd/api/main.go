package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/souqline/souqline-backend/api/routes"
	catalogrepo "github.com/souqline/souqline-backend/internal/catalog"
	"github.com/souqline/souqline-backend/internal/checkout"
	clientsrepo "github.com/souqline/souqline-backend/internal/clients"
	"github.com/souqline/souqline-backend/internal/fees"
	"github.com/souqline/souqline-backend/internal/fulfillment"
	"github.com/souqline/souqline-backend/internal/notifications"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/referrals"
	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/internal/withdrawals"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/metrics"
	"github.com/souqline/souqline-backend/pkg/migrate"
	"github.com/souqline/souqline-backend/pkg/redis"
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

	svcs, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	notifier, err := notifications.NewService(redisClient, cfg.Notification, logg.Base())
	if err != nil {
		return routes.Services{}, err
	}

	meter := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	walletSvc, err := wallet.NewService(wallet.NewRepository(gdb), logg.Base(), meter)
	if err != nil {
		return routes.Services{}, err
	}

	calculator, err := fees.NewCalculator(cfg.Fees)
	if err != nil {
		return routes.Services{}, err
	}

	ordersRepo := orders.NewRepository(gdb)
	clientsRepo := clientsrepo.NewRepository(gdb)

	checkoutSvc, err := checkout.NewService(
		dbClient,
		catalogrepo.NewRepository(gdb),
		clientsRepo,
		ordersRepo,
		calculator,
		notifier,
		meter,
	)
	if err != nil {
		return routes.Services{}, err
	}

	ordersSvc, err := orders.NewService(dbClient, ordersRepo, clientsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	fulfillmentSvc, err := fulfillment.NewService(dbClient, ordersRepo, walletSvc, cfg.Wallet, notifier)
	if err != nil {
		return routes.Services{}, err
	}

	referralsSvc, err := referrals.NewService(dbClient, referrals.NewRepository(gdb), walletSvc, cfg.Referral)
	if err != nil {
		return routes.Services{}, err
	}

	withdrawalsSvc, err := withdrawals.NewService(dbClient, withdrawals.NewRepository(gdb), walletSvc, cfg.Wallet)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Checkout:    checkoutSvc,
		Orders:      ordersSvc,
		Fulfillment: fulfillmentSvc,
		Referrals:   referralsSvc,
		Wallet:      walletSvc,
		Withdrawals: withdrawalsSvc,
	}, nil
}

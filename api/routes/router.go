package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/souqline/souqline-backend/api/controllers"
	"github.com/souqline/souqline-backend/api/middleware"
	checkoutsvc "github.com/souqline/souqline-backend/internal/checkout"
	"github.com/souqline/souqline-backend/internal/fulfillment"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/referrals"
	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/internal/withdrawals"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/enums"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Fulfillment fulfillment.Service
	Referrals   referrals.Service
	Wallet      wallet.Service
	Withdrawals withdrawals.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/vendors", controllers.RegisterVendor(svcs.Referrals, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleVendor))
				r.Post("/", controllers.CreateOrder(svcs.Checkout, logg))
				r.Get("/", controllers.ListOrders(svcs.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
				r.Put("/{orderID}", controllers.ModifyOrder(svcs.Orders, logg))
			})

			r.Route("/suborders", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRoleSupplier)).
					Get("/", controllers.ListSubOrders(svcs.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleSupplier, enums.ActorRoleAdmin)).
					Put("/{subOrderID}/tracking", controllers.AdvanceSubOrder(svcs.Fulfillment, logg))
			})

			r.Route("/wallets", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleSupplier))
				r.Get("/me", controllers.GetWallet(svcs.Wallet, logg))
				r.Get("/me/transactions", controllers.ListWalletTransactions(svcs.Wallet, logg))
			})

			r.Route("/withdrawals", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleSupplier)).
					Post("/", controllers.RequestWithdrawal(svcs.Withdrawals, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleSupplier)).
					Get("/", controllers.ListWithdrawals(svcs.Withdrawals, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleVendor, enums.ActorRoleSupplier)).
					Put("/{requestID}/cancel", controllers.CancelWithdrawal(svcs.Withdrawals, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
					Put("/{requestID}/decision", controllers.DecideWithdrawal(svcs.Withdrawals, logg))
			})
		})
	})

	return r
}

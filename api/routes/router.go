package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridianpay/subvault/api/controllers"
	"github.com/meridianpay/subvault/api/middleware"
	"github.com/meridianpay/subvault/pkg/config"
	"github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/redis"
)

// RouterParams carries every collaborator the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	Redis         *redis.Client
	Vault         controllers.VaultService
	Merchants     controllers.MerchantService
	Subscriptions controllers.SubscriptionService
	Charges       controllers.ChargeService
	Recovery      controllers.RecoveryService
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(params.Redis, logg))

		r.Route("/vault", func(r chi.Router) {
			r.Get("/min-topup", controllers.VaultGetMinTopup(params.Vault, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/init", controllers.VaultInit(params.Vault, logg))
				r.Put("/min-topup", controllers.VaultSetMinTopup(params.Vault, logg))
			})
		})

		r.Route("/merchants/{merchant}", func(r chi.Router) {
			r.Get("/config", controllers.MerchantGetConfig(params.Merchants, logg))
			r.Put("/config", controllers.MerchantSetConfig(params.Merchants, logg))
			r.Patch("/config", controllers.MerchantUpdateConfig(params.Merchants, logg))
			r.Get("/balance", controllers.MerchantGetBalance(params.Merchants, logg))
			r.Post("/withdrawals", controllers.MerchantWithdraw(params.Merchants, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(params.Subscriptions, logg))
			r.Route("/{subscriptionId}", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionGet(params.Subscriptions, logg))
				r.Get("/next-charge", controllers.SubscriptionNextCharge(params.Subscriptions, logg))
				r.Post("/deposits", controllers.SubscriptionDeposit(params.Subscriptions, logg))
				r.Post("/pause", controllers.SubscriptionPause(params.Subscriptions, logg))
				r.Post("/resume", controllers.SubscriptionResume(params.Subscriptions, logg))
				r.Post("/cancel", controllers.SubscriptionCancel(params.Subscriptions, logg))
				r.Post("/charge", controllers.SubscriptionCharge(params.Charges, logg))
				r.Post("/usage-charges", controllers.SubscriptionUsageCharge(params.Charges, logg))
			})
		})

		r.Post("/charges/batch", controllers.BatchCharge(params.Charges, logg))

		r.Route("/recovery", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/", controllers.RecoverFunds(params.Recovery, logg))
			r.Get("/", controllers.RecoveryHistory(params.Recovery, logg))
		})
	})

	return r
}

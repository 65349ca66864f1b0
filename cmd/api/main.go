package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/meridianpay/subvault/api/routes"
	"github.com/meridianpay/subvault/internal/charges"
	"github.com/meridianpay/subvault/internal/merchants"
	"github.com/meridianpay/subvault/internal/recovery"
	"github.com/meridianpay/subvault/internal/subscriptions"
	"github.com/meridianpay/subvault/internal/vault"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	"github.com/meridianpay/subvault/pkg/config"
	"github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/migrate"
	"github.com/meridianpay/subvault/pkg/outbox"
	"github.com/meridianpay/subvault/pkg/redis"
	"github.com/meridianpay/subvault/pkg/token"
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

	tokenClient, err := token.FromConfig(cfg.Vault)
	if err != nil {
		logg.Error(context.Background(), "failed to create token backend", err)
		os.Exit(1)
	}

	authorizer := auth.NewAuthorizer()
	sysClock := clock.System()
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	vaultService, err := vault.NewService(vault.ServiceParams{
		Repo:       vault.NewRepository(dbClient.DB()),
		Authorizer: authorizer,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vault service", err)
		os.Exit(1)
	}

	merchantRepo := merchants.NewRepository(dbClient.DB())
	merchantService, err := merchants.NewService(merchants.ServiceParams{
		Repo:           merchantRepo,
		DB:             dbClient,
		Vault:          vaultService,
		Authorizer:     authorizer,
		Token:          tokenClient,
		Outbox:         outboxService,
		Logger:         logg,
		CustodyAddress: cfg.Vault.CustodyAddress,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create merchants service", err)
		os.Exit(1)
	}

	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:           subscriptionRepo,
		DB:             dbClient,
		Merchants:      merchantService,
		Vault:          vaultService,
		Authorizer:     authorizer,
		Token:          tokenClient,
		Outbox:         outboxService,
		Clock:          sysClock,
		Logger:         logg,
		CustodyAddress: cfg.Vault.CustodyAddress,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	chargeService, err := charges.NewService(charges.ServiceParams{
		Subscriptions: subscriptionRepo,
		Merchants:     merchantRepo,
		DB:            dbClient,
		Authorizer:    authorizer,
		Outbox:        outboxService,
		Clock:         sysClock,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create charge engine", err)
		os.Exit(1)
	}

	recoveryService, err := recovery.NewService(recovery.ServiceParams{
		Repo:           recovery.NewRepository(dbClient.DB()),
		DB:             dbClient,
		Vault:          vaultService,
		Authorizer:     authorizer,
		Token:          tokenClient,
		Outbox:         outboxService,
		Clock:          sysClock,
		Logger:         logg,
		CustodyAddress: cfg.Vault.CustodyAddress,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recovery service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			Redis:         redisClient,
			Vault:         vaultService,
			Merchants:     merchantService,
			Subscriptions: subscriptionService,
			Charges:       chargeService,
			Recovery:      recoveryService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meridianpay/subvault/internal/charges"
	"github.com/meridianpay/subvault/internal/merchants"
	"github.com/meridianpay/subvault/internal/subscriptions"
	"github.com/meridianpay/subvault/internal/sweep"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	"github.com/meridianpay/subvault/pkg/config"
	"github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/metrics"
	"github.com/meridianpay/subvault/pkg/migrate"
	"github.com/meridianpay/subvault/pkg/outbox"
	"github.com/meridianpay/subvault/pkg/redis"
)

const lockKeyFormat = "sv:charge-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "charge-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "charge-worker",
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

	sysClock := clock.System()
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())

	chargeService, err := charges.NewService(charges.ServiceParams{
		Subscriptions: subscriptionRepo,
		Merchants:     merchants.NewRepository(dbClient.DB()),
		DB:            dbClient,
		Authorizer:    auth.NewAuthorizer(),
		Outbox:        outboxService,
		Clock:         sysClock,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create charge engine", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)
	chargeMetrics := metrics.NewChargeMetrics(prometheus.DefaultRegisterer)

	chargeJob, err := sweep.NewChargeJob(sweep.ChargeJobParams{
		Logger:        logg,
		Subscriptions: subscriptionRepo,
		Charger:       chargeService,
		Clock:         sysClock,
		Metrics:       chargeMetrics,
		BatchSize:     cfg.Sweep.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create charge sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := sweep.NewOutboxRetentionJob(sweep.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		RetentionDays: cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := sweep.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(chargeJob, retentionJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting charge worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "charge worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "charge worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

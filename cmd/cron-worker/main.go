package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apprl/dashboard-backend/internal/cron"
	"github.com/apprl/dashboard-backend/internal/cuts"
	"github.com/apprl/dashboard-backend/internal/distribution"
	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/internal/payments"
	"github.com/apprl/dashboard-backend/internal/publishers"
	"github.com/apprl/dashboard-backend/internal/sales"
	"github.com/apprl/dashboard-backend/internal/settlement"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/metrics"
	"github.com/apprl/dashboard-backend/pkg/migrate"
	"github.com/apprl/dashboard-backend/pkg/redis"
)

const lockKeyFormat = "apprl:cron-worker:lock:%s"

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

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	resolver, err := cuts.NewResolver(
		publishers.NewRepository(dbClient.DB()),
		cuts.NewRepository(dbClient.DB()),
		cfg.Settlement,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cut resolver", err)
		os.Exit(1)
	}

	engine, err := distribution.NewEngine(resolver, cfg.Settlement, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create distribution engine", err)
		os.Exit(1)
	}

	saleRepo := sales.NewRepository(dbClient.DB())
	earningRepo := earnings.NewRepository(dbClient.DB())

	salesService, err := sales.NewService(dbClient, saleRepo, earningRepo, engine, logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	batcher, err := settlement.NewBatcher(
		dbClient,
		earningRepo,
		payments.NewRepository(dbClient.DB()),
		saleRepo,
		cfg.Settlement,
		logg,
		settlementMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement batcher", err)
		os.Exit(1)
	}

	redistributionJob, err := cron.NewRedistributionJob(cron.RedistributionJobParams{
		Logger:    logg,
		Repo:      saleRepo,
		Service:   salesService,
		BatchSize: cfg.Cron.RedistributionBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create redistribution job", err)
		os.Exit(1)
	}

	settlementJob, err := cron.NewSettlementJob(cron.SettlementJobParams{
		Logger:  logg,
		Batcher: batcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	// Redistribution runs before batching so freshly materialized earnings
	// are eligible in the same cycle.
	registry := cron.NewRegistry(redistributionJob, settlementJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
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

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apprl/dashboard-backend/api/routes"
	"github.com/apprl/dashboard-backend/internal/cuts"
	"github.com/apprl/dashboard-backend/internal/distribution"
	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/internal/payments"
	"github.com/apprl/dashboard-backend/internal/publishers"
	"github.com/apprl/dashboard-backend/internal/sales"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/metrics"
	"github.com/apprl/dashboard-backend/pkg/migrate"
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

	promRegistry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)

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

	paymentsService, err := payments.NewService(dbClient, payments.NewRepository(dbClient.DB()), earningRepo, saleRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
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
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Sales:    salesService,
			Payments: paymentsService,
			Metrics:  promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

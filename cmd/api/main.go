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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pwvale/panel-backend/api/routes"
	"github.com/pwvale/panel-backend/internal/accounts"
	"github.com/pwvale/panel-backend/internal/auth"
	"github.com/pwvale/panel-backend/internal/catalog"
	"github.com/pwvale/panel-backend/internal/characters"
	"github.com/pwvale/panel-backend/internal/commands"
	"github.com/pwvale/panel-backend/internal/donations"
	"github.com/pwvale/panel-backend/internal/gameserver"
	"github.com/pwvale/panel-backend/internal/gateway"
	paymentwebhook "github.com/pwvale/panel-backend/internal/webhooks/payments"
	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/db"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/metrics"
	"github.com/pwvale/panel-backend/pkg/migrate"
	"github.com/pwvale/panel-backend/pkg/redis"
)

const webhookGuardTTL = 24 * time.Hour

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

	registry := prometheus.NewRegistry()
	donationMetrics := metrics.NewDonationMetrics(registry)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	donationsRepo := donations.NewRepository(dbClient.DB())
	charactersRepo := characters.NewRepository(dbClient.DB())
	commandsRepo := commands.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		Accounts: accountsRepo,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	exitOn(logg, "auth service", err)

	catalogService, err := catalog.NewService(catalogRepo)
	exitOn(logg, "catalog service", err)

	gatewayClient, err := gateway.NewHTTPClient(cfg.Gateway)
	exitOn(logg, "gateway client", err)

	donationService, err := donations.NewService(donations.ServiceParams{
		Repo:     donationsRepo,
		Packages: catalogRepo,
		Gateway:  gatewayClient,
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  donationMetrics,
	})
	exitOn(logg, "donation service", err)

	characterService, err := characters.NewService(charactersRepo, logg)
	exitOn(logg, "character service", err)

	accountService, err := accounts.NewService(accountsRepo, logg)
	exitOn(logg, "account service", err)

	commandService, err := commands.NewService(commandsRepo, logg)
	exitOn(logg, "command service", err)

	control, err := gameserver.NewScriptControl(cfg.GameServer, logg)
	exitOn(logg, "server control", err)

	webhookService, err := paymentwebhook.NewService(donationService, logg)
	exitOn(logg, "webhook service", err)

	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "payments")
	exitOn(logg, "webhook guard", err)

	handler := routes.NewRouter(routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Registry:       registry,
		Auth:           authService,
		Catalog:        catalogService,
		Donations:      donationService,
		Characters:     characterService,
		Accounts:       accountService,
		Commands:       commandService,
		Control:        control,
		WebhookService: webhookService,
		WebhookGuard:   webhookGuard,
	})

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}

func exitOn(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}

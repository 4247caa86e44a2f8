package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pwvale/panel-backend/api/controllers"
	webhookcontrollers "github.com/pwvale/panel-backend/api/controllers/webhooks"
	"github.com/pwvale/panel-backend/api/middleware"
	"github.com/pwvale/panel-backend/internal/accounts"
	"github.com/pwvale/panel-backend/internal/auth"
	"github.com/pwvale/panel-backend/internal/catalog"
	"github.com/pwvale/panel-backend/internal/characters"
	"github.com/pwvale/panel-backend/internal/commands"
	"github.com/pwvale/panel-backend/internal/donations"
	"github.com/pwvale/panel-backend/internal/gameserver"
	paymentwebhook "github.com/pwvale/panel-backend/internal/webhooks/payments"
	"github.com/pwvale/panel-backend/pkg/config"
	"github.com/pwvale/panel-backend/pkg/db"
	"github.com/pwvale/panel-backend/pkg/enums"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/redis"
)

// RouterParams carries every service the HTTP surface exposes.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Auth       auth.Service
	Catalog    catalog.Service
	Donations  donations.Service
	Characters characters.Service
	Accounts   accounts.Service
	Commands   commands.Service
	Control    gameserver.Control

	WebhookService *paymentwebhook.Service
	WebhookGuard   *paymentwebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginNameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterNameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(p.WebhookService, cfg.Gateway, p.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/packages", controllers.ListPackages(p.Catalog, logg))
		r.Post("/donate", controllers.Donate(p.Donations, logg))
		r.Get("/donate/history", controllers.DonationHistory(p.Donations, logg))
		r.Get("/donate/balance", controllers.DonationBalance(p.Donations, logg))
		r.Get("/characters", controllers.MyCharacters(p.Characters, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.AccountRoleAdmin, logg))

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", controllers.ListPackages(p.Catalog, logg))
			r.Post("/", controllers.AdminCreatePackage(p.Catalog, logg))
			r.Patch("/{packageId}", controllers.AdminUpdatePackage(p.Catalog, logg))
			r.Delete("/{packageId}", controllers.AdminDeletePackage(p.Catalog, logg))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", controllers.AdminListAccounts(p.Accounts, logg))
			r.Get("/{accountId}", controllers.AdminGetAccount(p.Accounts, logg))
			r.Post("/{accountId}/ban", controllers.AdminBanAccount(p.Accounts, logg))
			r.Post("/{accountId}/unban", controllers.AdminUnbanAccount(p.Accounts, logg))
			r.Get("/{accountId}/characters", controllers.AdminAccountCharacters(p.Characters, logg))
		})

		r.Route("/characters", func(r chi.Router) {
			r.Get("/{characterId}", controllers.AdminGetCharacter(p.Characters, logg))
			r.Post("/{characterId}/teleport", controllers.AdminTeleportCharacter(p.Characters, logg))
			r.Get("/{characterId}/inventory", controllers.AdminCharacterInventory(p.Characters, logg))
		})

		r.Route("/server", func(r chi.Router) {
			r.Get("/status", controllers.AdminServerStatus(p.Control, logg))
			r.Post("/start", controllers.AdminServerStart(p.Control, logg))
			r.Post("/stop", controllers.AdminServerStop(p.Control, logg))
		})

		r.Route("/commands", func(r chi.Router) {
			r.Get("/", controllers.AdminListCommands(p.Commands, logg))
			r.Post("/broadcast", controllers.AdminBroadcast(p.Commands, logg))
			r.Post("/mail", controllers.AdminSystemMail(p.Commands, logg))
		})
	})

	return r
}

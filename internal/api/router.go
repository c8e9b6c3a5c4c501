package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/api/handler"
	"github.com/tradehaven/wallet-api/internal/api/middleware"
	"github.com/tradehaven/wallet-api/internal/api/spec"
	"github.com/tradehaven/wallet-api/internal/config"
	"github.com/tradehaven/wallet-api/internal/idempotency"
	"github.com/tradehaven/wallet-api/internal/platform"
	"github.com/tradehaven/wallet-api/internal/service"
)

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	idemStore *idempotency.Store
	redis     redis.Cmdable
	accounts  *service.AccountService
	ledger    *service.LedgerService
	platform  platform.Platform
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, idemStore *idempotency.Store, redisClient redis.Cmdable, accounts *service.AccountService, ledger *service.LedgerService, plat platform.Platform) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		idemStore: idemStore,
		redis:     redisClient,
		accounts:  accounts,
		ledger:    ledger,
		platform:  plat,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	authHandler := handler.NewAuthHandler(api.accounts)
	walletHandler := handler.NewWalletHandler(api.ledger, api.accounts)
	platformHandler := handler.NewPlatformHandler(api.platform)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
	})

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Protected wallet surface
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/balance", walletHandler.GetBalance)
		r.Get("/history", walletHandler.GetHistory)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))
			r.Post("/deposit", walletHandler.Deposit)
			r.Post("/withdraw", walletHandler.Withdraw)
			r.Post("/transfer", walletHandler.Transfer)
			r.Post("/platform-transfer", walletHandler.PlatformTransfer)
		})

		r.Get("/platform/account", platformHandler.GetAccountDetails)
		r.Get("/platform/status", platformHandler.GetServerStatus)
	})

	return r
}

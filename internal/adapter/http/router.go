package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/veltor/bankledger/internal/adapter/http/handler"
	"github.com/veltor/bankledger/internal/adapter/http/middleware"
	"github.com/veltor/bankledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	BalanceHandler     *handler.BalanceHandler
	OperationsHandler  *handler.OperationsHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	IdempotencyTTL     time.Duration
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Get("/actuator/health", cfg.HealthHandler.Liveness)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/block", cfg.AccountHandler.Block)
			r.Post("/{id}/unblock", cfg.AccountHandler.Unblock)
			r.Post("/{id}/close", cfg.AccountHandler.Close)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Post)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Post("/{id}/reverse", cfg.TransactionHandler.Reverse)
		})

		// Balances
		r.Route("/balances", func(r chi.Router) {
			r.Get("/{accountId}", cfg.BalanceHandler.Get)
			r.Get("/{accountId}/as-of", cfg.BalanceHandler.GetAsOf)
		})

		// Operations
		r.Post("/snapshots", cfg.OperationsHandler.TriggerSnapshots)
		r.Get("/outbox/status", cfg.OperationsHandler.OutboxStatus)
		r.Get("/ledger/consistency", cfg.OperationsHandler.Consistency)
	})

	return r
}

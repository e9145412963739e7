package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/veltor/bankledger/internal/adapter/bus"
	httpAdapter "github.com/veltor/bankledger/internal/adapter/http"
	"github.com/veltor/bankledger/internal/adapter/http/handler"
	postgresRepo "github.com/veltor/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/veltor/bankledger/internal/adapter/repository/redis"
	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/infrastructure/config"
	"github.com/veltor/bankledger/internal/infrastructure/logger"
	"github.com/veltor/bankledger/internal/infrastructure/metrics"
	"github.com/veltor/bankledger/internal/infrastructure/outbox"
	"github.com/veltor/bankledger/internal/infrastructure/postgres"
	"github.com/veltor/bankledger/internal/infrastructure/redis"
	"github.com/veltor/bankledger/internal/infrastructure/snapshot"
	"github.com/veltor/bankledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx := context.Background()

	// Apply schema before accepting traffic
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns, cfg.DatabaseTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Kafka publisher
	publisher := bus.NewKafkaPublisher(cfg.KafkaBrokers, appLogger)
	defer publisher.Close()

	appMetrics := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool, cfg.StoreIsolation)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	snapshotRepo := postgresRepo.NewSnapshotRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewIDGenerator(cfg.IDGenerator)
	clock := usecase.SystemClock{}
	retrier := postgresRepo.NewRetrier(appLogger)

	// Use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, idGen, clock)
	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, txnRepo, outboxRepo, idGen, clock).WithRetrier(retrier)
	balanceUC := usecase.NewBalanceUseCase(accountRepo, entryRepo, snapshotRepo, clock)
	snapshotUC := usecase.NewSnapshotUseCase(txManager, accountRepo, snapshotRepo, balanceUC, idGen, clock, appLogger)
	consistencyUC := usecase.NewConsistencyUseCase(ledgerRepo)

	// Outbox relay
	relay := outbox.NewRelay(outbox.Config{
		TxManager:  txManager,
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Clock:      clock,
		Metrics:    appMetrics,
		Logger:     appLogger,
		Topics: map[string]string{
			domain.EventTransactionPosted:   cfg.TopicTxnPosted,
			domain.EventTransactionReversed: cfg.TopicTxnReversed,
		},
		PollInterval:      cfg.OutboxPollInterval,
		BatchSize:         cfg.OutboxBatchSize,
		MaxAttempts:       cfg.OutboxMaxAttempts,
		PerAttemptTimeout: cfg.OutboxPerAttemptTimeout,
		HealthLogInterval: cfg.OutboxHealthLogInterval,
	})

	// Snapshot scheduler
	scheduler, err := snapshot.NewScheduler(cfg.SnapshotCron, cfg.SnapshotCutoffZone, snapshotUC, clock, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create snapshot scheduler")
	}

	// HTTP handlers and router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:     handler.NewAccountHandler(accountUC, appMetrics),
		TransactionHandler: handler.NewTransactionHandler(ledgerUC, appMetrics),
		BalanceHandler:     handler.NewBalanceHandler(balanceUC, appMetrics),
		OperationsHandler:  handler.NewOperationsHandler(snapshotUC, outboxRepo, consistencyUC),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		Logger:             appLogger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Background workers
	workerCtx, cancelWorkers := context.WithCancel(ctx)

	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := relay.Start(workerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	scheduler.Start()

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	scheduler.Stop()
	cancelWorkers()
	workers.Wait()

	log.Info().Msg("stopped")
}

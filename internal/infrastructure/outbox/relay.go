// Package outbox contains the relay worker that drains the transactional
// outbox to the message bus with at-least-once delivery.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/infrastructure/metrics"
	"github.com/veltor/bankledger/internal/usecase"
)

// Config for the Relay.
type Config struct {
	TxManager  usecase.TransactionManager
	OutboxRepo usecase.OutboxRepository
	Publisher  usecase.BusPublisher
	Clock      usecase.Clock
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger

	// Topics maps event type to bus topic. Records with an unmapped event
	// type count as publish failures.
	Topics map[string]string

	PollInterval      time.Duration // sleep between polls
	BatchSize         int           // max rows per poll
	MaxAttempts       int           // attempts before FAILED
	PerAttemptTimeout time.Duration // single publish timeout
	HealthLogInterval time.Duration // cadence of status-count logging
}

// Relay polls the outbox and publishes pending records. Rows are fetched
// FOR UPDATE SKIP LOCKED inside one store transaction per batch, so running
// a second instance is safe, if uncoordinated.
type Relay struct {
	cfg    Config
	logger zerolog.Logger
}

// NewRelay creates a relay worker, applying defaults for zeroed knobs.
func NewRelay(cfg Config) *Relay {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.PerAttemptTimeout == 0 {
		cfg.PerAttemptTimeout = 10 * time.Second
	}
	if cfg.HealthLogInterval == 0 {
		cfg.HealthLogInterval = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = usecase.SystemClock{}
	}

	return &Relay{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "outbox_relay").Logger(),
	}
}

// Start runs the polling loop until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().
		Dur("poll_interval", r.cfg.PollInterval).
		Int("batch_size", r.cfg.BatchSize).
		Int("max_attempts", r.cfg.MaxAttempts).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	health := time.NewTicker(r.cfg.HealthLogInterval)
	defer health.Stop()

	// Process immediately on start
	if err := r.ProcessBatch(ctx); err != nil {
		r.logger.Error().Err(err).Msg("outbox batch failed")
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error().Err(err).Msg("outbox batch failed")
			}
		case <-health.C:
			r.logHealth(ctx)
		}
	}
}

// ProcessBatch drains one batch of pending records. Delivery outcomes are
// written in the same store transaction that holds the row locks, so a
// crash mid-batch leaves untouched rows PENDING for the next tick.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	tx, err := r.cfg.TxManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	records, err := r.cfg.OutboxRepo.FetchPending(ctx, tx, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	r.logger.Debug().Int("count", len(records)).Msg("processing outbox records")

	for _, record := range records {
		r.publishRecord(ctx, record)

		if err := r.cfg.OutboxRepo.Update(ctx, tx, record); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Relay) publishRecord(ctx context.Context, record *domain.OutboxRecord) {
	err := r.publishOnce(ctx, record)
	if err == nil {
		record.MarkProcessed(r.cfg.Clock.Now())

		if r.cfg.Metrics != nil {
			r.cfg.Metrics.OutboxPublishes.WithLabelValues("success").Inc()
		}

		r.logger.Info().
			Str("record_id", record.ID).
			Str("event_type", record.EventType).
			Str("aggregate_id", record.AggregateID).
			Msg("outbox record published")

		return
	}

	record.RecordFailure(err.Error(), r.cfg.MaxAttempts)

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.OutboxPublishes.WithLabelValues("failure").Inc()
	}

	event := r.logger.Warn()
	if record.Status == domain.OutboxStatusFailed {
		event = r.logger.Error()
	}

	event.
		Err(err).
		Str("record_id", record.ID).
		Str("event_type", record.EventType).
		Int("attempts", record.Attempts).
		Str("status", string(record.Status)).
		Msg("outbox publish failed")
}

func (r *Relay) publishOnce(ctx context.Context, record *domain.OutboxRecord) error {
	topic, ok := r.cfg.Topics[record.EventType]
	if !ok {
		return fmt.Errorf("no topic mapped for event type %q", record.EventType)
	}

	publishCtx, cancel := context.WithTimeout(ctx, r.cfg.PerAttemptTimeout)
	defer cancel()

	start := r.cfg.Clock.Now()
	err := r.cfg.Publisher.Publish(publishCtx, topic, record.AggregateID, record.Payload)

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.PublishDuration.Observe(r.cfg.Clock.Now().Sub(start).Seconds())
	}

	return err
}

func (r *Relay) logHealth(ctx context.Context) {
	counts, err := r.cfg.OutboxRepo.CountByStatus(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("outbox health check failed")
		return
	}

	pending := counts[domain.OutboxStatusPending]
	failed := counts[domain.OutboxStatusFailed]

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.OutboxPending.Set(float64(pending))
		r.cfg.Metrics.OutboxFailed.Set(float64(failed))
	}

	r.logger.Info().
		Int64("pending", pending).
		Int64("processed", counts[domain.OutboxStatusProcessed]).
		Int64("failed", failed).
		Msg("outbox status")

	if failed > 0 {
		r.logger.Warn().
			Int64("failed", failed).
			Msg("outbox has FAILED records requiring manual intervention")
	}
}

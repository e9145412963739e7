package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Create inserts a PENDING record inside the aggregate's store transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at, processed_at, attempts, last_error, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := pgxTx.Exec(ctx, query,
		record.ID,
		record.AggregateID,
		record.EventType,
		record.Payload,
		record.CreatedAt,
		timePtrToPgTimestamptz(record.ProcessedAt),
		record.Attempts,
		nullableString(record.LastError),
		record.Status,
	)

	return err
}

// FetchPending returns PENDING records oldest-first, locked FOR UPDATE SKIP
// LOCKED: rows held by another relay instance are silently skipped instead
// of blocking or being double-published.
func (r *OutboxRepository) FetchPending(ctx context.Context, tx usecase.Transaction, limit int) ([]*domain.OutboxRecord, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT id, aggregate_id, event_type, payload, created_at, processed_at, attempts, last_error, status
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := pgxTx.Query(ctx, query, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.OutboxRecord

	for rows.Next() {
		var (
			record    domain.OutboxRecord
			lastError *string
		)

		err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.EventType,
			&record.Payload,
			&record.CreatedAt,
			&record.ProcessedAt,
			&record.Attempts,
			&lastError,
			&record.Status,
		)
		if err != nil {
			return nil, err
		}

		if lastError != nil {
			record.LastError = *lastError
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Update persists the delivery outcome of one record.
func (r *OutboxRepository) Update(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE outbox_events
		SET status = $2, attempts = $3, processed_at = $4, last_error = $5
		WHERE id = $1
	`

	_, err := pgxTx.Exec(ctx, query,
		record.ID,
		record.Status,
		record.Attempts,
		timePtrToPgTimestamptz(record.ProcessedAt),
		nullableString(record.LastError),
	)

	return err
}

// CountByStatus counts records per status without taking locks; used for
// health logging and metrics only.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error) {
	query := `SELECT status, COUNT(*) FROM outbox_events GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OutboxStatus]int64)

	for rows.Next() {
		var (
			status domain.OutboxStatus
			count  int64
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		counts[status] = count
	}

	return counts, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

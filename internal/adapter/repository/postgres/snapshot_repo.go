package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
)

// SnapshotRepository implements usecase.SnapshotRepository.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Create inserts a snapshot. The unique index on (account_id,
// snapshot_time) surfaces as domain.ErrDuplicateSnapshot.
func (r *SnapshotRepository) Create(ctx context.Context, tx usecase.Transaction, snapshot *domain.BalanceSnapshot) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO balance_snapshots (id, account_id, balance, currency, snapshot_time, last_entry_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := pgxTx.Exec(ctx, query,
		snapshot.ID,
		snapshot.AccountID,
		decimalToNumeric(snapshot.Balance.Amount()),
		snapshot.Balance.Currency(),
		snapshot.SnapshotTime,
		snapshot.LastEntryID,
		snapshot.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateSnapshot
	}

	return err
}

// GetLatest returns the most recent snapshot at or before the cutoff.
func (r *SnapshotRepository) GetLatest(ctx context.Context, accountID string, atOrBefore time.Time) (*domain.BalanceSnapshot, error) {
	query := `
		SELECT id, account_id, balance, currency, snapshot_time, last_entry_id, created_at
		FROM balance_snapshots
		WHERE account_id = $1 AND snapshot_time <= $2
		ORDER BY snapshot_time DESC
		LIMIT 1
	`

	var (
		snapshot domain.BalanceSnapshot
		balance  pgtype.Numeric
		currency string
	)

	err := r.pool.QueryRow(ctx, query, accountID, atOrBefore).Scan(
		&snapshot.ID,
		&snapshot.AccountID,
		&balance,
		&currency,
		&snapshot.SnapshotTime,
		&snapshot.LastEntryID,
		&snapshot.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	money, err := domain.NewMoney(numericToDecimal(balance), currency)
	if err != nil {
		return nil, err
	}

	snapshot.Balance = money

	return &snapshot, nil
}

// ExistsAt reports whether a snapshot already exists at exactly the cutoff.
func (r *SnapshotRepository) ExistsAt(ctx context.Context, accountID string, cutoff time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM balance_snapshots WHERE account_id = $1 AND snapshot_time = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, accountID, cutoff).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

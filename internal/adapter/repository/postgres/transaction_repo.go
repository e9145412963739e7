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

// TransactionRepository implements usecase.TransactionRepository. A
// transaction row and its entry rows are always written together.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts the transaction row and all entry rows. The unique index
// on external_id surfaces as domain.ErrDuplicateExternalID.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	insertTxn := `
		INSERT INTO ledger_transactions (id, external_id, event_type, status, created_at, reversal_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := pgxTx.Exec(ctx, insertTxn,
		txn.ID,
		txn.ExternalID,
		txn.EventType,
		txn.Status,
		txn.CreatedAt,
		txn.ReversalTransactionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateExternalID
		}

		return err
	}

	insertEntry := `
		INSERT INTO ledger_entries (id, transaction_id, account_id, amount, currency, side, event_type, event_time, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, entry := range txn.Entries {
		_, err := pgxTx.Exec(ctx, insertEntry,
			entry.ID,
			entry.TransactionID,
			entry.AccountID,
			decimalToNumeric(entry.Amount.Amount()),
			entry.Amount.Currency(),
			entry.Side,
			entry.EventType,
			entry.EventTime,
			entry.RecordedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a transaction with its entries.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.getBy(ctx, r.pool, "id", id)
}

// GetByIDTx retrieves a transaction with its entries inside a store
// transaction.
func (r *TransactionRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return r.getBy(ctx, tx.(*Tx).PgxTx(), "id", id)
}

// GetByExternalID retrieves a transaction by its idempotency key.
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	return r.getBy(ctx, r.pool, "external_id", externalID)
}

// GetByExternalIDTx is GetByExternalID inside a store transaction.
func (r *TransactionRepository) GetByExternalIDTx(ctx context.Context, tx usecase.Transaction, externalID string) (*domain.Transaction, error) {
	return r.getBy(ctx, tx.(*Tx).PgxTx(), "external_id", externalID)
}

// UpdateStatus applies a status transition; illegal transitions are guarded
// in the WHERE clause so a stale caller cannot clobber newer state.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, reversalTransactionID *string) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE ledger_transactions
		SET status = $2, reversal_transaction_id = COALESCE($3, reversal_transaction_id)
		WHERE id = $1 AND status = ANY($4)
	`

	tag, err := pgxTx.Exec(ctx, query, id, status, reversalTransactionID, legalPredecessors(status))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidStatusChange
	}

	return nil
}

func legalPredecessors(status domain.TransactionStatus) []string {
	switch status {
	case domain.TransactionStatusPosted, domain.TransactionStatusFailed:
		return []string{string(domain.TransactionStatusPending)}
	case domain.TransactionStatusReversed:
		return []string{string(domain.TransactionStatusPosted)}
	default:
		return nil
	}
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *TransactionRepository) getBy(ctx context.Context, q pgxQuerier, column, value string) (*domain.Transaction, error) {
	query := `
		SELECT id, external_id, event_type, status, created_at, reversal_transaction_id
		FROM ledger_transactions
		WHERE ` + column + ` = $1
	`

	var (
		txn        domain.Transaction
		reversalID *string
	)

	err := q.QueryRow(ctx, query, value).Scan(
		&txn.ID,
		&txn.ExternalID,
		&txn.EventType,
		&txn.Status,
		&txn.CreatedAt,
		&reversalID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	txn.ReversalTransactionID = reversalID

	entries, err := r.entriesFor(ctx, q, txn.ID)
	if err != nil {
		return nil, err
	}

	txn.Entries = entries

	return &txn, nil
}

func (r *TransactionRepository) entriesFor(ctx context.Context, q pgxQuerier, transactionID string) ([]*domain.Entry, error) {
	query := `
		SELECT id, transaction_id, account_id, amount, currency, side, event_type, event_time, recorded_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry     domain.Entry
		amount    pgtype.Numeric
		currency  string
		eventTime time.Time
		recorded  time.Time
	)

	err := row.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.AccountID,
		&amount,
		&currency,
		&entry.Side,
		&entry.EventType,
		&eventTime,
		&recorded,
	)
	if err != nil {
		return nil, err
	}

	money, err := domain.NewMoney(numericToDecimal(amount), currency)
	if err != nil {
		return nil, err
	}

	entry.Amount = money
	entry.EventTime = eventTime
	entry.RecordedAt = recorded

	return &entry, nil
}

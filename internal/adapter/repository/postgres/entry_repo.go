package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veltor/bankledger/internal/domain"
)

// EntryRepository implements usecase.EntryRepository. Entries are
// append-only; readers need no locks beyond MVCC.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// ListPostedByAccount returns the entries of POSTED and REVERSED
// transactions for the account ordered by event time ascending. after is an exclusive lower bound (nil = open);
// until is inclusive.
func (r *EntryRepository) ListPostedByAccount(ctx context.Context, accountID string, after *time.Time, until time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT e.id, e.transaction_id, e.account_id, e.amount, e.currency, e.side, e.event_type, e.event_time, e.recorded_at
		FROM ledger_entries e
		JOIN ledger_transactions t ON t.id = e.transaction_id
		WHERE e.account_id = $1
		  AND t.status = ANY($2)
		  AND ($3::timestamptz IS NULL OR e.event_time > $3)
		  AND e.event_time <= $4
		ORDER BY e.event_time, e.id
	`

	// REVERSED originals still count: their entries were posted and are
	// compensated by the mirror entries, not erased.
	statuses := []string{
		string(domain.TransactionStatusPosted),
		string(domain.TransactionStatusReversed),
	}

	rows, err := r.pool.Query(ctx, query, accountID, statuses, timePtrToPgTimestamptz(after), until)
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

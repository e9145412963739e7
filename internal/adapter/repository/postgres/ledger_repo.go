package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// SumPostedBySide totals posted entry amounts per side across the ledger.
func (r *LedgerRepository) SumPostedBySide(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(e.amount) FILTER (WHERE e.side = $1), 0),
			COALESCE(SUM(e.amount) FILTER (WHERE e.side = $2), 0)
		FROM ledger_entries e
		JOIN ledger_transactions t ON t.id = e.transaction_id
		WHERE t.status = ANY($3)
	`

	statuses := []string{
		string(domain.TransactionStatusPosted),
		string(domain.TransactionStatusReversed),
	}

	var debits, credits pgtype.Numeric

	err := r.pool.QueryRow(ctx, query, domain.EntrySideDebit, domain.EntrySideCredit, statuses).
		Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(debits), numericToDecimal(credits), nil
}

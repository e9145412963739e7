package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veltor/bankledger/internal/usecase"
)

type pgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager on a pgx pool. The
// isolation level applies to every transaction it opens.
type TxManager struct {
	pool      pgxPool
	txOptions pgx.TxOptions
}

// NewTxManager creates a TxManager. isolation is "serializable" (default)
// or "snapshot", which maps to Postgres REPEATABLE READ.
func NewTxManager(pool *pgxpool.Pool, isolation string) *TxManager {
	return newTxManagerWithPool(pool, isolation)
}

func newTxManagerWithPool(pool pgxPool, isolation string) *TxManager {
	level := pgx.Serializable
	if isolation == "snapshot" {
		level = pgx.RepeatableRead
	}

	return &TxManager{
		pool:      pool,
		txOptions: pgx.TxOptions{IsoLevel: level},
	}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, m.txOptions)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

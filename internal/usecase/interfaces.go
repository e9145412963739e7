package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks account rows FOR UPDATE. Callers pass ids in
	// ascending order; rows are locked in that order.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	ListActive(ctx context.Context) ([]*domain.Account, error)
}

// TransactionRepository defines data access for ledger transactions and
// their entries.
type TransactionRepository interface {
	// Create inserts the transaction row plus all entry rows. Returns
	// domain.ErrDuplicateExternalID on an external-id unique violation.
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)
	GetByExternalIDTx(ctx context.Context, tx Transaction, externalID string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, reversalTransactionID *string) error
}

// EntryRepository defines read access to posted ledger entries.
type EntryRepository interface {
	// ListPostedByAccount returns the entries of POSTED and REVERSED
	// transactions for an account ordered by event time ascending. after is exclusive (nil means from the
	// beginning); until is inclusive.
	ListPostedByAccount(ctx context.Context, accountID string, after *time.Time, until time.Time) ([]*domain.Entry, error)
}

// SnapshotRepository defines data access for balance snapshots.
type SnapshotRepository interface {
	// Create inserts a snapshot. Returns domain.ErrDuplicateSnapshot when a
	// snapshot already exists for (account id, snapshot time).
	Create(ctx context.Context, tx Transaction, snapshot *domain.BalanceSnapshot) error
	// GetLatest returns the most recent snapshot with snapshot time at or
	// before the cutoff, or domain.ErrSnapshotNotFound.
	GetLatest(ctx context.Context, accountID string, atOrBefore time.Time) (*domain.BalanceSnapshot, error)
	ExistsAt(ctx context.Context, accountID string, cutoff time.Time) (bool, error)
}

// OutboxRepository defines data access for outbox records.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.OutboxRecord) error
	// FetchPending returns PENDING records oldest-first, locked FOR UPDATE
	// SKIP LOCKED so concurrent relays never see the same row.
	FetchPending(ctx context.Context, tx Transaction, limit int) ([]*domain.OutboxRecord, error)
	Update(ctx context.Context, tx Transaction, record *domain.OutboxRecord) error
	CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error)
}

// LedgerRepository defines ledger-wide aggregate queries.
type LedgerRepository interface {
	// SumPostedBySide returns the total debit and credit amounts of the
	// entries of POSTED and REVERSED transactions across the whole ledger.
	SumPostedBySide(ctx context.Context) (debits, credits decimal.Decimal, err error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// BusPublisher publishes an event to a named topic and waits for the bus
// acknowledgement.
type BusPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock supplies the current instant; injectable for tests.
type Clock interface {
	Now() time.Time
}

// Retrier re-runs an operation on transient store conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IdempotencyStore handles HTTP-level idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// SystemClock is the wall-clock Clock.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

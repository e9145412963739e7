// Package mocks provides hand-rolled in-memory fakes for the usecase
// interfaces. Each method delegates to an optional Func field so tests can
// override single behaviors while keeping the in-memory default.
package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
)

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdateFunc  func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	UpdateStatusFunc      func(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error
	ListFunc              func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	ListActiveFunc        func(ctx context.Context) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Put seeds an account directly.
func (m *MockAccountRepository) Put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.Put(account)
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.AccountStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Status = status
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *MockAccountRepository) ListActive(ctx context.Context) ([]*domain.Account, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.Status == domain.AccountStatusActive {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	byExternalID map[string]string

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByExternalIDFunc   func(ctx context.Context, externalID string) (*domain.Transaction, error)
	UpdateStatusFunc      func(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, reversalTransactionID *string) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
		byExternalID: make(map[string]string),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byExternalID[txn.ExternalID]; ok {
		return domain.ErrDuplicateExternalID
	}
	m.transactions[txn.ID] = txn
	m.byExternalID[txn.ExternalID] = txn.ID
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if txn, ok := m.transactions[id]; ok {
		return txn, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byExternalID[externalID]; ok {
		return m.transactions[id], nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByExternalIDTx(ctx context.Context, tx usecase.Transaction, externalID string) (*domain.Transaction, error) {
	return m.GetByExternalID(ctx, externalID)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, reversalTransactionID *string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, reversalTransactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn, ok := m.transactions[id]; ok {
		txn.Status = status
		txn.ReversalTransactionID = reversalTransactionID
	}
	return nil
}

// Entries returns all entries of POSTED and REVERSED transactions touching
// the given account, ordered by event time ascending. Helper for wiring
// MockEntryRepository to the same backing data.
func (m *MockTransactionRepository) Entries(accountID string) []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, txn := range m.transactions {
		if txn.Status != domain.TransactionStatusPosted && txn.Status != domain.TransactionStatusReversed {
			continue
		}
		for _, e := range txn.Entries {
			if e.AccountID == accountID {
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EventTime.Before(entries[j].EventTime) })
	return entries
}

// MockEntryRepository is an EntryRepository view over a
// MockTransactionRepository.
type MockEntryRepository struct {
	Transactions *MockTransactionRepository

	ListPostedByAccountFunc func(ctx context.Context, accountID string, after *time.Time, until time.Time) ([]*domain.Entry, error)
}

func NewMockEntryRepository(transactions *MockTransactionRepository) *MockEntryRepository {
	return &MockEntryRepository{Transactions: transactions}
}

func (m *MockEntryRepository) ListPostedByAccount(ctx context.Context, accountID string, after *time.Time, until time.Time) ([]*domain.Entry, error) {
	if m.ListPostedByAccountFunc != nil {
		return m.ListPostedByAccountFunc(ctx, accountID, after, until)
	}
	var entries []*domain.Entry
	for _, e := range m.Transactions.Entries(accountID) {
		if after != nil && !e.EventTime.After(*after) {
			continue
		}
		if e.EventTime.After(until) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MockSnapshotRepository is an in-memory SnapshotRepository.
type MockSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots []*domain.BalanceSnapshot

	CreateFunc    func(ctx context.Context, tx usecase.Transaction, snapshot *domain.BalanceSnapshot) error
	GetLatestFunc func(ctx context.Context, accountID string, atOrBefore time.Time) (*domain.BalanceSnapshot, error)
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{}
}

func (m *MockSnapshotRepository) Create(ctx context.Context, tx usecase.Transaction, snapshot *domain.BalanceSnapshot) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, snapshot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.AccountID == snapshot.AccountID && s.SnapshotTime.Equal(snapshot.SnapshotTime) {
			return domain.ErrDuplicateSnapshot
		}
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, accountID string, atOrBefore time.Time) (*domain.BalanceSnapshot, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, accountID, atOrBefore)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.BalanceSnapshot
	for _, s := range m.snapshots {
		if s.AccountID != accountID || s.SnapshotTime.After(atOrBefore) {
			continue
		}
		if latest == nil || s.SnapshotTime.After(latest.SnapshotTime) {
			latest = s
		}
	}
	if latest == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return latest, nil
}

func (m *MockSnapshotRepository) ExistsAt(ctx context.Context, accountID string, cutoff time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.snapshots {
		if s.AccountID == accountID && s.SnapshotTime.Equal(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// All returns every stored snapshot.
func (m *MockSnapshotRepository) All() []*domain.BalanceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.BalanceSnapshot(nil), m.snapshots...)
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu      sync.RWMutex
	records []*domain.OutboxRecord

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error
	FetchPendingFunc func(ctx context.Context, tx usecase.Transaction, limit int) ([]*domain.OutboxRecord, error)
	UpdateFunc       func(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockOutboxRepository) FetchPending(ctx context.Context, tx usecase.Transaction, limit int) ([]*domain.OutboxRecord, error) {
	if m.FetchPendingFunc != nil {
		return m.FetchPendingFunc(ctx, tx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []*domain.OutboxRecord
	for _, r := range m.records {
		if r.Status == domain.OutboxStatusPending {
			pending = append(pending, r)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (m *MockOutboxRepository) Update(ctx context.Context, tx usecase.Transaction, record *domain.OutboxRecord) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == record.ID {
			m.records[i] = record
		}
	}
	return nil
}

func (m *MockOutboxRepository) CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.OutboxStatus]int64)
	for _, r := range m.records {
		counts[r.Status]++
	}
	return counts, nil
}

// All returns every stored record.
func (m *MockOutboxRepository) All() []*domain.OutboxRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxRecord(nil), m.records...)
}

// ByAggregate returns records for one aggregate id.
func (m *MockOutboxRepository) ByAggregate(aggregateID string) []*domain.OutboxRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxRecord
	for _, r := range m.records {
		if r.AggregateID == aggregateID {
			out = append(out, r)
		}
	}
	return out
}

// MockLedgerRepository is an in-memory LedgerRepository.
type MockLedgerRepository struct {
	SumPostedBySideFunc func(ctx context.Context) (debits, credits decimal.Decimal, err error)
}

func (m *MockLedgerRepository) SumPostedBySide(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if m.SumPostedBySideFunc != nil {
		return m.SumPostedBySideFunc(ctx)
	}
	return decimal.Zero, decimal.Zero, nil
}

// MockTransaction is a no-op store transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc func(ctx context.Context) error
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	mu     sync.Mutex
	Opened []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Opened = append(m.Opened, tx)
	return tx, nil
}

// MockIDGenerator generates sequential ids.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "id-" + strconv.Itoa(m.counter)
}

// MockClock returns a fixed instant, advanced manually.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockBusPublisher records publishes and fails on demand.
type MockBusPublisher struct {
	mu        sync.Mutex
	Published []PublishedMessage

	PublishFunc func(ctx context.Context, topic, key string, payload []byte) error
}

// PublishedMessage is one recorded publish.
type PublishedMessage struct {
	Topic   string
	Key     string
	Payload []byte
}

func NewMockBusPublisher() *MockBusPublisher {
	return &MockBusPublisher{}
}

func (m *MockBusPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, key, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

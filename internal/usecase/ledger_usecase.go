package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
)

// LedgerUseCase is the posting engine: idempotent atomic creation of
// balanced transactions, and reversal of previously posted ones. Ledger
// data and its outbox record always commit in one store transaction.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	clock       Clock
	retrier     Retrier
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		clock:       clock,
	}
}

// WithRetrier re-runs store transactions on serialization conflicts.
func (uc *LedgerUseCase) WithRetrier(r Retrier) *LedgerUseCase {
	uc.retrier = r
	return uc
}

// EntryDraft is one requested entry of a posting.
type EntryDraft struct {
	AccountID string
	Amount    decimal.Decimal
	Currency  string
	Side      domain.EntrySide
}

// PostTransactionInput is the posting command. ExternalID is the caller's
// idempotency key.
type PostTransactionInput struct {
	ExternalID string
	EventType  domain.EventType
	Entries    []EntryDraft
}

func (in PostTransactionInput) validate() error {
	if in.ExternalID == "" {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidArgument)
	}

	if !in.EventType.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEventType, in.EventType)
	}

	if len(in.Entries) < 2 {
		return fmt.Errorf("%w: has %d", domain.ErrTooFewEntries, len(in.Entries))
	}

	for _, draft := range in.Entries {
		if !draft.Amount.IsPositive() {
			return fmt.Errorf("%w: entry for account %s", domain.ErrInvalidAmount, draft.AccountID)
		}

		if draft.Side != domain.EntrySideDebit && draft.Side != domain.EntrySideCredit {
			return fmt.Errorf("%w: unknown side %q", domain.ErrInvalidArgument, draft.Side)
		}

		if err := domain.ValidateCurrency(draft.Currency); err != nil {
			return err
		}
	}

	return nil
}

// PostTransaction atomically posts a balanced transaction. Repeated calls
// with the same external id return the originally stored transaction.
func (uc *LedgerUseCase) PostTransaction(ctx context.Context, input PostTransactionInput) (*domain.Transaction, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var result *domain.Transaction

	err := uc.retry(ctx, func() error {
		txn, err := uc.postOnce(ctx, input)
		if err != nil {
			return err
		}

		result = txn

		return nil
	})
	if errors.Is(err, domain.ErrDuplicateExternalID) {
		// Insert raced with a concurrent poster using the same external id:
		// the winning row is the idempotent answer.
		return uc.txnRepo.GetByExternalID(ctx, input.ExternalID)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *LedgerUseCase) postOnce(ctx context.Context, input PostTransactionInput) (*domain.Transaction, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existing, err := uc.txnRepo.GetByExternalIDTx(ctx, tx, input.ExternalID)
	if err == nil {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}

		return existing, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	accounts, err := uc.lockAccounts(ctx, tx, entryAccountIDs(input.Entries))
	if err != nil {
		return nil, err
	}

	for _, draft := range input.Entries {
		account := accounts[draft.AccountID]

		if err := account.ValidateCanAcceptEntries(); err != nil {
			return nil, err
		}

		if err := account.ValidateEntryCurrency(draft.Currency); err != nil {
			return nil, err
		}
	}

	now := uc.clock.Now()
	txnID := uc.idGen.Generate()

	entries := make([]*domain.Entry, len(input.Entries))
	for i, draft := range input.Entries {
		amount, err := domain.NewMoney(draft.Amount, draft.Currency)
		if err != nil {
			return nil, err
		}

		entries[i] = &domain.Entry{
			ID:            uc.idGen.Generate(),
			TransactionID: txnID,
			AccountID:     draft.AccountID,
			Amount:        amount,
			Side:          draft.Side,
			EventType:     input.EventType,
			EventTime:     now,
			RecordedAt:    now,
		}
	}

	txn, err := domain.NewTransaction(txnID, input.ExternalID, input.EventType, entries, now)
	if err != nil {
		return nil, err
	}

	if err := txn.Post(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	payload, err := domain.NewTransactionPostedPayload(txn, now)
	if err != nil {
		return nil, err
	}

	record := domain.NewOutboxRecord(uc.idGen.Generate(), txn.ID, domain.EventTransactionPosted, payload, now)
	if err := uc.outboxRepo.Create(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return txn, nil
}

// ReverseTransaction posts the compensating transaction for a POSTED one.
// Repeated calls with the same reversal external id return the stored
// reversal.
func (uc *LedgerUseCase) ReverseTransaction(ctx context.Context, originalID, reversalExternalID string) (*domain.Transaction, error) {
	if reversalExternalID == "" {
		return nil, fmt.Errorf("%w: reversal external id is required", domain.ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	var result *domain.Transaction

	err := uc.retry(ctx, func() error {
		txn, err := uc.reverseOnce(ctx, originalID, reversalExternalID)
		if err != nil {
			return err
		}

		result = txn

		return nil
	})
	if errors.Is(err, domain.ErrDuplicateExternalID) {
		return uc.txnRepo.GetByExternalID(ctx, reversalExternalID)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *LedgerUseCase) reverseOnce(ctx context.Context, originalID, reversalExternalID string) (*domain.Transaction, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existing, err := uc.txnRepo.GetByExternalIDTx(ctx, tx, reversalExternalID)
	if err == nil {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}

		return existing, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, err
	}

	original, err := uc.txnRepo.GetByIDTx(ctx, tx, originalID)
	if err != nil {
		return nil, err
	}

	if !original.CanBeReversed() {
		return nil, fmt.Errorf("%w: transaction %s is %s", domain.ErrNotReversible, original.ID, original.Status)
	}

	accounts, err := uc.lockAccounts(ctx, tx, original.AccountIDs())
	if err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if err := account.ValidateCanAcceptEntries(); err != nil {
			return nil, err
		}
	}

	now := uc.clock.Now()
	reversalID := uc.idGen.Generate()

	mirrors := make([]*domain.Entry, len(original.Entries))
	for i, entry := range original.Entries {
		mirrors[i] = entry.Reversal(uc.idGen.Generate(), reversalID, now)
	}

	// Balanced by construction when the original was; validated again by
	// NewTransaction regardless.
	reversal, err := domain.NewTransaction(reversalID, reversalExternalID, domain.EventTypeReversal, mirrors, now)
	if err != nil {
		return nil, err
	}

	if err := reversal.Post(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(ctx, tx, reversal); err != nil {
		return nil, err
	}

	if err := original.MarkReversed(reversalID); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.UpdateStatus(ctx, tx, original.ID, domain.TransactionStatusReversed, &reversalID); err != nil {
		return nil, err
	}

	payload, err := domain.NewTransactionReversedPayload(reversalID, original.ID, now)
	if err != nil {
		return nil, err
	}

	record := domain.NewOutboxRecord(uc.idGen.Generate(), reversalID, domain.EventTransactionReversed, payload, now)
	if err := uc.outboxRepo.Create(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return reversal, nil
}

// GetTransaction retrieves a transaction with its entries.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txnRepo.GetByID(ctx, id)
}

// lockAccounts write-locks the given accounts in ascending id order. The
// fixed order is the deadlock-avoidance discipline shared by all writers.
func (uc *LedgerUseCase) lockAccounts(ctx context.Context, tx Transaction, ids []string) (map[string]*domain.Account, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, sorted)
	if err != nil {
		return nil, err
	}

	if len(accounts) != len(sorted) {
		return nil, domain.ErrAccountNotFound
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}

	return byID, nil
}

func (uc *LedgerUseCase) retry(ctx context.Context, operation func() error) error {
	if uc.retrier == nil {
		return operation()
	}

	return uc.retrier.Retry(ctx, operation)
}

func entryAccountIDs(drafts []EntryDraft) []string {
	seen := make(map[string]bool, len(drafts))

	var ids []string
	for _, draft := range drafts {
		if !seen[draft.AccountID] {
			seen[draft.AccountID] = true
			ids = append(ids, draft.AccountID)
		}
	}

	return ids
}

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
	"github.com/veltor/bankledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	accountRepo *mocks.MockAccountRepository
	txnRepo     *mocks.MockTransactionRepository
	outboxRepo  *mocks.MockOutboxRepository
	clock       *mocks.MockClock
	uc          *usecase.LedgerUseCase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	accountRepo := mocks.NewMockAccountRepository()
	txnRepo := mocks.NewMockTransactionRepository()
	outboxRepo := mocks.NewMockOutboxRepository()
	clock := mocks.NewMockClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	uc := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		accountRepo,
		txnRepo,
		outboxRepo,
		mocks.NewMockIDGenerator(),
		clock,
	)

	return &ledgerFixture{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		outboxRepo:  outboxRepo,
		clock:       clock,
		uc:          uc,
	}
}

func (f *ledgerFixture) addAccount(id string, accountType domain.AccountType, currency string, status domain.AccountStatus) {
	f.accountRepo.Put(&domain.Account{
		ID:       id,
		Type:     accountType,
		Currency: currency,
		Status:   status,
	})
}

func depositInput(externalID string, amount int64) usecase.PostTransactionInput {
	return usecase.PostTransactionInput{
		ExternalID: externalID,
		EventType:  domain.EventTypeDeposit,
		Entries: []usecase.EntryDraft{
			{AccountID: "acc-a", Amount: decimal.NewFromInt(amount), Currency: "BRL", Side: domain.EntrySideDebit},
			{AccountID: "acc-b", Amount: decimal.NewFromInt(amount), Currency: "BRL", Side: domain.EntrySideCredit},
		},
	}
}

func TestLedgerUseCase_PostTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("posts balanced transaction with outbox record", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		txn, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if txn.Status != domain.TransactionStatusPosted {
			t.Errorf("expected POSTED, got %s", txn.Status)
		}
		if len(txn.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(txn.Entries))
		}

		records := f.outboxRepo.ByAggregate(txn.ID)
		if len(records) != 1 {
			t.Fatalf("expected 1 outbox record, got %d", len(records))
		}
		if records[0].EventType != domain.EventTransactionPosted {
			t.Errorf("expected TRANSACTION_POSTED, got %s", records[0].EventType)
		}
		if records[0].Status != domain.OutboxStatusPending {
			t.Errorf("expected PENDING record, got %s", records[0].Status)
		}

		var payload domain.TransactionPostedEvent
		if err := json.Unmarshal(records[0].Payload, &payload); err != nil {
			t.Fatalf("payload does not deserialize: %v", err)
		}
		if payload.TransactionID != txn.ID || payload.ExternalID != "x1" {
			t.Error("payload does not describe the transaction")
		}
	})

	t.Run("repeated external id returns stored transaction", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		first, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected same transaction id, got %s and %s", first.ID, second.ID)
		}

		if got := len(f.outboxRepo.ByAggregate(first.ID)); got != 1 {
			t.Errorf("expected exactly 1 outbox record, got %d", got)
		}
	})

	t.Run("duplicate insert race falls back to idempotent read", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		stored, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Simulate losing the idempotency-check race: the in-transaction
		// read misses, the insert then hits the unique index.
		calls := 0
		f.txnRepo.GetByExternalIDFunc = func(ctx context.Context, externalID string) (*domain.Transaction, error) {
			calls++
			if calls == 1 {
				return nil, domain.ErrTransactionNotFound
			}
			f.txnRepo.GetByExternalIDFunc = nil
			return f.txnRepo.GetByExternalID(ctx, externalID)
		}

		again, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.ID != stored.ID {
			t.Errorf("expected stored transaction %s, got %s", stored.ID, again.ID)
		}
	})

	t.Run("unbalanced entries rejected without persistence", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		input := usecase.PostTransactionInput{
			ExternalID: "x-bad",
			EventType:  domain.EventTypeDeposit,
			Entries: []usecase.EntryDraft{
				{AccountID: "acc-a", Amount: decimal.NewFromInt(100), Currency: "BRL", Side: domain.EntrySideDebit},
				{AccountID: "acc-b", Amount: decimal.NewFromInt(50), Currency: "BRL", Side: domain.EntrySideCredit},
			},
		}

		_, err := f.uc.PostTransaction(ctx, input)
		if !errors.Is(err, domain.ErrUnbalanced) {
			t.Fatalf("expected ErrUnbalanced, got %v", err)
		}

		if _, err := f.txnRepo.GetByExternalID(ctx, "x-bad"); !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Error("expected no transaction persisted")
		}
		if len(f.outboxRepo.All()) != 0 {
			t.Error("expected no outbox record persisted")
		}
	})

	t.Run("entry currency must match account currency", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		input := usecase.PostTransactionInput{
			ExternalID: "x-usd",
			EventType:  domain.EventTypeDeposit,
			Entries: []usecase.EntryDraft{
				{AccountID: "acc-a", Amount: decimal.NewFromInt(10), Currency: "USD", Side: domain.EntrySideDebit},
				{AccountID: "acc-b", Amount: decimal.NewFromInt(10), Currency: "USD", Side: domain.EntrySideCredit},
			},
		}

		_, err := f.uc.PostTransaction(ctx, input)
		if !errors.Is(err, domain.ErrCurrencyMismatch) {
			t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
		}
	})

	t.Run("missing account rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)

		_, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("blocked account rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusBlocked)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		_, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if !errors.Is(err, domain.ErrAccountNotActive) {
			t.Fatalf("expected ErrAccountNotActive, got %v", err)
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.uc.PostTransaction(ctx, depositInput("x1", 0))
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("single entry rejected", func(t *testing.T) {
		f := newLedgerFixture(t)

		input := usecase.PostTransactionInput{
			ExternalID: "x1",
			EventType:  domain.EventTypeDeposit,
			Entries: []usecase.EntryDraft{
				{AccountID: "acc-a", Amount: decimal.NewFromInt(10), Currency: "BRL", Side: domain.EntrySideDebit},
			},
		}

		_, err := f.uc.PostTransaction(ctx, input)
		if !errors.Is(err, domain.ErrTooFewEntries) {
			t.Fatalf("expected ErrTooFewEntries, got %v", err)
		}
	})

	t.Run("locks accounts in ascending id order", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)

		var lockedIDs []string
		f.accountRepo.GetByIDsForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
			lockedIDs = ids
			f.accountRepo.GetByIDsForUpdateFunc = nil
			return f.accountRepo.GetByIDsForUpdate(ctx, tx, ids)
		}

		input := usecase.PostTransactionInput{
			ExternalID: "x-order",
			EventType:  domain.EventTypeTransfer,
			Entries: []usecase.EntryDraft{
				{AccountID: "acc-b", Amount: decimal.NewFromInt(10), Currency: "BRL", Side: domain.EntrySideCredit},
				{AccountID: "acc-a", Amount: decimal.NewFromInt(10), Currency: "BRL", Side: domain.EntrySideDebit},
			},
		}

		if _, err := f.uc.PostTransaction(ctx, input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(lockedIDs) != 2 || lockedIDs[0] != "acc-a" || lockedIDs[1] != "acc-b" {
			t.Errorf("expected ascending lock order [acc-a acc-b], got %v", lockedIDs)
		}
	})
}

func TestLedgerUseCase_ReverseTransaction(t *testing.T) {
	ctx := context.Background()

	post := func(t *testing.T, f *ledgerFixture) *domain.Transaction {
		t.Helper()
		txn, err := f.uc.PostTransaction(ctx, depositInput("x1", 100))
		if err != nil {
			t.Fatalf("posting fixture transaction: %v", err)
		}
		return txn
	}

	t.Run("creates mirror transaction and links original", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)
		original := post(t, f)

		f.clock.Advance(time.Minute)

		reversal, err := f.uc.ReverseTransaction(ctx, original.ID, "r1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if reversal.EventType != domain.EventTypeReversal {
			t.Errorf("expected REVERSAL, got %s", reversal.EventType)
		}
		if reversal.Status != domain.TransactionStatusPosted {
			t.Errorf("expected POSTED, got %s", reversal.Status)
		}

		for i, mirror := range reversal.Entries {
			if mirror.Side != original.Entries[i].Side.Opposite() {
				t.Error("expected flipped entry sides")
			}
			if !mirror.Amount.Equal(original.Entries[i].Amount) {
				t.Error("expected equal amounts")
			}
		}

		stored, err := f.txnRepo.GetByID(ctx, original.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != domain.TransactionStatusReversed {
			t.Errorf("expected original REVERSED, got %s", stored.Status)
		}
		if stored.ReversalTransactionID == nil || *stored.ReversalTransactionID != reversal.ID {
			t.Error("expected reversal id link on original")
		}

		records := f.outboxRepo.ByAggregate(reversal.ID)
		if len(records) != 1 || records[0].EventType != domain.EventTransactionReversed {
			t.Fatalf("expected one TRANSACTION_REVERSED record, got %v", records)
		}
	})

	t.Run("repeated reversal external id is idempotent", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)
		original := post(t, f)

		first, err := f.uc.ReverseTransaction(ctx, original.ID, "r1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := f.uc.ReverseTransaction(ctx, original.ID, "r1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("expected same reversal id, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("unknown transaction rejected", func(t *testing.T) {
		f := newLedgerFixture(t)

		_, err := f.uc.ReverseTransaction(ctx, "missing", "r1")
		if !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Fatalf("expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("already reversed transaction rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset, "BRL", domain.AccountStatusActive)
		f.addAccount("acc-b", domain.AccountTypeLiability, "BRL", domain.AccountStatusActive)
		original := post(t, f)

		if _, err := f.uc.ReverseTransaction(ctx, original.ID, "r1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := f.uc.ReverseTransaction(ctx, original.ID, "r2")
		if !errors.Is(err, domain.ErrNotReversible) {
			t.Fatalf("expected ErrNotReversible, got %v", err)
		}
	})
}

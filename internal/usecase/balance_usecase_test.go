package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
	"github.com/veltor/bankledger/internal/usecase/mocks"
)

type balanceFixture struct {
	accountRepo  *mocks.MockAccountRepository
	txnRepo      *mocks.MockTransactionRepository
	entryRepo    *mocks.MockEntryRepository
	snapshotRepo *mocks.MockSnapshotRepository
	clock        *mocks.MockClock
	ledger       *usecase.LedgerUseCase
	balances     *usecase.BalanceUseCase
}

func newBalanceFixture(t *testing.T) *balanceFixture {
	t.Helper()

	accountRepo := mocks.NewMockAccountRepository()
	txnRepo := mocks.NewMockTransactionRepository()
	entryRepo := mocks.NewMockEntryRepository(txnRepo)
	snapshotRepo := mocks.NewMockSnapshotRepository()
	clock := mocks.NewMockClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	ledger := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		accountRepo,
		txnRepo,
		mocks.NewMockOutboxRepository(),
		mocks.NewMockIDGenerator(),
		clock,
	)

	balances := usecase.NewBalanceUseCase(accountRepo, entryRepo, snapshotRepo, clock)

	return &balanceFixture{
		accountRepo:  accountRepo,
		txnRepo:      txnRepo,
		entryRepo:    entryRepo,
		snapshotRepo: snapshotRepo,
		clock:        clock,
		ledger:       ledger,
		balances:     balances,
	}
}

func (f *balanceFixture) addAccount(id string, accountType domain.AccountType) {
	f.accountRepo.Put(&domain.Account{
		ID:       id,
		Type:     accountType,
		Currency: "BRL",
		Status:   domain.AccountStatusActive,
	})
}

func (f *balanceFixture) deposit(t *testing.T, externalID string, amount int64) {
	t.Helper()

	_, err := f.ledger.PostTransaction(context.Background(), usecase.PostTransactionInput{
		ExternalID: externalID,
		EventType:  domain.EventTypeDeposit,
		Entries: []usecase.EntryDraft{
			{AccountID: "acc-a", Amount: decimal.NewFromInt(amount), Currency: "BRL", Side: domain.EntrySideDebit},
			{AccountID: "acc-b", Amount: decimal.NewFromInt(amount), Currency: "BRL", Side: domain.EntrySideCredit},
		},
	})
	if err != nil {
		t.Fatalf("posting deposit: %v", err)
	}
}

func TestBalanceUseCase_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("sums entries by classification", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)
		f.addAccount("acc-b", domain.AccountTypeLiability)

		f.deposit(t, "x1", 100)
		f.clock.Advance(time.Minute)
		f.deposit(t, "x2", 50)

		got, err := f.balances.GetBalance(ctx, "acc-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "150.00 BRL" {
			t.Errorf("expected 150.00 BRL, got %s", got)
		}

		// The liability account grows on the credit side.
		got, err = f.balances.GetBalance(ctx, "acc-b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "150.00 BRL" {
			t.Errorf("expected 150.00 BRL, got %s", got)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newBalanceFixture(t)

		_, err := f.balances.GetBalance(ctx, "missing")
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("empty account is zero in account currency", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)

		got, err := f.balances.GetBalance(ctx, "acc-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "0.00 BRL" {
			t.Errorf("expected 0.00 BRL, got %s", got)
		}
	})
}

func TestBalanceUseCase_GetBalanceAsOf(t *testing.T) {
	ctx := context.Background()

	t.Run("cutoff excludes later entries, includes boundary", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)
		f.addAccount("acc-b", domain.AccountTypeLiability)

		f.deposit(t, "x1", 100)
		boundary := f.clock.Now()

		f.clock.Advance(time.Hour)
		f.deposit(t, "x2", 50)

		got, err := f.balances.GetBalanceAsOf(ctx, "acc-a", boundary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "100.00 BRL" {
			t.Errorf("expected 100.00 BRL, got %s", got)
		}
	})

	t.Run("epoch cutoff is zero", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)
		f.addAccount("acc-b", domain.AccountTypeLiability)
		f.deposit(t, "x1", 100)

		got, err := f.balances.GetBalanceAsOf(ctx, "acc-a", time.Unix(0, 0).UTC())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("expected zero, got %s", got)
		}
	})

	t.Run("seeds from latest snapshot and reads only later entries", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)
		f.addAccount("acc-b", domain.AccountTypeLiability)

		for i := 0; i < 10; i++ {
			f.deposit(t, "x-pre-"+string(rune('0'+i)), 100)
			f.clock.Advance(time.Minute)
		}

		snapTime := f.clock.Now()
		snapshot, err := domain.NewBalanceSnapshot(
			"snap-1", "acc-a",
			domain.MustMoney(decimal.NewFromInt(1000), "BRL"),
			snapTime, snapTime,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.snapshotRepo.Create(ctx, nil, snapshot); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var loadedAfter *time.Time
		f.entryRepo.ListPostedByAccountFunc = func(ctx context.Context, accountID string, after *time.Time, until time.Time) ([]*domain.Entry, error) {
			loadedAfter = after
			f.entryRepo.ListPostedByAccountFunc = nil
			return f.entryRepo.ListPostedByAccount(ctx, accountID, after, until)
		}

		for i := 0; i < 5; i++ {
			f.clock.Advance(time.Minute)
			f.deposit(t, "x-post-"+string(rune('0'+i)), 100)
		}

		got, err := f.balances.GetBalance(ctx, "acc-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "1500.00 BRL" {
			t.Errorf("expected 1500.00 BRL, got %s", got)
		}

		if loadedAfter == nil || !loadedAfter.Equal(snapTime) {
			t.Error("expected entry load lower bound at snapshot time")
		}
	})

	t.Run("balance delta equals signed entry sum between cutoffs", func(t *testing.T) {
		f := newBalanceFixture(t)
		f.addAccount("acc-a", domain.AccountTypeAsset)
		f.addAccount("acc-b", domain.AccountTypeLiability)

		f.deposit(t, "x1", 100)
		t1 := f.clock.Now()

		f.clock.Advance(time.Hour)
		f.deposit(t, "x2", 30)
		f.clock.Advance(time.Hour)
		f.deposit(t, "x3", 20)
		t2 := f.clock.Now()

		b1, err := f.balances.GetBalanceAsOf(ctx, "acc-a", t1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b2, err := f.balances.GetBalanceAsOf(ctx, "acc-a", t2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		delta, err := b2.Subtract(b1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delta.String() != "50.00 BRL" {
			t.Errorf("expected delta 50.00 BRL, got %s", delta)
		}
	})
}

func TestBalanceUseCase_ReversalRestoresBalance(t *testing.T) {
	ctx := context.Background()

	f := newBalanceFixture(t)
	f.addAccount("acc-a", domain.AccountTypeAsset)
	f.addAccount("acc-b", domain.AccountTypeLiability)

	f.deposit(t, "x1", 100)
	before, err := f.balances.GetBalance(ctx, "acc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.clock.Advance(time.Minute)
	txn, err := f.ledger.PostTransaction(ctx, usecase.PostTransactionInput{
		ExternalID: "x2",
		EventType:  domain.EventTypeTransfer,
		Entries: []usecase.EntryDraft{
			{AccountID: "acc-a", Amount: decimal.NewFromInt(30), Currency: "BRL", Side: domain.EntrySideCredit},
			{AccountID: "acc-b", Amount: decimal.NewFromInt(30), Currency: "BRL", Side: domain.EntrySideDebit},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mid, err := f.balances.GetBalance(ctx, "acc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mid.String() != "70.00 BRL" {
		t.Errorf("expected 70.00 BRL after transfer, got %s", mid)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.ledger.ReverseTransaction(ctx, txn.ID, "r2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := f.balances.GetBalance(ctx, "acc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.Equal(before) {
		t.Errorf("expected balance restored to %s, got %s", before, after)
	}
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/veltor/bankledger/internal/domain"
)

// BalanceUseCase derives account balances from entries, seeded by the
// latest usable snapshot. Balances are never materialized.
type BalanceUseCase struct {
	accountRepo  AccountRepository
	entryRepo    EntryRepository
	snapshotRepo SnapshotRepository
	clock        Clock
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	snapshotRepo SnapshotRepository,
	clock Clock,
) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo:  accountRepo,
		entryRepo:    entryRepo,
		snapshotRepo: snapshotRepo,
		clock:        clock,
	}
}

// GetBalance returns the current balance of an account.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, accountID string) (domain.Money, error) {
	return uc.balanceAsOf(ctx, accountID, uc.clock.Now())
}

// GetBalanceAsOf returns the balance of an account at the cutoff instant.
func (uc *BalanceUseCase) GetBalanceAsOf(ctx context.Context, accountID string, cutoff time.Time) (domain.Money, error) {
	return uc.balanceAsOf(ctx, accountID, cutoff)
}

func (uc *BalanceUseCase) balanceAsOf(ctx context.Context, accountID string, cutoff time.Time) (domain.Money, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.Money{}, err
	}

	balance := domain.ZeroMoney(account.Currency)

	// The "> snapshot time" lower bound is strict so recomputation across
	// identical cutoffs stays idempotent.
	var after *time.Time

	snapshot, err := uc.snapshotRepo.GetLatest(ctx, accountID, cutoff)
	switch {
	case err == nil:
		balance = snapshot.Balance
		after = &snapshot.SnapshotTime
	case errors.Is(err, domain.ErrSnapshotNotFound):
	default:
		return domain.Money{}, err
	}

	entries, err := uc.entryRepo.ListPostedByAccount(ctx, accountID, after, cutoff)
	if err != nil {
		return domain.Money{}, err
	}

	for _, entry := range entries {
		balance, err = ApplyEntry(balance, entry, account.Type)
		if err != nil {
			return domain.Money{}, err
		}
	}

	return balance, nil
}

// ApplyEntry folds one posted entry into a running balance. Whether an
// entry side increases or decreases the balance depends on the account
// classification: ASSET and EXPENSE grow on debit, the rest on credit.
func ApplyEntry(balance domain.Money, entry *domain.Entry, accountType domain.AccountType) (domain.Money, error) {
	if entry.IsDebit() == accountType.DebitIncreases() {
		return balance.Add(entry.Amount)
	}

	return balance.Subtract(entry.Amount)
}

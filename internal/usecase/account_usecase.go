package usecase

import (
	"context"

	"github.com/veltor/bankledger/internal/domain"
)

// AccountUseCase administers accounts: creation and the
// ACTIVE/BLOCKED/CLOSED state machine. Accounts are never deleted.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	idGen       IDGenerator
	clock       Clock
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(txManager TransactionManager, accountRepo AccountRepository, idGen IDGenerator, clock Clock) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		idGen:       idGen,
		clock:       clock,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Type     domain.AccountType
	Currency string
}

// CreateAccount creates a new ACTIVE account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	account, err := domain.NewAccount(uc.idGen.Generate(), input.Type, input.Currency, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if input.Limit <= 0 {
		input.Limit = DefaultPageSize
	}

	if input.Limit > MaxPageSize {
		input.Limit = MaxPageSize
	}

	if input.Offset < 0 {
		input.Offset = 0
	}

	return uc.accountRepo.List(ctx, input.Limit, input.Offset)
}

// BlockAccount transitions an ACTIVE account to BLOCKED.
func (uc *AccountUseCase) BlockAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.transition(ctx, id, (*domain.Account).Block)
}

// UnblockAccount transitions a BLOCKED account back to ACTIVE.
func (uc *AccountUseCase) UnblockAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.transition(ctx, id, (*domain.Account).Unblock)
}

// CloseAccount transitions an account to the terminal CLOSED status. The
// balance is not required to be zero.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.transition(ctx, id, (*domain.Account).Close)
}

// transition applies a status change under the account's row lock so
// concurrent admin calls serialize.
func (uc *AccountUseCase) transition(ctx context.Context, id string, change func(*domain.Account) error) (*domain.Account, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := change(account); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := uc.accountRepo.UpdateStatus(ctx, tx, id, account.Status, now); err != nil {
		return nil, err
	}

	account.UpdatedAt = now

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
	"github.com/veltor/bankledger/internal/usecase/mocks"
)

func newAccountUseCase(accountRepo *mocks.MockAccountRepository) *usecase.AccountUseCase {
	return usecase.NewAccountUseCase(
		mocks.NewMockTransactionManager(),
		accountRepo,
		mocks.NewMockIDGenerator(),
		mocks.NewMockClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)),
	)
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("creates active account", func(t *testing.T) {
		repo := mocks.NewMockAccountRepository()
		uc := newAccountUseCase(repo)

		account, err := uc.CreateAccount(ctx, usecase.CreateAccountInput{
			Type:     domain.AccountTypeAsset,
			Currency: "BRL",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if account.Status != domain.AccountStatusActive {
			t.Errorf("expected ACTIVE, got %s", account.Status)
		}

		stored, err := repo.GetByID(ctx, account.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Currency != "BRL" {
			t.Errorf("expected BRL, got %s", stored.Currency)
		}
	})

	t.Run("rejects bad type", func(t *testing.T) {
		uc := newAccountUseCase(mocks.NewMockAccountRepository())

		_, err := uc.CreateAccount(ctx, usecase.CreateAccountInput{
			Type:     domain.AccountType("CHECKING"),
			Currency: "BRL",
		})
		if !errors.Is(err, domain.ErrInvalidAccountType) {
			t.Fatalf("expected ErrInvalidAccountType, got %v", err)
		}
	})
}

func TestAccountUseCase_Transitions(t *testing.T) {
	ctx := context.Background()

	seed := func(status domain.AccountStatus) (*usecase.AccountUseCase, *mocks.MockAccountRepository) {
		repo := mocks.NewMockAccountRepository()
		repo.Put(&domain.Account{ID: "acc-1", Type: domain.AccountTypeAsset, Currency: "BRL", Status: status})
		return newAccountUseCase(repo), repo
	}

	t.Run("block active", func(t *testing.T) {
		uc, repo := seed(domain.AccountStatusActive)

		account, err := uc.BlockAccount(ctx, "acc-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account.Status != domain.AccountStatusBlocked {
			t.Errorf("expected BLOCKED, got %s", account.Status)
		}

		stored, _ := repo.GetByID(ctx, "acc-1")
		if stored.Status != domain.AccountStatusBlocked {
			t.Error("expected persisted status BLOCKED")
		}
	})

	t.Run("unblock blocked", func(t *testing.T) {
		uc, _ := seed(domain.AccountStatusBlocked)

		account, err := uc.UnblockAccount(ctx, "acc-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account.Status != domain.AccountStatusActive {
			t.Errorf("expected ACTIVE, got %s", account.Status)
		}
	})

	t.Run("close is terminal", func(t *testing.T) {
		uc, _ := seed(domain.AccountStatusActive)

		if _, err := uc.CloseAccount(ctx, "acc-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := uc.UnblockAccount(ctx, "acc-1")
		if !errors.Is(err, domain.ErrInvalidAccountStateTransition) {
			t.Fatalf("expected ErrInvalidAccountStateTransition, got %v", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		uc, _ := seed(domain.AccountStatusActive)

		_, err := uc.BlockAccount(ctx, "missing")
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

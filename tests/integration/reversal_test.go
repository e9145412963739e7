package integration

import (
	"context"
	"testing"

	"github.com/veltor/bankledger/internal/domain"
)

func TestReversalRestoresBalances(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	accA := e.db.CreateTestAccount(ctx, domain.AccountTypeAsset, "BRL")
	accB := e.db.CreateTestAccount(ctx, domain.AccountTypeLiability, "BRL")
	accC := e.db.CreateTestAccount(ctx, domain.AccountTypeAsset, "BRL")

	postPair(t, e, "x1", domain.EventTypeDeposit, accA.ID, accB.ID, 100)
	transfer := postPair(t, e, "x2", domain.EventTypeTransfer, accC.ID, accA.ID, 30)

	reversal, err := e.ledger.ReverseTransaction(ctx, transfer.ID, "r2")
	if err != nil {
		t.Fatalf("reversing: %v", err)
	}

	if reversal.EventType != domain.EventTypeReversal {
		t.Errorf("expected REVERSAL, got %s", reversal.EventType)
	}

	original, err := e.ledger.GetTransaction(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("loading original: %v", err)
	}
	if original.Status != domain.TransactionStatusReversed {
		t.Errorf("expected REVERSED, got %s", original.Status)
	}
	if original.ReversalTransactionID == nil || *original.ReversalTransactionID != reversal.ID {
		t.Error("expected reversal link on original")
	}

	balA, err := e.balances.GetBalance(ctx, accA.ID)
	if err != nil {
		t.Fatalf("balance A: %v", err)
	}
	if balA.String() != "100.00 BRL" {
		t.Errorf("expected 100.00 BRL restored, got %s", balA)
	}

	balC, err := e.balances.GetBalance(ctx, accC.ID)
	if err != nil {
		t.Fatalf("balance C: %v", err)
	}
	if !balC.IsZero() {
		t.Errorf("expected zero, got %s", balC)
	}

	// Reversal idempotency: same reversalExternalId returns same reversal.
	again, err := e.ledger.ReverseTransaction(ctx, transfer.ID, "r2")
	if err != nil {
		t.Fatalf("repeat reversal: %v", err)
	}
	if again.ID != reversal.ID {
		t.Errorf("expected same reversal, got %s and %s", reversal.ID, again.ID)
	}
}

package usecase

import (
	"context"
	"errors"
)

// ErrInconsistentLedger is returned when posted debits do not equal posted
// credits across the whole ledger.
var ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")

// ConsistencyUseCase verifies the global double-entry invariant.
type ConsistencyUseCase struct {
	ledgerRepo LedgerRepository
}

// NewConsistencyUseCase creates a new ConsistencyUseCase.
func NewConsistencyUseCase(ledgerRepo LedgerRepository) *ConsistencyUseCase {
	return &ConsistencyUseCase{ledgerRepo: ledgerRepo}
}

// CheckConsistency sums the entries of POSTED and REVERSED transactions by
// side. A balanced ledger has equal
// totals; anything else means corruption and warrants operator attention.
func (uc *ConsistencyUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	debits, credits, err := uc.ledgerRepo.SumPostedBySide(ctx)
	if err != nil {
		return false, err
	}

	if !debits.Equal(credits) {
		return false, ErrInconsistentLedger
	}

	return true, nil
}

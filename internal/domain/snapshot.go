package domain

import (
	"fmt"
	"time"
)

// BalanceSnapshot is a cached balance for an account at a cutoff instant.
// Snapshots are immutable and unique per (account id, snapshot time).
type BalanceSnapshot struct {
	ID           string
	AccountID    string
	Balance      Money
	SnapshotTime time.Time
	LastEntryID  *string
	CreatedAt    time.Time
}

// NewBalanceSnapshot creates a snapshot. The cutoff may not lie in the
// future relative to now.
func NewBalanceSnapshot(id, accountID string, balance Money, snapshotTime, now time.Time) (*BalanceSnapshot, error) {
	if snapshotTime.After(now) {
		return nil, fmt.Errorf("%w: cutoff %s is after %s", ErrFutureSnapshotCutoff, snapshotTime, now)
	}

	return &BalanceSnapshot{
		ID:           id,
		AccountID:    accountID,
		Balance:      balance,
		SnapshotTime: snapshotTime,
		CreatedAt:    now,
	}, nil
}

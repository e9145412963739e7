package domain

import "errors"

var (
	// ErrInvalidArgument covers malformed caller input not captured by a
	// more specific kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// Money errors
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrNegativeResult   = errors.New("operation would produce a negative amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("invalid currency code")

	// Account errors
	ErrAccountNotFound               = errors.New("account not found")
	ErrAccountNotActive              = errors.New("account is not active")
	ErrInvalidAccountType            = errors.New("invalid account type")
	ErrInvalidAccountStateTransition = errors.New("invalid account state transition")

	// Transaction errors
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrDuplicateExternalID   = errors.New("external id already used by another transaction")
	ErrNotReversible         = errors.New("transaction is not in a reversible state")
	ErrInvalidEventType      = errors.New("invalid event type")
	ErrInvalidStatusChange   = errors.New("invalid transaction status change")
	ErrTooFewEntries         = errors.New("transaction must have at least 2 entries")
	ErrUnbalanced            = errors.New("debits and credits are not balanced")
	ErrCurrencySetMismatch   = errors.New("debit and credit currency sets differ")
	ErrEntryOwnershipInvalid = errors.New("entry does not belong to transaction")

	// Snapshot errors
	ErrSnapshotNotFound     = errors.New("snapshot not found")
	ErrDuplicateSnapshot    = errors.New("snapshot already exists for cutoff")
	ErrFutureSnapshotCutoff = errors.New("snapshot cutoff cannot be in the future")
)

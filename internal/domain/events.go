package domain

import (
	"encoding/json"
	"time"
)

// Outbox event types.
const (
	EventTransactionPosted   = "TRANSACTION_POSTED"
	EventTransactionReversed = "TRANSACTION_REVERSED"
)

// TransactionPostedEvent is the bus payload emitted when a transaction is
// posted. The schema is declared once here; payload bytes are produced at
// posting time and stored opaque in the outbox row.
type TransactionPostedEvent struct {
	TransactionID string             `json:"transactionId"`
	ExternalID    string             `json:"externalId"`
	EventType     string             `json:"eventType"`
	Entries       []PostedEntryEvent `json:"entries"`
	Timestamp     time.Time          `json:"timestamp"`
}

// PostedEntryEvent is one entry inside a TransactionPostedEvent. Amount is a
// decimal rendered as string to survive consumers without decimal types.
type PostedEntryEvent struct {
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Side      string `json:"side"`
}

// TransactionReversedEvent is the bus payload emitted when a transaction is
// reversed. The aggregate is the reversal transaction.
type TransactionReversedEvent struct {
	TransactionID         string    `json:"transactionId"`
	OriginalTransactionID string    `json:"originalTransactionId"`
	Timestamp             time.Time `json:"timestamp"`
}

// NewTransactionPostedPayload serializes the posted-event payload for a
// transaction.
func NewTransactionPostedPayload(t *Transaction, at time.Time) ([]byte, error) {
	entries := make([]PostedEntryEvent, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = PostedEntryEvent{
			AccountID: e.AccountID,
			Amount:    e.Amount.Amount().String(),
			Currency:  e.Amount.Currency(),
			Side:      string(e.Side),
		}
	}

	return json.Marshal(TransactionPostedEvent{
		TransactionID: t.ID,
		ExternalID:    t.ExternalID,
		EventType:     string(t.EventType),
		Entries:       entries,
		Timestamp:     at,
	})
}

// NewTransactionReversedPayload serializes the reversed-event payload.
func NewTransactionReversedPayload(reversalID, originalID string, at time.Time) ([]byte, error) {
	return json.Marshal(TransactionReversedEvent{
		TransactionID:         reversalID,
		OriginalTransactionID: originalID,
		Timestamp:             at,
	})
}

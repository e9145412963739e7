package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          string    `json:"id"`
	AccountType string    `json:"accountType"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		AccountType: string(a.Type),
		Currency:    a.Currency,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}

	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Side          string          `json:"side"`
	EventType     string          `json:"eventType"`
	EventTime     time.Time       `json:"eventTime"`
	RecordedAt    time.Time       `json:"recordedAt"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                    string           `json:"id"`
	ExternalID            string           `json:"externalId"`
	EventType             string           `json:"eventType"`
	Status                string           `json:"status"`
	CreatedAt             time.Time        `json:"createdAt"`
	ReversalTransactionID *string          `json:"reversalTransactionId,omitempty"`
	Entries               []*EntryResponse `json:"entries"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	entries := make([]*EntryResponse, len(t.Entries))
	for i, e := range t.Entries {
		entries[i] = &EntryResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Amount:        e.Amount.Amount(),
			Currency:      e.Amount.Currency(),
			Side:          string(e.Side),
			EventType:     string(e.EventType),
			EventTime:     e.EventTime,
			RecordedAt:    e.RecordedAt,
		}
	}

	return &TransactionResponse{
		ID:                    t.ID,
		ExternalID:            t.ExternalID,
		EventType:             string(t.EventType),
		Status:                string(t.Status),
		CreatedAt:             t.CreatedAt,
		ReversalTransactionID: t.ReversalTransactionID,
		Entries:               entries,
	}
}

// BalanceResponse represents a balance in API responses.
type BalanceResponse struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	AsOf      *time.Time      `json:"asOf,omitempty"`
}

// BalanceFromDomain converts a money value to a balance response.
func BalanceFromDomain(accountID string, balance domain.Money, asOf *time.Time) *BalanceResponse {
	return &BalanceResponse{
		AccountID: accountID,
		Balance:   balance.Amount(),
		Currency:  balance.Currency(),
		AsOf:      asOf,
	}
}

// SnapshotRunResponse summarizes a manual snapshot run.
type SnapshotRunResponse struct {
	Cutoff  time.Time `json:"cutoff"`
	Created int       `json:"created"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
}

// OutboxStatusResponse reports outbox record counts by status.
type OutboxStatusResponse struct {
	Pending   int64 `json:"pending"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Problem is an RFC 7807 problem details document.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

package dto

import (
	"github.com/shopspring/decimal"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	AccountType string `json:"accountType"`
	Currency    string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Type:     domain.AccountType(r.AccountType),
		Currency: r.Currency,
	}
}

// EntryRequest is one entry draft of a posting request.
type EntryRequest struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Side      string          `json:"side"`
}

// PostTransactionRequest represents a request to post a transaction.
type PostTransactionRequest struct {
	ExternalID string         `json:"externalId"`
	EventType  string         `json:"eventType"`
	Entries    []EntryRequest `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransactionRequest) ToUseCaseInput() usecase.PostTransactionInput {
	entries := make([]usecase.EntryDraft, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = usecase.EntryDraft{
			AccountID: e.AccountID,
			Amount:    e.Amount,
			Currency:  e.Currency,
			Side:      domain.EntrySide(e.Side),
		}
	}

	return usecase.PostTransactionInput{
		ExternalID: r.ExternalID,
		EventType:  domain.EventType(r.EventType),
		Entries:    entries,
	}
}

// ReverseTransactionRequest represents a request to reverse a transaction.
type ReverseTransactionRequest struct {
	ReversalExternalID string `json:"reversalExternalId"`
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

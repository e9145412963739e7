package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltor/bankledger/internal/domain"
)

func TestPostTransactionRequest_ToUseCaseInput(t *testing.T) {
	raw := `{
		"externalId": "x1",
		"eventType": "TRANSFER",
		"entries": [
			{"accountId": "acc-a", "amount": "30.50", "currency": "BRL", "side": "CREDIT"},
			{"accountId": "acc-b", "amount": "30.50", "currency": "BRL", "side": "DEBIT"}
		]
	}`

	var req PostTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	input := req.ToUseCaseInput()

	assert.Equal(t, "x1", input.ExternalID)
	assert.Equal(t, domain.EventTypeTransfer, input.EventType)
	require.Len(t, input.Entries, 2)
	assert.Equal(t, "acc-a", input.Entries[0].AccountID)
	assert.Equal(t, domain.EntrySideCredit, input.Entries[0].Side)
	assert.Equal(t, "30.5", input.Entries[0].Amount.String())
	assert.Equal(t, "BRL", input.Entries[0].Currency)
}

func TestPostTransactionRequest_AcceptsNumericAmounts(t *testing.T) {
	// decimal.Decimal unmarshals both "100" and 100.
	raw := `{
		"externalId": "x1",
		"eventType": "DEPOSIT",
		"entries": [
			{"accountId": "acc-a", "amount": 100, "currency": "BRL", "side": "DEBIT"},
			{"accountId": "acc-b", "amount": "100", "currency": "BRL", "side": "CREDIT"}
		]
	}`

	var req PostTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.True(t, req.Entries[0].Amount.Equal(req.Entries[1].Amount))
}

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	var req CreateAccountRequest
	require.NoError(t, json.Unmarshal([]byte(`{"accountType":"ASSET","currency":"BRL"}`), &req))

	input := req.ToUseCaseInput()

	assert.Equal(t, domain.AccountTypeAsset, input.Type)
	assert.Equal(t, "BRL", input.Currency)
}

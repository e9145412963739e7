package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veltor/bankledger/internal/adapter/http/dto"
	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/infrastructure/metrics"
	"github.com/veltor/bankledger/internal/usecase"
)

// LedgerService defines the behavior needed by TransactionHandler.
type LedgerService interface {
	PostTransaction(ctx context.Context, input usecase.PostTransactionInput) (*domain.Transaction, error)
	ReverseTransaction(ctx context.Context, originalID, reversalExternalID string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	ledgerUC LedgerService
	metrics  *metrics.Metrics
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerUC LedgerService, m *metrics.Metrics) *TransactionHandler {
	return &TransactionHandler{ledgerUC: ledgerUC, metrics: m}
}

// Post posts a transaction. The response is identical for the first and any
// repeated request with the same external id.
func (h *TransactionHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "invalid request body")
		return
	}

	start := time.Now()

	txn, err := h.ledgerUC.PostTransaction(r.Context(), req.ToUseCaseInput())
	if err != nil {
		if h.metrics != nil {
			_, title := mapDomainError(err)
			h.metrics.PostErrors.WithLabelValues(title).Inc()
		}

		writeDomainError(w, err)

		return
	}

	if h.metrics != nil {
		h.metrics.TransactionsPosted.Inc()
		h.metrics.PostDuration.Observe(time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Get retrieves a transaction with its entries.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.ledgerUC.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Reverse posts the compensating transaction for a POSTED one.
func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req dto.ReverseTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "invalid request body")
		return
	}

	reversal, err := h.ledgerUC.ReverseTransaction(r.Context(), chi.URLParam(r, "id"), req.ReversalExternalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TransactionsReversed.Inc()
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(reversal))
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veltor/bankledger/internal/adapter/http/dto"
	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/infrastructure/metrics"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	GetBalance(ctx context.Context, accountID string) (domain.Money, error)
	GetBalanceAsOf(ctx context.Context, accountID string, cutoff time.Time) (domain.Money, error)
}

// BalanceHandler handles balance queries.
type BalanceHandler struct {
	balanceUC BalanceService
	metrics   *metrics.Metrics
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService, m *metrics.Metrics) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC, metrics: m}
}

// Get returns the current balance of an account.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	start := time.Now()

	balance, err := h.balanceUC.GetBalance(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.observe(start)

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(accountID, balance, nil))
}

// GetAsOf returns the balance of an account at ?time=ISO8601.
func (h *BalanceHandler) GetAsOf(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	raw := r.URL.Query().Get("time")
	cutoff, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "time must be an RFC 3339 timestamp")
		return
	}

	start := time.Now()

	balance, err := h.balanceUC.GetBalanceAsOf(r.Context(), accountID, cutoff)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.observe(start)

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(accountID, balance, &cutoff))
}

func (h *BalanceHandler) observe(start time.Time) {
	if h.metrics == nil {
		return
	}

	h.metrics.BalanceQueries.Inc()
	h.metrics.BalanceDuration.Observe(time.Since(start).Seconds())
}

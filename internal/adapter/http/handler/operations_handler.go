package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/veltor/bankledger/internal/adapter/http/dto"
	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase"
)

// SnapshotService defines the behavior needed for manual snapshot runs.
type SnapshotService interface {
	CreateSnapshots(ctx context.Context, cutoff time.Time) (usecase.SnapshotResult, error)
}

// OutboxStatusService reports outbox record counts.
type OutboxStatusService interface {
	CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error)
}

// ConsistencyService verifies the global double-entry invariant.
type ConsistencyService interface {
	CheckConsistency(ctx context.Context) (bool, error)
}

// OperationsHandler exposes operator endpoints: manual snapshot trigger,
// outbox health and ledger consistency.
type OperationsHandler struct {
	snapshots   SnapshotService
	outbox      OutboxStatusService
	consistency ConsistencyService
}

// NewOperationsHandler creates a new OperationsHandler.
func NewOperationsHandler(snapshots SnapshotService, outbox OutboxStatusService, consistency ConsistencyService) *OperationsHandler {
	return &OperationsHandler{
		snapshots:   snapshots,
		outbox:      outbox,
		consistency: consistency,
	}
}

// TriggerSnapshots runs the snapshot maker at ?cutoff=ISO8601 (default:
// now). Future cutoffs are rejected.
func (h *OperationsHandler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().UTC()

	if raw := r.URL.Query().Get("cutoff"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "cutoff must be an RFC 3339 timestamp")
			return
		}

		cutoff = parsed
	}

	result, err := h.snapshots.CreateSnapshots(r.Context(), cutoff)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotRunResponse{
		Cutoff:  cutoff,
		Created: result.Created,
		Skipped: result.Skipped,
		Failed:  result.Failed,
	})
}

// OutboxStatus reports record counts by status.
func (h *OperationsHandler) OutboxStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.outbox.CountByStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OutboxStatusResponse{
		Pending:   counts[domain.OutboxStatusPending],
		Processed: counts[domain.OutboxStatusProcessed],
		Failed:    counts[domain.OutboxStatusFailed],
	})
}

// Consistency verifies that posted debits equal posted credits.
func (h *OperationsHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.consistency.CheckConsistency(r.Context())
	if err != nil && !errors.Is(err, usecase.ErrInconsistentLedger) {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if !consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{"consistent": consistent})
}

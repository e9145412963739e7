package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/veltor/bankledger/internal/adapter/http/dto"
	"github.com/veltor/bankledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeProblem writes an RFC 7807 problem details response.
func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// writeDomainError maps a domain error to a problem response.
func writeDomainError(w http.ResponseWriter, err error) {
	status, title := mapDomainError(err)
	writeProblem(w, status, title, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes and titles.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusConflict, "Account Not Active"
	case errors.Is(err, domain.ErrInvalidAccountStateTransition):
		return http.StatusConflict, "Invalid Account State Transition"
	case errors.Is(err, domain.ErrNotReversible):
		return http.StatusConflict, "Transaction Not Reversible"
	case errors.Is(err, domain.ErrDuplicateExternalID):
		return http.StatusConflict, "Duplicate External ID"
	case errors.Is(err, domain.ErrUnbalanced),
		errors.Is(err, domain.ErrTooFewEntries),
		errors.Is(err, domain.ErrCurrencySetMismatch),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNegativeResult),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidEventType),
		errors.Is(err, domain.ErrFutureSnapshotCutoff),
		errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "Invalid Request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Deadline Exceeded"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return i
}

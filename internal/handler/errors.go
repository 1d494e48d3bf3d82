package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/syncer"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps a domain error to its HTTP status and writes the JSON
// error body. Unknown errors become opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		writeError(w, http.StatusUnprocessableEntity, "missing_field", unwrapMessage(err))
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrNoActiveTrip):
		writeError(w, http.StatusConflict, "no_active_trip", "no trip is currently active")
	case errors.Is(err, domain.ErrTripAlreadyActive):
		writeError(w, http.StatusConflict, "trip_already_active", "a trip is already active")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", unwrapMessage(err))
	case errors.Is(err, domain.ErrPersistence):
		// The durability guarantee is broken: the tap was NOT recorded.
		// This must never masquerade as success or as a retryable blip.
		writeError(w, http.StatusInternalServerError, "persistence_error",
			"local storage failed; the tap was not recorded")
	case errors.Is(err, domain.ErrSyncUnavailable):
		writeError(w, http.StatusServiceUnavailable, "sync_unavailable", "remote store unreachable; will retry")
	case errors.Is(err, domain.ErrSyncRejected):
		writeError(w, http.StatusBadGateway, "sync_rejected", "remote store rejected the batch; will retry")
	case errors.Is(err, syncer.ErrInFlight):
		writeError(w, http.StatusAccepted, "sync_in_flight", "a sync is already running")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// unwrapMessage extracts the human-readable tail from a wrapped sentinel
// error, e.g. "trip.Engine.Confirm: missing required field: line" → "line".
// Falls back to the full message when no known prefix matches.
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []string{
		domain.ErrMissingField.Error(),
		domain.ErrValidation.Error(),
		domain.ErrNotFound.Error(),
	} {
		if i := strings.Index(msg, sentinel+": "); i >= 0 {
			return msg[i+len(sentinel)+2:]
		}
		if strings.HasSuffix(msg, sentinel) {
			return sentinel
		}
	}
	return msg
}

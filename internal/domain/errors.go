package domain

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation.
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNoActiveTrip is returned by EndTap when no journey is open.
// User-visible and non-fatal; no state changes.
var ErrNoActiveTrip = errors.New("no active trip")

// ErrTripAlreadyActive is returned by BeginTap while a journey is open,
// rather than silently starting a second one.
var ErrTripAlreadyActive = errors.New("trip already active")

// ErrPersistence means the local durable store failed to write. The tap is
// NOT recorded and the caller must surface this loudly: a swallowed write
// failure breaks the crash-recovery guarantee the whole design rests on.
var ErrPersistence = errors.New("local store write failed")

// ErrSyncRejected means the remote store explicitly rejected a batch.
// The outbox is left untouched; the next trigger retries automatically.
var ErrSyncRejected = errors.New("remote store rejected batch")

// ErrSyncUnavailable means the remote store could not be reached.
// Recovery is identical to ErrSyncRejected.
var ErrSyncUnavailable = errors.New("remote store unreachable")

// ErrMissingField is returned when a confirmation is submitted without a
// required field. Rejected before any persistence; no state changes.
var ErrMissingField = errors.New("missing required field")

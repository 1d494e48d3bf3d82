package domain

import (
	"time"

	"github.com/google/uuid"
)

// Journey is the pairing of one on entry and at most one off entry sharing a
// JourneyID. It is a derived read-model, never a second source of truth:
// only LogEntry and the TripState checkpoint are authoritative. In
// particular "is a trip active" comes from the local checkpoint, not from
// scanning for open journeys, since the latter lags behind sync.
type Journey struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	FromStation string    `json:"from_station"`
	ToStation   string    `json:"to_station,omitempty"`
	Line        string    `json:"line,omitempty"`
	ExitLine    string    `json:"exit_line,omitempty"`
	Car         string    `json:"car,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	// DurationMin is whole minutes between the on and off entries, floored
	// at zero so clock skew can never produce a negative duration.
	// Zero while the journey is still open.
	DurationMin int `json:"duration_min"`

	// Open is true when no off entry has arrived for this journey yet.
	Open bool `json:"open"`
}

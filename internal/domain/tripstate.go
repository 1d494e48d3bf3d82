package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the position of the trip state machine.
//
//	idle → startConfirm → active → endConfirm → complete → idle
//
// complete is a transient display state; the engine collapses it back to
// idle after the caller has had a chance to show it.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseStartConfirm Phase = "startConfirm"
	PhaseActive       Phase = "active"
	PhaseEndConfirm   Phase = "endConfirm"
	PhaseComplete     Phase = "complete"
)

// Valid reports whether p is one of the known phases. Used when reading a
// checkpoint back from disk, where a corrupt value must not be trusted.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseStartConfirm, PhaseActive, PhaseEndConfirm, PhaseComplete:
		return true
	}
	return false
}

// TripState is the persisted checkpoint of the state machine. It is written
// synchronously before any in-memory mutation so a crash between the write
// and the UI update is recoverable on next start.
type TripState struct {
	Phase     Phase     `json:"phase"`
	JourneyID uuid.UUID `json:"journey_id"`
	StartedAt time.Time `json:"started_at"`
}

// Draft is a pending-on or pending-off tap awaiting user confirmation.
// Drafts live outside the outbox so an interrupted confirmation can be
// resumed or abandoned without polluting the delivery queue.
type Draft struct {
	Action    Action    `json:"action"`
	JourneyID uuid.UUID `json:"journey_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Station   string    `json:"station,omitempty"`
	Line      string    `json:"line,omitempty"`
	Car       string    `json:"car,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

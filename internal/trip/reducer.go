// Package trip implements the trip state machine: the single authority over
// whether a journey is idle, awaiting a confirmation, or active. The pure
// transition function lives in this file, isolated from all I/O; the Engine
// in engine.go persists each transition before committing it in memory.
package trip

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
)

// EventType enumerates the inputs the state machine reacts to.
type EventType string

const (
	// EventTapOn is the user's intent to start a journey.
	EventTapOn EventType = "tapOn"
	// EventConfirm commits whichever confirmation dialog is open.
	EventConfirm EventType = "confirm"
	// EventTapOff is the user's intent to end the active journey.
	EventTapOff EventType = "tapOff"
	// EventCancel abandons the open confirmation dialog.
	EventCancel EventType = "cancel"
	// EventDisplayDone collapses the transient complete phase back to idle.
	EventDisplayDone EventType = "displayDone"
)

// Event carries a state-machine input and the values the resulting state
// needs: the journey being operated on and the wall-clock instant.
type Event struct {
	Type      EventType
	JourneyID uuid.UUID
	At        time.Time
}

// Transition is the pure state transition function. Given the current
// TripState and an event it returns the next state, or a guard error and
// the state unchanged. It performs no I/O and is deterministic, so every
// allowed and rejected transition can be unit-tested directly.
func Transition(state domain.TripState, ev Event) (domain.TripState, error) {
	switch ev.Type {
	case EventTapOn:
		switch state.Phase {
		case domain.PhaseIdle, domain.PhaseComplete:
			return domain.TripState{Phase: domain.PhaseStartConfirm, JourneyID: ev.JourneyID, StartedAt: ev.At}, nil
		case domain.PhaseStartConfirm:
			// A re-tap while the dialog is open resumes it.
			return state, nil
		default:
			return state, domain.ErrTripAlreadyActive
		}

	case EventConfirm:
		switch state.Phase {
		case domain.PhaseStartConfirm:
			return domain.TripState{Phase: domain.PhaseActive, JourneyID: state.JourneyID, StartedAt: ev.At}, nil
		case domain.PhaseEndConfirm:
			return domain.TripState{Phase: domain.PhaseComplete, JourneyID: state.JourneyID, StartedAt: state.StartedAt}, nil
		default:
			return state, fmt.Errorf("%w: nothing to confirm in phase %q", domain.ErrValidation, state.Phase)
		}

	case EventTapOff:
		if state.Phase != domain.PhaseActive {
			return state, domain.ErrNoActiveTrip
		}
		return domain.TripState{Phase: domain.PhaseEndConfirm, JourneyID: state.JourneyID, StartedAt: state.StartedAt}, nil

	case EventCancel:
		switch state.Phase {
		case domain.PhaseStartConfirm:
			return domain.TripState{Phase: domain.PhaseIdle}, nil
		case domain.PhaseEndConfirm:
			return domain.TripState{Phase: domain.PhaseActive, JourneyID: state.JourneyID, StartedAt: state.StartedAt}, nil
		default:
			return state, fmt.Errorf("%w: nothing to cancel in phase %q", domain.ErrValidation, state.Phase)
		}

	case EventDisplayDone:
		if state.Phase == domain.PhaseComplete {
			return domain.TripState{Phase: domain.PhaseIdle}, nil
		}
		return state, nil
	}

	return state, fmt.Errorf("%w: unknown event %q", domain.ErrValidation, ev.Type)
}

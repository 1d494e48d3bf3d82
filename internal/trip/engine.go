package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/store"
)

// BeginRequest carries the inputs of a tap-on or tap-off intent: who is
// tapping, plus the best-effort position and nearest-station guess from the
// location collaborator. Guess and Pos may be nil; the confirm step then
// falls back to whatever the user types, and finally to "Unknown".
type BeginRequest struct {
	UserID string
	Email  string
	Guess  *domain.Station
	Pos    *domain.Position
}

// ConfirmForm is what the user submits from a confirmation dialog.
// Empty Station falls back to the draft's resolver guess.
type ConfirmForm struct {
	Station string
	Line    string
	Car     string
}

// ManualJourney describes a trip entered by hand through the editor.
type ManualJourney struct {
	UserID      string
	Email       string
	FromStation string
	ToStation   string
	Line        string
	Car         string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Engine owns the TripState and drives it through the pure Transition
// function, persisting a checkpoint before every in-memory commit. All
// methods are safe for concurrent use, though in practice a single UI
// client drives them sequentially.
type Engine struct {
	states store.StateStore
	outbox store.OutboxRepo

	mu       sync.Mutex
	state    domain.TripState
	deviceID string

	// Now and DisplayDelay are replaceable in tests. DisplayDelay is how
	// long the complete phase stays visible before collapsing to idle.
	Now          func() time.Time
	DisplayDelay time.Duration
}

// NewEngine constructs an Engine over the given persistence gateways.
// Call Recover before serving traffic so a checkpoint left by a previous
// process is replayed into memory.
func NewEngine(states store.StateStore, outbox store.OutboxRepo) *Engine {
	return &Engine{
		states:       states,
		outbox:       outbox,
		state:        domain.TripState{Phase: domain.PhaseIdle},
		Now:          time.Now,
		DisplayDelay: 3 * time.Second,
	}
}

// Recover replays the persisted checkpoint into memory. Executed once at
// process start; this is what makes the machine durable across restarts.
//
// A checkpointed confirm phase is only restored when its draft survived
// too, so the user is re-prompted instead of facing an empty dialog; an
// orphaned confirm checkpoint falls back to the phase it interrupted.
func (e *Engine) Recover(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.states.DeviceID(ctx)
	if err != nil {
		return fmt.Errorf("trip.Engine.Recover: %w", err)
	}
	e.deviceID = id

	cp, err := e.states.LoadCheckpoint(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		e.state = domain.TripState{Phase: domain.PhaseIdle}
		return nil
	}
	if err != nil {
		return fmt.Errorf("trip.Engine.Recover: %w", err)
	}

	switch cp.Phase {
	case domain.PhaseActive:
		e.state = cp

	case domain.PhaseStartConfirm:
		if _, err := e.states.LoadDraft(ctx, domain.ActionOn); err == nil {
			e.state = cp
		} else {
			e.state = domain.TripState{Phase: domain.PhaseIdle}
		}

	case domain.PhaseEndConfirm:
		if _, err := e.states.LoadDraft(ctx, domain.ActionOff); err == nil {
			e.state = cp
		} else {
			// The off-draft is gone; the journey itself is still open.
			e.state = domain.TripState{Phase: domain.PhaseActive, JourneyID: cp.JourneyID, StartedAt: cp.StartedAt}
		}

	default:
		// idle or a stale complete: nothing in flight.
		e.state = domain.TripState{Phase: domain.PhaseIdle}
	}
	return nil
}

// State returns a copy of the current TripState.
func (e *Engine) State() domain.TripState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns the pending draft for the open confirmation dialog, or
// domain.ErrNotFound when no dialog is open.
func (e *Engine) Draft(ctx context.Context) (domain.Draft, error) {
	switch e.State().Phase {
	case domain.PhaseStartConfirm:
		return e.states.LoadDraft(ctx, domain.ActionOn)
	case domain.PhaseEndConfirm:
		return e.states.LoadDraft(ctx, domain.ActionOff)
	}
	return domain.Draft{}, domain.ErrNotFound
}

// BeginTap starts a tap-on: it allocates (or, defensively, reuses) the
// journey id, persists the pending-on draft and the startConfirm
// checkpoint, and only then moves the in-memory state.
// Returns domain.ErrTripAlreadyActive while a journey is open and
// domain.ErrValidation when no user is signed in.
func (e *Engine) BeginTap(ctx context.Context, req BeginRequest) (domain.Draft, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.Draft{}, fmt.Errorf("%w: a signed-in user is required to tap on", domain.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Reuse the journey id of an open start dialog, so a double-fired tap
	// can never fork a second journey.
	journeyID := uuid.Nil
	if e.state.Phase == domain.PhaseStartConfirm {
		journeyID = e.state.JourneyID
	}
	if journeyID == uuid.Nil {
		journeyID = uuid.New()
	}

	next, err := Transition(e.state, Event{Type: EventTapOn, JourneyID: journeyID, At: e.Now()})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.BeginTap: %w", err)
	}

	draft := e.draftFrom(req, domain.ActionOn, next.JourneyID)
	if err := e.states.SaveDraft(ctx, draft); err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.BeginTap: %w", err)
	}
	if err := e.states.SaveCheckpoint(ctx, next); err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.BeginTap: %w", err)
	}
	e.state = next
	return draft, nil
}

// EndTap starts a tap-off for the active journey. The journey id is read
// from the persisted checkpoint, not from memory, so an end tap immediately
// after a restart closes the journey that was actually open.
// Returns domain.ErrNoActiveTrip when no journey is active and
// domain.ErrValidation when no user is signed in: an off entry without a
// user would never show up in that user's journey view, leaving the
// journey open forever.
func (e *Engine) EndTap(ctx context.Context, req BeginRequest) (domain.Draft, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.Draft{}, fmt.Errorf("%w: a signed-in user is required to tap off", domain.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cp, err := e.states.LoadCheckpoint(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Draft{}, fmt.Errorf("trip.Engine.EndTap: %w", domain.ErrNoActiveTrip)
	}
	if err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.EndTap: %w", err)
	}

	next, err := Transition(cp, Event{Type: EventTapOff, At: e.Now()})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.EndTap: %w", err)
	}

	draft := e.draftFrom(req, domain.ActionOff, next.JourneyID)
	if err := e.states.SaveDraft(ctx, draft); err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.EndTap: %w", err)
	}
	if err := e.states.SaveCheckpoint(ctx, next); err != nil {
		return domain.Draft{}, fmt.Errorf("trip.Engine.EndTap: %w", err)
	}
	e.state = next
	return draft, nil
}

// Confirm commits whichever confirmation dialog is open. For a start
// confirmation it materializes the on entry, enqueues it, and checkpoints
// the active phase; for an end confirmation it materializes the off entry,
// clears the checkpoint, and enters the transient complete phase.
// Returns domain.ErrMissingField when no line could be determined.
func (e *Engine) Confirm(ctx context.Context, form ConfirmForm) (domain.LogEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := Transition(e.state, Event{Type: EventConfirm, At: e.state.StartedAt})
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w", err)
	}

	action := domain.ActionOn
	if e.state.Phase == domain.PhaseEndConfirm {
		action = domain.ActionOff
	}

	draft, err := e.states.LoadDraft(ctx, action)
	if err != nil {
		return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: load draft: %w", err)
	}

	entry, err := e.materialize(draft, form)
	if err != nil {
		// Validated before any persistence: state and stores untouched.
		return domain.LogEntry{}, err
	}

	if err := e.outbox.Enqueue(ctx, entry); err != nil {
		return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w", err)
	}

	if action == domain.ActionOn {
		// The trip starts at confirmation time.
		next.StartedAt = e.Now()
		if err := e.states.SaveCheckpoint(ctx, next); err != nil {
			return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w", err)
		}
	} else {
		if err := e.states.ClearCheckpoint(ctx); err != nil {
			return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w", err)
		}
	}
	if err := e.states.ClearDraft(ctx, action); err != nil {
		return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w", err)
	}

	e.state = next
	if next.Phase == domain.PhaseComplete {
		time.AfterFunc(e.DisplayDelay, e.collapseComplete)
	}
	return entry, nil
}

// Cancel abandons the open confirmation dialog: the draft is dropped and
// the machine returns to the phase the dialog interrupted.
func (e *Engine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := Transition(e.state, Event{Type: EventCancel, At: e.Now()})
	if err != nil {
		return fmt.Errorf("trip.Engine.Cancel: %w", err)
	}

	action := domain.ActionOn
	if e.state.Phase == domain.PhaseEndConfirm {
		action = domain.ActionOff
	}
	if err := e.states.ClearDraft(ctx, action); err != nil {
		return fmt.Errorf("trip.Engine.Cancel: %w", err)
	}

	if next.Phase == domain.PhaseIdle {
		if err := e.states.ClearCheckpoint(ctx); err != nil {
			return fmt.Errorf("trip.Engine.Cancel: %w", err)
		}
	} else {
		if err := e.states.SaveCheckpoint(ctx, next); err != nil {
			return fmt.Errorf("trip.Engine.Cancel: %w", err)
		}
	}
	e.state = next
	return nil
}

// AddManualJourney enqueues an on+off entry pair for a trip entered by hand
// in the editor. The pair shares a fresh journey id and flows through the
// same outbox as live taps; the state machine itself is not involved.
func (e *Engine) AddManualJourney(ctx context.Context, mj ManualJourney) ([]domain.LogEntry, error) {
	if strings.TrimSpace(mj.UserID) == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if strings.TrimSpace(mj.FromStation) == "" {
		return nil, fmt.Errorf("%w: station", domain.ErrMissingField)
	}
	if strings.TrimSpace(mj.Line) == "" {
		return nil, fmt.Errorf("%w: line", domain.ErrMissingField)
	}
	if mj.StartedAt.IsZero() {
		return nil, fmt.Errorf("%w: start time", domain.ErrMissingField)
	}
	if !mj.EndedAt.IsZero() && mj.EndedAt.Before(mj.StartedAt) {
		return nil, fmt.Errorf("%w: end time must not be before start time", domain.ErrValidation)
	}

	journeyID := uuid.New()
	on := domain.LogEntry{
		ID:        uuid.New(),
		Timestamp: mj.StartedAt,
		DeviceID:  e.deviceID,
		UserID:    mj.UserID,
		Email:     mj.Email,
		Action:    domain.ActionOn,
		Station:   mj.FromStation,
		Line:      mj.Line,
		Car:       mj.Car,
		JourneyID: journeyID,
		Manual:    true,
	}

	entries := []domain.LogEntry{on}
	if !mj.EndedAt.IsZero() && strings.TrimSpace(mj.ToStation) != "" {
		entries = append(entries, domain.LogEntry{
			ID:        uuid.New(),
			Timestamp: mj.EndedAt,
			DeviceID:  e.deviceID,
			UserID:    mj.UserID,
			Email:     mj.Email,
			Action:    domain.ActionOff,
			Station:   mj.ToStation,
			Line:      mj.Line,
			JourneyID: journeyID,
			Manual:    true,
		})
	}

	for _, entry := range entries {
		if err := e.outbox.Enqueue(ctx, entry); err != nil {
			return nil, fmt.Errorf("trip.Engine.AddManualJourney: %w", err)
		}
	}
	return entries, nil
}

// collapseComplete moves complete → idle once the display delay elapsed.
func (e *Engine) collapseComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if next, err := Transition(e.state, Event{Type: EventDisplayDone, At: e.Now()}); err == nil {
		e.state = next
	}
}

// draftFrom snapshots the request into a persisted draft, prefilled with
// the resolver's nearest-station guess when one was supplied.
func (e *Engine) draftFrom(req BeginRequest, action domain.Action, journeyID uuid.UUID) domain.Draft {
	draft := domain.Draft{
		Action:    action,
		JourneyID: journeyID,
		UserID:    req.UserID,
		Email:     req.Email,
		CreatedAt: e.Now(),
	}
	if req.Guess != nil {
		draft.Station = req.Guess.Name
		draft.Line = req.Guess.Line
	}
	if req.Pos != nil {
		lat, lon := req.Pos.Lat, req.Pos.Lon
		draft.Lat = &lat
		draft.Lon = &lon
	}
	return draft
}

// materialize turns a draft plus the submitted form into an immutable
// LogEntry. The station falls back from the form to the resolver guess to
// the "Unknown" sentinel; the line must come from one of the two.
func (e *Engine) materialize(draft domain.Draft, form ConfirmForm) (domain.LogEntry, error) {
	station := strings.TrimSpace(form.Station)
	if station == "" {
		station = strings.TrimSpace(draft.Station)
	}
	if station == "" {
		station = domain.UnknownStation
	}

	line := strings.TrimSpace(form.Line)
	if line == "" {
		line = strings.TrimSpace(draft.Line)
	}
	if line == "" {
		return domain.LogEntry{}, fmt.Errorf("trip.Engine.Confirm: %w: line", domain.ErrMissingField)
	}

	car := strings.TrimSpace(form.Car)
	if car == "" {
		car = draft.Car
	}

	return domain.LogEntry{
		ID:        uuid.New(),
		Timestamp: e.Now(),
		DeviceID:  e.deviceID,
		UserID:    draft.UserID,
		Email:     draft.Email,
		Action:    draft.Action,
		Station:   station,
		Line:      line,
		Car:       car,
		Lat:       draft.Lat,
		Lon:       draft.Lon,
		JourneyID: draft.JourneyID,
	}, nil
}

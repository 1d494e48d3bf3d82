package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
)

// local_state keys. deviceIDKey holds an opaque string; the rest hold JSON.
const (
	deviceIDKey   = "device-id"
	checkpointKey = "trip-state"
	draftOnKey    = "pending-on"
	draftOffKey   = "pending-off"
)

// StateStore defines the persistence gateway for everything the trip state
// machine checkpoints: device identity, the TripState checkpoint, and the
// pending tap drafts. The trip engine is its only caller; presentation code
// must never touch these keys directly.
type StateStore interface {
	// DeviceID returns the stable per-installation identifier, generating
	// and persisting one on first call. Never regenerated afterwards.
	DeviceID(ctx context.Context) (string, error)

	// LoadCheckpoint returns the persisted TripState, or domain.ErrNotFound
	// when no checkpoint exists (fresh install or completed trip).
	LoadCheckpoint(ctx context.Context) (domain.TripState, error)

	// SaveCheckpoint upserts the TripState checkpoint.
	SaveCheckpoint(ctx context.Context, state domain.TripState) error

	// ClearCheckpoint removes the checkpoint. Clearing an absent
	// checkpoint is not an error.
	ClearCheckpoint(ctx context.Context) error

	// LoadDraft returns the pending draft for the given tap action, or
	// domain.ErrNotFound when none is stored.
	LoadDraft(ctx context.Context, action domain.Action) (domain.Draft, error)

	// SaveDraft upserts the pending draft for its action.
	SaveDraft(ctx context.Context, draft domain.Draft) error

	// ClearDraft removes the pending draft for the given action.
	ClearDraft(ctx context.Context, action domain.Action) error
}

// sqliteStateStore is the SQLite implementation of StateStore.
type sqliteStateStore struct {
	db db
}

// NewStateStore constructs a StateStore backed by the provided database.
func NewStateStore(db db) StateStore {
	return &sqliteStateStore{db: db}
}

// DeviceID returns the persisted device identity, creating it on first run.
func (s *sqliteStateStore) DeviceID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_state WHERE key = ?`, deviceIDKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("store.StateStore.DeviceID: %w", err)
	}

	id = "dev_" + uuid.NewString()
	// ON CONFLICT keeps the first identity if two callers race here:
	// the id must never change once set.
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO local_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO NOTHING`, deviceIDKey, id); err != nil {
		return "", fmt.Errorf("store.StateStore.DeviceID: %w: %w", domain.ErrPersistence, err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_state WHERE key = ?`, deviceIDKey).Scan(&id); err != nil {
		return "", fmt.Errorf("store.StateStore.DeviceID: %w", err)
	}
	return id, nil
}

// LoadCheckpoint reads back the TripState checkpoint.
func (s *sqliteStateStore) LoadCheckpoint(ctx context.Context) (domain.TripState, error) {
	var state domain.TripState
	if err := s.loadJSON(ctx, checkpointKey, &state); err != nil {
		return domain.TripState{}, fmt.Errorf("store.StateStore.LoadCheckpoint: %w", err)
	}
	if !state.Phase.Valid() {
		// A corrupt checkpoint must not wedge the machine in an unknown
		// phase; treat it as absent and let recovery fall back to idle.
		return domain.TripState{}, fmt.Errorf("store.StateStore.LoadCheckpoint: %w", domain.ErrNotFound)
	}
	return state, nil
}

// SaveCheckpoint upserts the TripState checkpoint.
func (s *sqliteStateStore) SaveCheckpoint(ctx context.Context, state domain.TripState) error {
	if err := s.saveJSON(ctx, checkpointKey, state); err != nil {
		return fmt.Errorf("store.StateStore.SaveCheckpoint: %w", err)
	}
	return nil
}

// ClearCheckpoint removes the TripState checkpoint.
func (s *sqliteStateStore) ClearCheckpoint(ctx context.Context) error {
	if err := s.clearKey(ctx, checkpointKey); err != nil {
		return fmt.Errorf("store.StateStore.ClearCheckpoint: %w", err)
	}
	return nil
}

// LoadDraft reads the pending draft for action.
func (s *sqliteStateStore) LoadDraft(ctx context.Context, action domain.Action) (domain.Draft, error) {
	var draft domain.Draft
	if err := s.loadJSON(ctx, draftKey(action), &draft); err != nil {
		return domain.Draft{}, fmt.Errorf("store.StateStore.LoadDraft: %w", err)
	}
	return draft, nil
}

// SaveDraft upserts the pending draft keyed by its action.
func (s *sqliteStateStore) SaveDraft(ctx context.Context, draft domain.Draft) error {
	if err := s.saveJSON(ctx, draftKey(draft.Action), draft); err != nil {
		return fmt.Errorf("store.StateStore.SaveDraft: %w", err)
	}
	return nil
}

// ClearDraft removes the pending draft for action.
func (s *sqliteStateStore) ClearDraft(ctx context.Context, action domain.Action) error {
	if err := s.clearKey(ctx, draftKey(action)); err != nil {
		return fmt.Errorf("store.StateStore.ClearDraft: %w", err)
	}
	return nil
}

// draftKey maps a tap action to its local_state key. Only one confirm
// dialog can be open at a time, so one slot per action suffices.
func draftKey(action domain.Action) string {
	if action == domain.ActionOn {
		return draftOnKey
	}
	return draftOffKey
}

func (s *sqliteStateStore) loadJSON(ctx context.Context, key string, dest any) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A value that no longer parses must not wedge recovery; report it
		// as absent so the engine falls back to idle instead of refusing
		// to start.
		return fmt.Errorf("decode %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (s *sqliteStateStore) saveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO local_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, string(raw)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *sqliteStateStore) clearKey(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

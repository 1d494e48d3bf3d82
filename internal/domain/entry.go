// Package domain contains the core data types for the transit tap logger.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (store, trip, sync, journey, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action marks what a LogEntry records: boarding or alighting. Trips
// entered by hand through the editor emit the same two actions with the
// Manual flag set.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// LogEntry is a single tap event. Entries are immutable once enqueued:
// an edit appends a new entry carrying the same JourneyID, it never rewrites
// history in place. ID doubles as the dedup key at the remote store.
type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Action    Action    `json:"action"`

	// Station is never empty: when neither the user nor the resolver could
	// supply one, it holds the literal "Unknown" sentinel.
	Station string `json:"station"`

	// Line is the line boarded (on entries) or exited (off entries).
	Line string `json:"line,omitempty"`

	// Car is the optional car number, as entered.
	Car string `json:"car,omitempty"`

	// Lat/Lon are the geolocation snapshot at tap time, nil when the
	// position was unavailable or stale.
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	// JourneyID groups an on entry with its matching off entry.
	JourneyID uuid.UUID `json:"journey_id"`

	// Manual is true for entries created through the trip editor.
	Manual bool `json:"manual,omitempty"`
}

// UnknownStation is recorded when no station value could be determined.
// An explicit sentinel keeps the log auditable; null would hide the gap.
const UnknownStation = "Unknown"

// Position is a best-effort geolocation fix from the location collaborator.
type Position struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Accuracy float64 `json:"accuracy"`
}

// Station is one row of the static station reference dataset.
type Station struct {
	Name string  `json:"name"`
	Line string  `json:"line"`
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`

	// DistanceM is the distance from the query position in meters,
	// populated by the nearest-station resolver.
	DistanceM float64 `json:"distance_m,omitempty"`
}

// Package journey derives the journey read-model from the flat entry log.
// Pairing is purely presentational: the local TripState checkpoint, not a
// pairing scan, is the authoritative "is a trip active" signal, because the
// log the pairing runs over is subject to sync latency.
package journey

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
)

// Pair groups entries by journey id and pairs each on entry with its off
// entry, newest journey first. Groups without an on entry are orphans
// (an off synced ahead of its on, or a truncated log) and are dropped
// rather than rendered half-formed.
func Pair(entries []domain.LogEntry) []domain.Journey {
	groups := make(map[uuid.UUID][]domain.LogEntry)
	order := make([]uuid.UUID, 0)
	for _, e := range entries {
		if _, seen := groups[e.JourneyID]; !seen {
			order = append(order, e.JourneyID)
		}
		groups[e.JourneyID] = append(groups[e.JourneyID], e)
	}

	journeys := make([]domain.Journey, 0, len(order))
	for _, id := range order {
		if j, ok := build(id, groups[id]); ok {
			journeys = append(journeys, j)
		}
	}

	sort.SliceStable(journeys, func(i, k int) bool {
		return journeys[i].StartedAt.After(journeys[k].StartedAt)
	})
	return journeys
}

// build assembles one Journey from a journey-id group. ok is false for
// orphaned groups (no on entry).
func build(id uuid.UUID, group []domain.LogEntry) (domain.Journey, bool) {
	var on, off *domain.LogEntry
	for i := range group {
		switch group[i].Action {
		case domain.ActionOn:
			// Edits append replacement entries with the same journey id;
			// the newest on entry wins.
			if on == nil || group[i].Timestamp.After(on.Timestamp) {
				on = &group[i]
			}
		case domain.ActionOff:
			if off == nil || group[i].Timestamp.After(off.Timestamp) {
				off = &group[i]
			}
		}
	}
	if on == nil {
		return domain.Journey{}, false
	}

	j := domain.Journey{
		ID:          id,
		UserID:      on.UserID,
		FromStation: on.Station,
		Line:        on.Line,
		Car:         on.Car,
		StartedAt:   on.Timestamp,
		Open:        off == nil,
	}
	if off != nil {
		end := off.Timestamp
		j.ToStation = off.Station
		j.ExitLine = off.Line
		j.EndedAt = &end
		j.DurationMin = durationMinutes(on.Timestamp, off.Timestamp)
	}
	return j, true
}

// durationMinutes is the span between start and end rounded to whole
// minutes, floored at zero so clock skew can never yield a negative
// duration.
func durationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

package journey_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/journey"
)

var base = time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC)

func entry(action domain.Action, journeyID uuid.UUID, station string, ts time.Time) domain.LogEntry {
	return domain.LogEntry{
		ID:        uuid.New(),
		Timestamp: ts,
		UserID:    "nicole",
		Action:    action,
		Station:   station,
		Line:      "L2",
		JourneyID: journeyID,
	}
}

func TestPair_ClosedJourney(t *testing.T) {
	id := uuid.New()
	entries := []domain.LogEntry{
		entry(domain.ActionOn, id, "Sagrada Família", base),
		entry(domain.ActionOff, id, "Diagonal", base.Add(18*time.Minute)),
	}

	journeys := journey.Pair(entries)

	require.Len(t, journeys, 1)
	j := journeys[0]
	assert.Equal(t, id, j.ID)
	assert.Equal(t, "Sagrada Família", j.FromStation)
	assert.Equal(t, "Diagonal", j.ToStation)
	assert.Equal(t, "L2", j.Line)
	assert.Equal(t, 18, j.DurationMin)
	assert.False(t, j.Open)
	require.NotNil(t, j.EndedAt)
	assert.True(t, j.EndedAt.Equal(base.Add(18*time.Minute)))
}

func TestPair_OpenJourney(t *testing.T) {
	journeys := journey.Pair([]domain.LogEntry{
		entry(domain.ActionOn, uuid.New(), "Sagrada Família", base),
	})

	require.Len(t, journeys, 1)
	assert.True(t, journeys[0].Open)
	assert.Nil(t, journeys[0].EndedAt)
	assert.Zero(t, journeys[0].DurationMin)
}

func TestPair_OrphanedOffDropped(t *testing.T) {
	closed := uuid.New()
	entries := []domain.LogEntry{
		// An off whose on has not synced yet.
		entry(domain.ActionOff, uuid.New(), "Diagonal", base),
		entry(domain.ActionOn, closed, "Sagrada Família", base.Add(time.Hour)),
		entry(domain.ActionOff, closed, "Diagonal", base.Add(70*time.Minute)),
	}

	journeys := journey.Pair(entries)

	require.Len(t, journeys, 1)
	assert.Equal(t, closed, journeys[0].ID)
}

func TestPair_NewestFirst(t *testing.T) {
	older, newer := uuid.New(), uuid.New()
	entries := []domain.LogEntry{
		entry(domain.ActionOn, older, "Sagrada Família", base),
		entry(domain.ActionOff, older, "Diagonal", base.Add(10*time.Minute)),
		entry(domain.ActionOn, newer, "Diagonal", base.Add(time.Hour)),
	}

	journeys := journey.Pair(entries)

	require.Len(t, journeys, 2)
	assert.Equal(t, newer, journeys[0].ID)
	assert.Equal(t, older, journeys[1].ID)
}

func TestPair_EditedEntry_NewestWins(t *testing.T) {
	id := uuid.New()
	entries := []domain.LogEntry{
		entry(domain.ActionOn, id, "Sagrada Família", base),
		// A later correction re-appends the on entry with the right station.
		entry(domain.ActionOn, id, "Verdaguer", base.Add(time.Minute)),
		entry(domain.ActionOff, id, "Diagonal", base.Add(20*time.Minute)),
	}

	journeys := journey.Pair(entries)

	require.Len(t, journeys, 1)
	assert.Equal(t, "Verdaguer", journeys[0].FromStation)
}

func TestPair_DurationRounding(t *testing.T) {
	cases := []struct {
		name string
		span time.Duration
		want int
	}{
		{"rounds down", 10*time.Minute + 20*time.Second, 10},
		{"rounds up", 10*time.Minute + 40*time.Second, 11},
		{"sub-minute", 20 * time.Second, 0},
		{"zero", 0, 0},
		{"negative clock skew floors at zero", -3 * time.Minute, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := uuid.New()
			journeys := journey.Pair([]domain.LogEntry{
				entry(domain.ActionOn, id, "Sagrada Família", base),
				entry(domain.ActionOff, id, "Diagonal", base.Add(tc.span)),
			})
			require.Len(t, journeys, 1)
			assert.Equal(t, tc.want, journeys[0].DurationMin)
		})
	}
}

func TestPair_EmptyLog(t *testing.T) {
	assert.Empty(t, journey.Pair(nil))
}

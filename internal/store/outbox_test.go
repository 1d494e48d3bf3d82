package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/store"
	"github.com/msabate/transit-logger/testutil"
)

func entryAt(action domain.Action, ts time.Time) domain.LogEntry {
	return domain.LogEntry{
		ID:        uuid.New(),
		Timestamp: ts,
		DeviceID:  "dev_test",
		UserID:    "nicole",
		Action:    action,
		Station:   "Sagrada Família",
		Line:      "L2",
		JourneyID: uuid.New(),
	}
}

func TestOutboxRepo_Enqueue_PreservesOrder(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC)

	first := entryAt(domain.ActionOn, base)
	second := entryAt(domain.ActionOff, base.Add(18*time.Minute))
	require.NoError(t, outbox.Enqueue(ctx, first))
	require.NoError(t, outbox.Enqueue(ctx, second))

	snap, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, first.ID, snap.Entries[0].ID)
	assert.Equal(t, second.ID, snap.Entries[1].ID)

	n, err := outbox.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutboxRepo_Roundtrip_PreservesFields(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()

	lat, lon := 41.4036, 2.1744
	want := domain.LogEntry{
		ID:        uuid.New(),
		Timestamp: time.Date(2025, 11, 2, 9, 30, 12, 345000000, time.UTC),
		DeviceID:  "dev_test",
		UserID:    "nicole",
		Email:     "nicole@example.com",
		Action:    domain.ActionOn,
		Station:   "Sagrada Família",
		Line:      "L2",
		Car:       "5012",
		Lat:       &lat,
		Lon:       &lon,
		JourneyID: uuid.New(),
		Manual:    false,
	}
	require.NoError(t, outbox.Enqueue(ctx, want))

	snap, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	got := snap.Entries[0]
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.Car, got.Car)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, lat, *got.Lat, 1e-9)
	assert.Equal(t, want.JourneyID, got.JourneyID)
}

func TestOutboxRepo_NilCoordinates_SurviveRoundtrip(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, outbox.Enqueue(ctx, entryAt(domain.ActionOn, time.Now().UTC())))

	snap, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.Nil(t, snap.Entries[0].Lat)
	assert.Nil(t, snap.Entries[0].Lon)
}

func TestOutboxRepo_Discard_SparesConcurrentEnqueues(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, outbox.Enqueue(ctx, entryAt(domain.ActionOn, base)))
	require.NoError(t, outbox.Enqueue(ctx, entryAt(domain.ActionOff, base.Add(time.Minute))))

	snap, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)

	// A tap lands while the snapshot is in flight to the remote store.
	late := entryAt(domain.ActionOn, base.Add(2*time.Minute))
	require.NoError(t, outbox.Enqueue(ctx, late))

	require.NoError(t, outbox.Discard(ctx, snap))

	remaining, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, remaining.Entries, 1)
	assert.Equal(t, late.ID, remaining.Entries[0].ID)
}

func TestOutboxRepo_Discard_EmptySnapshotIsNoOp(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()

	empty, err := outbox.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, empty.Entries)

	require.NoError(t, outbox.Enqueue(ctx, entryAt(domain.ActionOn, time.Now().UTC())))
	// Discarding the stale empty snapshot must not touch the new row.
	require.NoError(t, outbox.Discard(ctx, empty))

	n, err := outbox.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutboxRepo_Enqueue_DuplicateIDRejected(t *testing.T) {
	outbox := store.NewOutboxRepo(testutil.NewDB(t))
	ctx := context.Background()

	entry := entryAt(domain.ActionOn, time.Now().UTC())
	require.NoError(t, outbox.Enqueue(ctx, entry))

	err := outbox.Enqueue(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

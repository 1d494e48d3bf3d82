package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
)

// Snapshot is a frozen view of the outbox taken at the start of a flush.
// Discarding a snapshot removes exactly the rows it covers, never entries
// enqueued concurrently during the network round trip.
type Snapshot struct {
	Entries []domain.LogEntry

	// lastSeq is the highest outbox sequence number in Entries. Rows with
	// a larger seq were enqueued after the snapshot and must survive it.
	lastSeq int64
}

// OutboxRepo defines the persistence operations for the outbox: the ordered
// queue of log entries not yet acknowledged by the remote store.
type OutboxRepo interface {
	// Enqueue appends an entry. A failed append means the tap is NOT
	// recorded; the error wraps domain.ErrPersistence so callers can
	// surface it loudly.
	Enqueue(ctx context.Context, entry domain.LogEntry) error

	// Snapshot returns all currently queued entries in enqueue order.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Discard removes exactly the rows covered by the snapshot. Call only
	// after the remote store acknowledged the whole batch.
	Discard(ctx context.Context, snap Snapshot) error

	// Len returns the number of queued entries.
	Len(ctx context.Context) (int, error)
}

// sqliteOutboxRepo is the SQLite implementation of OutboxRepo.
type sqliteOutboxRepo struct {
	db db
}

// NewOutboxRepo constructs an OutboxRepo backed by the provided database.
func NewOutboxRepo(db db) OutboxRepo {
	return &sqliteOutboxRepo{db: db}
}

// Enqueue appends one entry to the outbox.
func (r *sqliteOutboxRepo) Enqueue(ctx context.Context, entry domain.LogEntry) error {
	const q = `
		INSERT INTO outbox (id, ts, device_id, user_id, email, action,
		                    station, line, car, lat, lon, journey_id, manual)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.ID.String(),
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.DeviceID,
		entry.UserID,
		entry.Email,
		string(entry.Action),
		entry.Station,
		entry.Line,
		entry.Car,
		entry.Lat,
		entry.Lon,
		entry.JourneyID.String(),
		entry.Manual,
	)
	if err != nil {
		return fmt.Errorf("store.OutboxRepo.Enqueue: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Snapshot reads the entire current outbox in enqueue order.
func (r *sqliteOutboxRepo) Snapshot(ctx context.Context) (Snapshot, error) {
	const q = `
		SELECT seq, id, ts, device_id, user_id, email, action,
		       station, line, car, lat, lon, journey_id, manual
		FROM outbox
		ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store.OutboxRepo.Snapshot: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var seq int64
		entry, err := scanEntry(rows, &seq)
		if err != nil {
			return Snapshot{}, fmt.Errorf("store.OutboxRepo.Snapshot: scan: %w", err)
		}
		snap.Entries = append(snap.Entries, entry)
		snap.lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("store.OutboxRepo.Snapshot: rows: %w", err)
	}
	return snap, nil
}

// Discard removes the snapshotted prefix of the outbox. seq is append-only,
// so "seq <= lastSeq" is exactly the set of rows the snapshot contained.
func (r *sqliteOutboxRepo) Discard(ctx context.Context, snap Snapshot) error {
	if len(snap.Entries) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE seq <= ?`, snap.lastSeq); err != nil {
		return fmt.Errorf("store.OutboxRepo.Discard: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Len returns the number of queued entries.
func (r *sqliteOutboxRepo) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store.OutboxRepo.Len: %w", err)
	}
	return n, nil
}

// scanEntry maps one outbox row into a domain.LogEntry.
// It handles the UUID, timestamp, and nullable lat/lon conversions.
func scanEntry(s scanner, seq *int64) (domain.LogEntry, error) {
	var (
		e         domain.LogEntry
		id        string
		ts        string
		action    string
		journeyID string
		lat, lon  sql.NullFloat64
	)

	err := s.Scan(seq, &id, &ts, &e.DeviceID, &e.UserID, &e.Email, &action,
		&e.Station, &e.Line, &e.Car, &lat, &lon, &journeyID, &e.Manual)
	if err != nil {
		return domain.LogEntry{}, err
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return domain.LogEntry{}, fmt.Errorf("entry id: %w", err)
	}
	if e.JourneyID, err = uuid.Parse(journeyID); err != nil {
		return domain.LogEntry{}, fmt.Errorf("journey id: %w", err)
	}
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return domain.LogEntry{}, fmt.Errorf("timestamp: %w", err)
	}
	e.Action = domain.Action(action)
	if lat.Valid {
		v := lat.Float64
		e.Lat = &v
	}
	if lon.Valid {
		v := lon.Float64
		e.Lon = &v
	}
	return e, nil
}

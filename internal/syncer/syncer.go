// Package syncer delivers the outbox to the remote log store. It guarantees
// at-least-once, whole-batch delivery: a snapshot of the outbox is submitted
// as one batch and removed only after the store acknowledged all of it.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/msabate/transit-logger/internal/metrics"
	"github.com/msabate/transit-logger/internal/remote"
	"github.com/msabate/transit-logger/internal/store"
)

// ErrInFlight is returned by Flush when another flush is already running.
// The caller's snapshot would be a subset of the running one, so there is
// nothing useful for a second submission to do.
var ErrInFlight = errors.New("flush already in flight")

// Syncer flushes the outbox to the remote store. Flush is triggered on
// start, on an offline→online transition detected by the prober, and
// manually; all three paths are safe to fire concurrently.
type Syncer struct {
	outbox  store.OutboxRepo
	remote  remote.Client
	log     *slog.Logger
	metrics *metrics.Collector

	inFlight atomic.Bool
	online   atomic.Bool
}

// New constructs a Syncer. The collector must be non-nil; pass a fresh one
// in tests.
func New(outbox store.OutboxRepo, client remote.Client, log *slog.Logger, m *metrics.Collector) *Syncer {
	return &Syncer{outbox: outbox, remote: client, log: log, metrics: m}
}

// Flush snapshots the entire outbox, submits it as one batch, and discards
// exactly that snapshot on acknowledgment. On any failure the outbox is
// left untouched and the next trigger retries the same batch plus whatever
// was enqueued meanwhile. There is no per-entry partial retry.
//
// Returns the number of delivered entries, or ErrInFlight when collapsed
// into a flush that is already running.
func (s *Syncer) Flush(ctx context.Context) (int, error) {
	// Exactly one flush may run at a time: a second trigger while the
	// round trip is in progress must not double-submit the snapshot.
	if !s.inFlight.CompareAndSwap(false, true) {
		return 0, ErrInFlight
	}
	defer s.inFlight.Store(false)

	snap, err := s.outbox.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("syncer.Syncer.Flush: %w", err)
	}
	if len(snap.Entries) == 0 {
		return 0, nil
	}

	s.metrics.FlushAttempts.Inc()
	if err := s.remote.Append(ctx, snap.Entries); err != nil {
		s.metrics.FlushFailures.Inc()
		s.log.Warn("flush failed; outbox retained",
			"entries", len(snap.Entries), "error", err)
		return 0, fmt.Errorf("syncer.Syncer.Flush: %w", err)
	}

	if err := s.outbox.Discard(ctx, snap); err != nil {
		// The batch is durable remotely but still queued locally; the next
		// flush resubmits it and the store dedups by entry ID.
		return 0, fmt.Errorf("syncer.Syncer.Flush: %w", err)
	}

	s.metrics.EntriesDelivered.Add(float64(len(snap.Entries)))
	s.updateDepth(ctx)
	s.log.Info("outbox flushed", "entries", len(snap.Entries))
	return len(snap.Entries), nil
}

// Online reports the prober's last reachability verdict.
func (s *Syncer) Online() bool {
	return s.online.Load()
}

// RunProber polls the remote store until ctx is cancelled, recording
// reachability and flushing on every offline→online edge. This stands in
// for the browser's online event: connectivity loss is only ever detected
// by failing to reach the store, so a periodic probe is the trigger.
func (s *Syncer) RunProber(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Syncer) probe(ctx context.Context) {
	err := s.remote.Ping(ctx)
	nowOnline := err == nil
	wasOnline := s.online.Swap(nowOnline)

	if nowOnline {
		s.metrics.Online.Set(1)
	} else {
		s.metrics.Online.Set(0)
	}

	if nowOnline && !wasOnline {
		s.log.Info("remote store reachable; flushing outbox")
		if _, err := s.Flush(ctx); err != nil && !errors.Is(err, ErrInFlight) {
			s.log.Warn("flush on reconnect failed", "error", err)
		}
	}
}

// updateDepth refreshes the outbox depth gauge; failures only cost a stale
// metric, never a stale outbox.
func (s *Syncer) updateDepth(ctx context.Context) {
	if n, err := s.outbox.Len(ctx); err == nil {
		s.metrics.OutboxDepth.Set(float64(n))
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/handler"
	"github.com/msabate/transit-logger/internal/metrics"
	"github.com/msabate/transit-logger/internal/trip"
)

// ---- function-field mocks --------------------------------------------------

type mockEngine struct {
	StateFunc            func() domain.TripState
	DraftFunc            func(ctx context.Context) (domain.Draft, error)
	BeginTapFunc         func(ctx context.Context, req trip.BeginRequest) (domain.Draft, error)
	EndTapFunc           func(ctx context.Context, req trip.BeginRequest) (domain.Draft, error)
	ConfirmFunc          func(ctx context.Context, form trip.ConfirmForm) (domain.LogEntry, error)
	CancelFunc           func(ctx context.Context) error
	AddManualJourneyFunc func(ctx context.Context, mj trip.ManualJourney) ([]domain.LogEntry, error)
}

func (m *mockEngine) State() domain.TripState {
	if m.StateFunc == nil {
		return domain.TripState{Phase: domain.PhaseIdle}
	}
	return m.StateFunc()
}

func (m *mockEngine) Draft(ctx context.Context) (domain.Draft, error) {
	if m.DraftFunc == nil {
		return domain.Draft{}, domain.ErrNotFound
	}
	return m.DraftFunc(ctx)
}

func (m *mockEngine) BeginTap(ctx context.Context, req trip.BeginRequest) (domain.Draft, error) {
	return m.BeginTapFunc(ctx, req)
}

func (m *mockEngine) EndTap(ctx context.Context, req trip.BeginRequest) (domain.Draft, error) {
	return m.EndTapFunc(ctx, req)
}

func (m *mockEngine) Confirm(ctx context.Context, form trip.ConfirmForm) (domain.LogEntry, error) {
	return m.ConfirmFunc(ctx, form)
}

func (m *mockEngine) Cancel(ctx context.Context) error { return m.CancelFunc(ctx) }

func (m *mockEngine) AddManualJourney(ctx context.Context, mj trip.ManualJourney) ([]domain.LogEntry, error) {
	return m.AddManualJourneyFunc(ctx, mj)
}

var _ handler.TripEngine = (*mockEngine)(nil)

type mockFlusher struct {
	FlushFunc  func(ctx context.Context) (int, error)
	OnlineFunc func() bool
}

func (m *mockFlusher) Flush(ctx context.Context) (int, error) {
	if m.FlushFunc == nil {
		return 0, nil
	}
	return m.FlushFunc(ctx)
}

func (m *mockFlusher) Online() bool {
	if m.OnlineFunc == nil {
		return false
	}
	return m.OnlineFunc()
}

var _ handler.Flusher = (*mockFlusher)(nil)

type mockQuerier struct {
	QueryFunc func(ctx context.Context, userID string) ([]domain.LogEntry, error)
}

func (m *mockQuerier) Query(ctx context.Context, userID string) ([]domain.LogEntry, error) {
	return m.QueryFunc(ctx, userID)
}

var _ handler.LogQuerier = (*mockQuerier)(nil)

type mockResolver struct {
	NearestFunc func(pos domain.Position) (domain.Station, bool)
}

func (m *mockResolver) Nearest(pos domain.Position) (domain.Station, bool) {
	if m.NearestFunc == nil {
		return domain.Station{}, false
	}
	return m.NearestFunc(pos)
}

var _ handler.StationResolver = (*mockResolver)(nil)

type mockOutboxLen struct {
	LenFunc func(ctx context.Context) (int, error)
}

func (m *mockOutboxLen) Len(ctx context.Context) (int, error) {
	if m.LenFunc == nil {
		return 0, nil
	}
	return m.LenFunc(ctx)
}

var _ handler.OutboxLen = (*mockOutboxLen)(nil)

// deps bundles the mocks a test hands to newTestServer; zero values give
// sensible defaults (idle engine, offline flusher, empty outbox).
type deps struct {
	engine   *mockEngine
	flusher  *mockFlusher
	logs     *mockQuerier
	resolver *mockResolver
	outbox   *mockOutboxLen
}

func newTestServer(d deps) http.Handler {
	if d.engine == nil {
		d.engine = &mockEngine{}
	}
	if d.flusher == nil {
		d.flusher = &mockFlusher{}
	}
	if d.logs == nil {
		d.logs = &mockQuerier{}
	}
	if d.resolver == nil {
		d.resolver = &mockResolver{}
	}
	if d.outbox == nil {
		d.outbox = &mockOutboxLen{}
	}
	srv := handler.NewServer(d.engine, d.flusher, d.logs, d.resolver, d.outbox, metrics.NewCollector())
	return srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody[map[string]map[string]string](t, rec)
	return body["error"]["code"]
}

// ---- health ----------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(deps{}), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

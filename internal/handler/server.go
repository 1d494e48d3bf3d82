// Package handler implements the HTTP surface of the tap logger daemon.
// All handlers are methods on Server; they decode JSON, call the engine,
// and map domain errors to status codes. No business logic lives here and
// no handler touches the local store directly — only the documented engine
// operations may mutate TripState or the outbox.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/metrics"
	"github.com/msabate/transit-logger/internal/trip"
)

// TripEngine defines the state-machine operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without a real store behind it.
type TripEngine interface {
	State() domain.TripState
	Draft(ctx context.Context) (domain.Draft, error)
	BeginTap(ctx context.Context, req trip.BeginRequest) (domain.Draft, error)
	EndTap(ctx context.Context, req trip.BeginRequest) (domain.Draft, error)
	Confirm(ctx context.Context, form trip.ConfirmForm) (domain.LogEntry, error)
	Cancel(ctx context.Context) error
	AddManualJourney(ctx context.Context, mj trip.ManualJourney) ([]domain.LogEntry, error)
}

// Flusher is the slice of the sync engine the handlers need.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
	Online() bool
}

// LogQuerier reads back stored entries for the journey view.
type LogQuerier interface {
	Query(ctx context.Context, userID string) ([]domain.LogEntry, error)
}

// StationResolver answers nearest-station lookups.
type StationResolver interface {
	Nearest(pos domain.Position) (domain.Station, bool)
}

// OutboxLen reports the current outbox depth for the status endpoint.
type OutboxLen interface {
	Len(ctx context.Context) (int, error)
}

// Server holds the handler dependencies. Methods live in per-resource
// files (tap.go, sync.go, journeys.go, stations.go) but all operate on
// this struct.
type Server struct {
	engine   TripEngine
	flusher  Flusher
	logs     LogQuerier
	resolver StationResolver
	outbox   OutboxLen
	metrics  *metrics.Collector
}

// NewServer constructs the Server with all its dependencies.
func NewServer(engine TripEngine, flusher Flusher, logs LogQuerier, resolver StationResolver, outbox OutboxLen, m *metrics.Collector) *Server {
	return &Server{engine: engine, flusher: flusher, logs: logs, resolver: resolver, outbox: outbox, metrics: m}
}

// Routes returns the chi router for the full API surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Post("/sync", s.handleSync)

		api.Post("/tap/on", s.handleTapOn)
		api.Post("/tap/off", s.handleTapOff)
		api.Post("/tap/confirm", s.handleConfirm)
		api.Post("/tap/cancel", s.handleCancel)

		api.Get("/journeys", s.handleListJourneys)
		api.Post("/journeys", s.handleAddManualJourney)

		api.Get("/stations/nearest", s.handleNearestStation)
	})

	return r
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into dest, rejecting unknown fields
// so client typos surface as 422s instead of silently dropped data.
func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

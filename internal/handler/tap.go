package handler

import (
	"context"
	"net/http"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/trip"
)

// tapRequest is the body of POST /api/tap/on and /api/tap/off.
// Lat/Lon are optional: taps made without a fix are still recorded,
// just without a geolocation snapshot.
type tapRequest struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

// confirmRequest is the body of POST /api/tap/confirm.
type confirmRequest struct {
	Station string `json:"station,omitempty"`
	Line    string `json:"line,omitempty"`
	Car     string `json:"car,omitempty"`
}

// handleTapOn handles POST /api/tap/on.
func (s *Server) handleTapOn(w http.ResponseWriter, r *http.Request) {
	var body tapRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}

	draft, err := s.engine.BeginTap(r.Context(), s.beginRequest(body))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleTapOff handles POST /api/tap/off.
func (s *Server) handleTapOff(w http.ResponseWriter, r *http.Request) {
	var body tapRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}

	draft, err := s.engine.EndTap(r.Context(), s.beginRequest(body))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleConfirm handles POST /api/tap/confirm. On success the confirmed
// entry sits in the outbox; when the remote store is reachable a background
// flush is kicked off immediately so an online tap syncs without waiting
// for the next prober tick.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body confirmRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}

	entry, err := s.engine.Confirm(r.Context(), trip.ConfirmForm{
		Station: body.Station,
		Line:    body.Line,
		Car:     body.Car,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	s.metrics.TapsRecorded.WithLabelValues(string(entry.Action)).Inc()
	s.kickFlush()

	writeJSON(w, http.StatusCreated, entry)
}

// handleCancel handles POST /api/tap/cancel.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Cancel(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// beginRequest maps a tap body to the engine request, attaching the
// nearest-station guess when a position was supplied.
func (s *Server) beginRequest(body tapRequest) trip.BeginRequest {
	req := trip.BeginRequest{UserID: body.UserID, Email: body.Email}
	if body.Lat != nil && body.Lon != nil {
		pos := domain.Position{Lat: *body.Lat, Lon: *body.Lon}
		req.Pos = &pos
		if station, ok := s.resolver.Nearest(pos); ok {
			req.Guess = &station
		}
	}
	return req
}

// kickFlush starts a best-effort background flush when online. Errors are
// already logged and counted inside the syncer; the request that triggered
// the flush never waits on the network.
func (s *Server) kickFlush() {
	if s.flusher == nil || !s.flusher.Online() {
		return
	}
	go func() {
		_, _ = s.flusher.Flush(context.Background())
	}()
}

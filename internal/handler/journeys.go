package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/journey"
	"github.com/msabate/transit-logger/internal/trip"
)

// manualJourneyRequest is the body of POST /api/journeys: a trip entered by
// hand in the editor. End/to are optional; a one-sided entry creates an
// open journey.
type manualJourneyRequest struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email,omitempty"`
	FromStation string     `json:"from_station"`
	ToStation   string     `json:"to_station,omitempty"`
	Line        string     `json:"line"`
	Car         string     `json:"car,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// handleListJourneys handles GET /api/journeys?user_id=...
// Journeys are derived on the fly from the remote log; they are a display
// projection, never stored.
func (s *Server) handleListJourneys(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user_id query parameter is required")
		return
	}

	entries, err := s.logs.Query(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	journeys := journey.Pair(entries)
	writeJSON(w, http.StatusOK, map[string][]domain.Journey{"data": journeys})
}

// handleAddManualJourney handles POST /api/journeys.
func (s *Server) handleAddManualJourney(w http.ResponseWriter, r *http.Request) {
	var body manualJourneyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}

	mj := trip.ManualJourney{
		UserID:      body.UserID,
		Email:       body.Email,
		FromStation: body.FromStation,
		ToStation:   body.ToStation,
		Line:        body.Line,
		Car:         body.Car,
		StartedAt:   body.StartedAt,
	}
	if body.EndedAt != nil {
		mj.EndedAt = *body.EndedAt
	}

	entries, err := s.engine.AddManualJourney(r.Context(), mj)
	if err != nil {
		respondError(w, err)
		return
	}

	s.metrics.TapsRecorded.WithLabelValues("manual").Add(float64(len(entries)))
	s.kickFlush()

	writeJSON(w, http.StatusCreated, map[string][]domain.LogEntry{"data": entries})
}

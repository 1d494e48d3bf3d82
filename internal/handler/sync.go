package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/msabate/transit-logger/internal/domain"
	"github.com/msabate/transit-logger/internal/syncer"
)

// statusResponse is the body of GET /api/status: everything the UI needs
// to render the trip banner, the sync button badge, and the online dot.
type statusResponse struct {
	Phase     domain.Phase  `json:"phase"`
	JourneyID *uuid.UUID    `json:"journey_id,omitempty"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Draft     *domain.Draft `json:"draft,omitempty"`
	Online    bool          `json:"online"`
	Outbox    int           `json:"outbox"`
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()

	resp := statusResponse{Phase: state.Phase, Online: s.flusher.Online()}
	if state.Phase != domain.PhaseIdle {
		id := state.JourneyID
		started := state.StartedAt
		resp.JourneyID = &id
		resp.StartedAt = &started
	}
	if draft, err := s.engine.Draft(r.Context()); err == nil {
		resp.Draft = &draft
	}
	if n, err := s.outbox.Len(r.Context()); err == nil {
		resp.Outbox = n
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSync handles POST /api/sync, the manual flush button. Responds 202
// when a flush is already in flight — the tapping user's entries are part
// of that snapshot or will ride the next trigger.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	delivered, err := s.flusher.Flush(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrInFlight) {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync already running"})
			return
		}
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/msabate/transit-logger/internal/domain"
)

// handleNearestStation handles GET /api/stations/nearest?lat=...&lon=...
// It is a passthrough to the resolver so the UI can show the guess before
// the user taps.
func (s *Server) handleNearestStation(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "lat and lon query parameters are required")
		return
	}

	station, ok := s.resolver.Nearest(domain.Position{Lat: lat, Lon: lon})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no station dataset loaded")
		return
	}
	writeJSON(w, http.StatusOK, station)
}

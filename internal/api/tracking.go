package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// PositionRequest is the body of POST /positions.
type PositionRequest struct {
	Timestamp *time.Time `json:"timestamp"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
}

// RegionEventRequest is the body of POST /regions/events.
type RegionEventRequest struct {
	Type     string `json:"type"`
	RegionID string `json:"region_id"`
	Reason   string `json:"reason"`
}

func (s *Server) postPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if req.Timestamp == nil || req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "timestamp, latitude and longitude are required")
		return
	}

	pos := domain.Position{
		Timestamp: req.Timestamp.UTC(),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if err := pos.Validate(); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	if err := s.submit.SubmitPosition(r.Context(), pos); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// postRegionEvent accepts events from an external monitoring platform.
// Region ids are passed through untouched; unknown ids are the state
// machine's concern.
func (s *Server) postRegionEvent(w http.ResponseWriter, r *http.Request) {
	var req RegionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	ev := domain.RegionEvent{
		Type:       domain.RegionEventType(req.Type),
		RegionID:   req.RegionID,
		Reason:     req.Reason,
		ReceivedAt: time.Now().UTC(),
	}
	switch ev.Type {
	case domain.RegionEntered, domain.RegionExited, domain.RegionMonitoringFailed:
	default:
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "type must be entered, exited or monitoring_failed")
		return
	}

	if err := s.submit.SubmitEvent(r.Context(), ev); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

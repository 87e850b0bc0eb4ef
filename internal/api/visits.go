package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
	"github.com/vietddude/zonewatch/internal/tracking/report"
)

// VisitResponse is the API form of a visit log.
type VisitResponse struct {
	ID        uuid.UUID `json:"id"`
	ZoneID    uuid.UUID `json:"zone_id"`
	ZoneName  string    `json:"zone_name"`
	Entry     time.Time `json:"entry"`
	Exit      time.Time `json:"exit"`
	Duration  string    `json:"duration"`
	DurationS int64     `json:"duration_seconds"`
}

func visitToResponse(v *domain.VisitLog) VisitResponse {
	d := v.Duration()
	return VisitResponse{
		ID:        v.ID,
		ZoneID:    v.ZoneID,
		ZoneName:  v.ZoneName,
		Entry:     v.Entry,
		Exit:      v.Exit,
		Duration:  domain.FormatDuration(d),
		DurationS: int64(d / time.Second),
	}
}

// parseFilter reads zone_id (repeatable), from, to and limit.
func parseFilter(r *http.Request) (storage.VisitLogFilter, string) {
	var f storage.VisitLogFilter
	q := r.URL.Query()

	for _, raw := range q["zone_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, "invalid zone_id"
		}
		f.ZoneIDs = append(f.ZoneIDs, id)
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, "from must be RFC3339"
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, "to must be RFC3339"
		}
		f.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, "limit must be a non-negative integer"
		}
		f.Limit = n
	}
	return f, ""
}

func (s *Server) listVisits(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, "bad_request", problem)
		return
	}

	logs, err := s.visits.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	data := make([]VisitResponse, len(logs))
	for i, v := range logs {
		data[i] = visitToResponse(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, "bad_request", problem)
		return
	}
	filter.Limit = 0

	zones, err := s.zones.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	logs, err := s.visits.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(zones, logs))
}

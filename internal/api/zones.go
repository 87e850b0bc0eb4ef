package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// ZoneRequest is the body of POST and PUT /zones.
type ZoneRequest struct {
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Category  string  `json:"category"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// ZoneResponse is the API form of a zone.
type ZoneResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Icon        string     `json:"icon,omitempty"`
	Category    string     `json:"category"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Radius      float64    `json:"radius"`
	Inside      bool       `json:"inside"`
	ActiveEntry *time.Time `json:"active_entry,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func zoneToResponse(z *domain.Zone) ZoneResponse {
	return ZoneResponse{
		ID:          z.ID,
		Name:        z.Name,
		Icon:        z.Icon,
		Category:    string(z.Category),
		Latitude:    z.Latitude,
		Longitude:   z.Longitude,
		Radius:      z.Radius,
		Inside:      z.Inside(),
		ActiveEntry: z.ActiveEntry,
		CreatedAt:   z.CreatedAt,
		UpdatedAt:   z.UpdatedAt,
	}
}

func (req ZoneRequest) toDomain() domain.Zone {
	return domain.Zone{
		Name:      req.Name,
		Icon:      req.Icon,
		Category:  domain.Category(req.Category),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Radius:    req.Radius,
	}
}

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.zones.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	data := make([]ZoneResponse, len(zones))
	for i, z := range zones {
		data[i] = zoneToResponse(z)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) createZone(w http.ResponseWriter, r *http.Request) {
	var req ZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	created, err := s.zones.Create(r.Context(), req.toDomain())
	if err != nil {
		s.writeServiceError(w, r, err, "zone not found")
		return
	}
	writeJSON(w, http.StatusCreated, zoneToResponse(created))
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	z, err := s.zones.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "zone not found")
		return
	}
	writeJSON(w, http.StatusOK, zoneToResponse(z))
}

func (s *Server) updateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	var req ZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	zone := req.toDomain()
	zone.ID = id
	updated, err := s.zones.Update(r.Context(), zone)
	if err != nil {
		s.writeServiceError(w, r, err, "zone not found")
		return
	}
	writeJSON(w, http.StatusOK, zoneToResponse(updated))
}

func (s *Server) deleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	if err := s.zones.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "zone not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func zoneID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid zone id")
		return uuid.Nil, false
	}
	return id, true
}

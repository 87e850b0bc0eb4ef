// Package api implements the REST surface for zone editing, event and
// position ingestion, and visit history.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// ZoneServicer is the zone editing boundary the handlers depend on.
type ZoneServicer interface {
	Create(ctx context.Context, zone domain.Zone) (*domain.Zone, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Zone, error)
	List(ctx context.Context) ([]*domain.Zone, error)
	Update(ctx context.Context, zone domain.Zone) (*domain.Zone, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Submitter hands samples and events to the tracking processor.
type Submitter interface {
	SubmitPosition(ctx context.Context, pos domain.Position) error
	SubmitEvent(ctx context.Context, ev domain.RegionEvent) error
}

// VisitLister reads the visit log.
type VisitLister interface {
	List(ctx context.Context, filter storage.VisitLogFilter) ([]*domain.VisitLog, error)
}

// Server holds handler dependencies.
type Server struct {
	zones  ZoneServicer
	submit Submitter
	visits VisitLister
	log    *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(zones ZoneServicer, submit Submitter, visits VisitLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{zones: zones, submit: submit, visits: visits, log: logger}
}

// Routes returns the API router. Mount it under /api/v1.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewSlogLogger(s.log))
	r.Use(chimiddleware.Recoverer)

	r.Route("/zones", func(r chi.Router) {
		r.Get("/", s.listZones)
		r.Post("/", s.createZone)
		r.Get("/{id}", s.getZone)
		r.Put("/{id}", s.updateZone)
		r.Delete("/{id}", s.deleteZone)
	})
	r.Post("/positions", s.postPosition)
	r.Post("/regions/events", s.postRegionEvent)
	r.Get("/visits", s.listVisits)
	r.Get("/report", s.getReport)

	return r
}

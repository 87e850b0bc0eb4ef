// Package zones is the editing boundary for zones. It validates input,
// persists through the zone repository and keeps region monitoring in step.
package zones

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

// RegionMonitor is the part of the region monitor the service drives.
type RegionMonitor interface {
	StartMonitoring(ctx context.Context, zone *domain.Zone) error
	StopMonitoring(ctx context.Context, zoneID uuid.UUID)
}

// Service implements zone create, update and delete.
type Service struct {
	repo    storage.ZoneRepository
	monitor RegionMonitor
	log     *slog.Logger
}

// NewService constructs a Service. A nil monitor disables registration.
func NewService(repo storage.ZoneRepository, monitor RegionMonitor) *Service {
	return &Service{
		repo:    repo,
		monitor: monitor,
		log:     slog.Default().With("component", "zones"),
	}
}

// Create validates and persists a new zone, then starts monitoring it.
// A registration failure does not fail the create.
func (s *Service) Create(ctx context.Context, zone domain.Zone) (*domain.Zone, error) {
	z := normalize(zone)
	z.ID = uuid.Nil
	z.ActiveEntry = nil
	if err := z.Validate(); err != nil {
		return nil, fmt.Errorf("service.ZoneService.Create: %w", err)
	}

	if err := s.repo.Create(ctx, z); err != nil {
		return nil, fmt.Errorf("service.ZoneService.Create: %w", err)
	}
	s.startMonitoring(ctx, z)
	return z, nil
}

// Get returns a zone by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Zone, error) {
	z, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.ZoneService.Get: %w", err)
	}
	return z, nil
}

// List returns every zone ordered by name. The result is never nil.
func (s *Service) List(ctx context.Context) ([]*domain.Zone, error) {
	zones, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ZoneService.List: %w", err)
	}
	if zones == nil {
		return []*domain.Zone{}, nil
	}
	return zones, nil
}

// Update replaces a zone's geometry and display fields. Monitoring is stopped
// before the new geometry is stored and restarted afterwards. The entered
// state is left to the state machine.
func (s *Service) Update(ctx context.Context, zone domain.Zone) (*domain.Zone, error) {
	z := normalize(zone)
	if err := z.Validate(); err != nil {
		return nil, fmt.Errorf("service.ZoneService.Update: %w", err)
	}
	if _, err := s.repo.Get(ctx, z.ID); err != nil {
		return nil, fmt.Errorf("service.ZoneService.Update: %w", err)
	}

	if s.monitor != nil {
		s.monitor.StopMonitoring(ctx, z.ID)
	}
	if err := s.repo.Update(ctx, z); err != nil {
		// Keep the old geometry monitored.
		if old, getErr := s.repo.Get(ctx, z.ID); getErr == nil {
			s.startMonitoring(ctx, old)
		}
		return nil, fmt.Errorf("service.ZoneService.Update: %w", err)
	}

	updated, err := s.repo.Get(ctx, z.ID)
	if err != nil {
		return nil, fmt.Errorf("service.ZoneService.Update: %w", err)
	}
	s.startMonitoring(ctx, updated)
	return updated, nil
}

// Delete stops monitoring and removes the zone. Its visit logs are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return fmt.Errorf("service.ZoneService.Delete: %w", err)
	}
	if s.monitor != nil {
		s.monitor.StopMonitoring(ctx, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.ZoneService.Delete: %w", err)
	}
	return nil
}

func (s *Service) startMonitoring(ctx context.Context, z *domain.Zone) {
	if s.monitor == nil {
		return
	}
	if err := s.monitor.StartMonitoring(ctx, z); err != nil {
		s.log.Warn("Zone saved but not monitored, reconciliation still covers it",
			"zone_id", z.ID, "zone", z.Name, "error", err)
	}
}

func normalize(zone domain.Zone) *domain.Zone {
	z := zone
	z.Name = strings.TrimSpace(z.Name)
	z.Icon = strings.TrimSpace(z.Icon)
	z.Category = z.Category.OrDefault()
	return &z
}

// Package region keeps the platform's monitored region set in step with the
// zone store while respecting the platform's ceiling on concurrent regions.
package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/tracking/metrics"
)

// DefaultMaxRegions is the platform ceiling on concurrently monitored regions.
const DefaultMaxRegions = 20

// ErrRegistration is returned when the platform refuses a region.
var ErrRegistration = errors.New("region registration failed")

// Config holds monitor settings.
type Config struct {
	MaxRegions int
	Policy     EvictionPolicy
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Status is a snapshot of the monitored set.
type Status struct {
	Monitored         int        `json:"monitored"`
	MaxRegions        int        `json:"max_regions"`
	Policy            string     `json:"eviction_policy"`
	Evictions         int        `json:"evictions"`
	Failures          int        `json:"failures"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty"`
	LastFailureReason string     `json:"last_failure_reason,omitempty"`
}

type entry struct {
	region       domain.Region
	lastActivity time.Time
}

// Monitor registers zones with the platform, evicting one region before
// adding when the ceiling is reached. Region ids are zone ids.
type Monitor struct {
	platform   Platform
	policy     EvictionPolicy
	maxRegions int
	now        func() time.Time
	log        *slog.Logger

	mu          sync.Mutex
	regions     map[string]*entry
	evictions   int
	failures    int
	lastFailure *time.Time
	lastReason  string
}

// NewMonitor creates a monitor over platform.
func NewMonitor(platform Platform, cfg Config) *Monitor {
	if cfg.MaxRegions <= 0 {
		cfg.MaxRegions = DefaultMaxRegions
	}
	if cfg.Policy == nil {
		cfg.Policy = LeastRecent{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{
		platform:   platform,
		policy:     cfg.Policy,
		maxRegions: cfg.MaxRegions,
		now:        cfg.Clock,
		log:        cfg.Logger.With("component", "region_monitor"),
		regions:    make(map[string]*entry),
	}
}

// StartMonitoring registers the zone's circle. Failures are logged and
// returned; the zone is still covered by reconciliation.
func (m *Monitor) StartMonitoring(ctx context.Context, zone *domain.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx, zone)
}

func (m *Monitor) startLocked(ctx context.Context, zone *domain.Zone) error {
	if err := domain.ValidateGeometry(zone.Latitude, zone.Longitude, zone.Radius); err != nil {
		m.log.Warn("Refusing to monitor zone with invalid geometry", "zone_id", zone.ID, "error", err)
		return err
	}

	r := domain.RegionFor(zone)
	var evicted []*entry
	if _, ok := m.regions[r.ID]; !ok {
		for len(m.regions) >= m.maxRegions {
			evicted = append(evicted, m.evictLocked(ctx))
		}
	}

	if err := m.platform.Register(ctx, r); err != nil {
		delete(m.regions, r.ID)
		m.recordFailureLocked(err.Error())
		m.log.Warn("Failed to register region", "zone_id", zone.ID, "zone", zone.Name, "error", err)
		m.restoreLocked(ctx, evicted)
		return fmt.Errorf("%w: zone %s: %w", ErrRegistration, zone.ID, err)
	}

	m.regions[r.ID] = &entry{region: r, lastActivity: m.now()}
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
	m.log.Debug("Monitoring region", "zone_id", zone.ID, "zone", zone.Name, "count", len(m.regions))
	return nil
}

// restoreLocked re-registers regions evicted for a registration that then failed.
func (m *Monitor) restoreLocked(ctx context.Context, evicted []*entry) {
	for _, e := range evicted {
		if err := m.platform.Register(ctx, e.region); err != nil {
			m.log.Warn("Failed to restore evicted region", "region_id", e.region.ID, "error", err)
			continue
		}
		m.regions[e.region.ID] = e
		m.log.Info("Restored evicted region", "region_id", e.region.ID)
	}
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
}

func (m *Monitor) evictLocked(ctx context.Context) *entry {
	candidates := make([]Candidate, 0, len(m.regions))
	for id, e := range m.regions {
		candidates = append(candidates, Candidate{RegionID: id, LastActivity: e.lastActivity})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].RegionID < candidates[j].RegionID })

	victim := m.policy.SelectVictim(candidates)
	e := m.regions[victim]
	if err := m.platform.Unregister(ctx, victim); err != nil {
		m.log.Warn("Failed to unregister evicted region", "region_id", victim, "error", err)
	}
	delete(m.regions, victim)
	m.evictions++
	metrics.RegionEvictions.Inc()
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
	m.log.Info("Evicted region to stay under ceiling",
		"region_id", victim, "policy", m.policy.Name(), "max_regions", m.maxRegions)
	return e
}

// StopMonitoring deregisters a zone's region. It never fails.
func (m *Monitor) StopMonitoring(ctx context.Context, zoneID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := zoneID.String()
	if _, ok := m.regions[id]; !ok {
		return
	}
	if err := m.platform.Unregister(ctx, id); err != nil {
		m.log.Warn("Failed to unregister region", "zone_id", zoneID, "error", err)
	}
	delete(m.regions, id)
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
}

// ReconcileAll clears every monitored region and registers each zone again.
// Outside zones are registered first so that, over the ceiling, zones with a
// visit in progress are the ones left monitored.
func (m *Monitor) ReconcileAll(ctx context.Context, zones []*domain.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale := make(map[string]struct{}, len(m.regions))
	for id := range m.regions {
		stale[id] = struct{}{}
	}
	for _, id := range m.platform.Monitored() {
		stale[id] = struct{}{}
	}
	for id := range stale {
		if err := m.platform.Unregister(ctx, id); err != nil {
			m.log.Warn("Failed to clear region", "region_id", id, "error", err)
		}
	}
	m.regions = make(map[string]*entry)

	ordered := make([]*domain.Zone, 0, len(zones))
	for _, z := range zones {
		if !z.Inside() {
			ordered = append(ordered, z)
		}
	}
	for _, z := range zones {
		if z.Inside() {
			ordered = append(ordered, z)
		}
	}

	var failed int
	for _, z := range ordered {
		if err := m.startLocked(ctx, z); err != nil {
			failed++
		}
	}
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
	m.log.Info("Reconciled monitored regions",
		"zones", len(zones), "monitored", len(m.regions), "failed", failed)
}

// Touch marks a region as recently active.
func (m *Monitor) Touch(regionID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.regions[regionID]; ok && at.After(e.lastActivity) {
		e.lastActivity = at
	}
}

// HandleMonitoringFailed drops a region the platform stopped monitoring.
// The region is also unregistered, since the report may come from outside
// the platform that holds it.
func (m *Monitor) HandleMonitoringFailed(ev domain.RegionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.platform.Unregister(context.Background(), ev.RegionID); err != nil {
		m.log.Warn("Failed to unregister failed region", "region_id", ev.RegionID, "error", err)
	}
	delete(m.regions, ev.RegionID)
	m.recordFailureLocked(ev.Reason)
	metrics.MonitoredRegions.Set(float64(len(m.regions)))
	m.log.Warn("Monitoring failed for region, relying on reconciliation",
		"region_id", ev.RegionID, "reason", ev.Reason)
}

func (m *Monitor) recordFailureLocked(reason string) {
	now := m.now()
	m.failures++
	m.lastFailure = &now
	m.lastReason = reason
	metrics.RegistrationFailures.Inc()
}

// IsMonitored reports whether a zone's region is registered.
func (m *Monitor) IsMonitored(zoneID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.regions[zoneID.String()]
	return ok
}

// Monitored returns the monitored region ids sorted.
func (m *Monitor) Monitored() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.regions))
	for id := range m.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of monitored regions.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regions)
}

// Status returns a snapshot for health reporting.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Monitored:         len(m.regions),
		MaxRegions:        m.maxRegions,
		Policy:            m.policy.Name(),
		Evictions:         m.evictions,
		Failures:          m.failures,
		LastFailureAt:     m.lastFailure,
		LastFailureReason: m.lastReason,
	}
}

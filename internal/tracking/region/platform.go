package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/core/geo"
)

// ErrMonitoringUnavailable is returned when the platform cannot monitor regions.
var ErrMonitoringUnavailable = errors.New("region monitoring unavailable")

// Platform is the geofencing primitive regions are registered with.
type Platform interface {
	// Register starts monitoring a circle; re-registering an id replaces it.
	Register(ctx context.Context, r domain.Region) error

	// Unregister stops monitoring an id. Unknown ids are not an error.
	Unregister(ctx context.Context, regionID string) error

	// Monitored returns the ids the platform currently watches, in platform order.
	Monitored() []string
}

// SoftwarePlatform monitors regions in process. Fed position samples through
// Observe, it reports entered/exited events on containment edges. Edge events
// are returned to the caller so they are applied in the same step as the
// sample that caused them; only monitoring failures go through Events.
type SoftwarePlatform struct {
	mu      sync.Mutex
	enabled bool
	order   []string
	regions map[string]domain.Region
	inside  map[string]bool
	events  chan domain.RegionEvent
	now     func() time.Time
	log     *slog.Logger
}

// NewSoftwarePlatform creates a platform whose event channel holds buffer events.
func NewSoftwarePlatform(enabled bool, buffer int) *SoftwarePlatform {
	if buffer <= 0 {
		buffer = 64
	}
	return &SoftwarePlatform{
		enabled: enabled,
		regions: make(map[string]domain.Region),
		inside:  make(map[string]bool),
		events:  make(chan domain.RegionEvent, buffer),
		now:     time.Now,
		log:     slog.Default().With("component", "software_platform"),
	}
}

// Events delivers monitoring_failed events to the processor.
func (p *SoftwarePlatform) Events() <-chan domain.RegionEvent {
	return p.events
}

// SetEnabled toggles monitoring capability. Disabling drops every region
// and reports monitoring_failed for each.
func (p *SoftwarePlatform) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
	if enabled {
		return
	}
	for _, id := range p.order {
		p.emitLocked(domain.RegionEvent{
			Type:     domain.RegionMonitoringFailed,
			RegionID: id,
			Reason:   "monitoring disabled",
		})
	}
	p.order = nil
	p.regions = make(map[string]domain.Region)
	p.inside = make(map[string]bool)
}

func (p *SoftwarePlatform) Register(ctx context.Context, r domain.Region) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return ErrMonitoringUnavailable
	}
	if err := domain.ValidateGeometry(r.Latitude, r.Longitude, r.Radius); err != nil {
		return fmt.Errorf("invalid region %s: %w", r.ID, err)
	}
	if _, ok := p.regions[r.ID]; !ok {
		p.order = append(p.order, r.ID)
	}
	p.regions[r.ID] = r
	p.inside[r.ID] = false
	return nil
}

func (p *SoftwarePlatform) Unregister(ctx context.Context, regionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(regionID)
	return nil
}

func (p *SoftwarePlatform) Monitored() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, len(p.order))
	copy(ids, p.order)
	return ids
}

// Observe checks a sample against every region and returns edge events.
func (p *SoftwarePlatform) Observe(pos domain.Position) []domain.RegionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []domain.RegionEvent
	for _, id := range p.order {
		r := p.regions[id]
		contained := geo.Contains(r.Latitude, r.Longitude, r.Radius, pos.Latitude, pos.Longitude)
		if contained == p.inside[id] {
			continue
		}
		p.inside[id] = contained
		typ := domain.RegionExited
		if contained {
			typ = domain.RegionEntered
		}
		events = append(events, domain.RegionEvent{Type: typ, RegionID: id, ReceivedAt: p.now()})
	}
	return events
}

// Fail drops a region and reports monitoring_failed for it.
func (p *SoftwarePlatform) Fail(regionID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.regions[regionID]; !ok {
		return
	}
	p.removeLocked(regionID)
	p.emitLocked(domain.RegionEvent{
		Type:     domain.RegionMonitoringFailed,
		RegionID: regionID,
		Reason:   reason,
	})
}

func (p *SoftwarePlatform) removeLocked(regionID string) {
	if _, ok := p.regions[regionID]; !ok {
		return
	}
	delete(p.regions, regionID)
	delete(p.inside, regionID)
	for i, id := range p.order {
		if id == regionID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *SoftwarePlatform) emitLocked(ev domain.RegionEvent) {
	ev.ReceivedAt = p.now()
	select {
	case p.events <- ev:
	default:
		p.log.Warn("Region event channel full, dropping event", "type", ev.Type, "region_id", ev.RegionID)
	}
}

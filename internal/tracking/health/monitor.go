package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/zonewatch/internal/core/transition"
	"github.com/vietddude/zonewatch/internal/tracking/region"
)

// StoreChecker reports whether persistence is reachable.
type StoreChecker interface {
	Health(ctx context.Context) error
}

// RegionStatusProvider exposes the monitored region set.
type RegionStatusProvider interface {
	Status() region.Status
}

// TrackingMetricsProvider exposes transition history and failure counters.
type TrackingMetricsProvider interface {
	GetMetrics() transition.Metrics
}

// Config holds health thresholds.
type Config struct {
	// StaleAfter is how long without a position before tracking is degraded.
	StaleAfter time.Duration
	// FailureWindow is how long a persistence or monitoring failure degrades health.
	FailureWindow time.Duration
	// CacheFor rate limits full checks.
	CacheFor time.Duration
	Clock    func() time.Time
}

// Monitor aggregates health status from the store, region monitor and
// state machine.
type Monitor struct {
	cfg       Config
	store     StoreChecker
	regions   RegionStatusProvider
	tracking  TrackingMetricsProvider
	startedAt time.Time
	lastCheck time.Time
	last      *HealthReport
	mu        sync.Mutex
	log       *slog.Logger
}

// NewMonitor creates a new health monitor.
func NewMonitor(
	cfg Config,
	store StoreChecker,
	regions RegionStatusProvider,
	tracking TrackingMetricsProvider,
) *Monitor {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 5 * time.Minute
	}
	if cfg.CacheFor <= 0 {
		cfg.CacheFor = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Monitor{
		cfg:       cfg,
		store:     store,
		regions:   regions,
		tracking:  tracking,
		startedAt: cfg.Clock(),
		log:       slog.Default().With("component", "health"),
	}
}

// CheckHealth evaluates every component. Results are cached for CacheFor.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock()
	if m.last != nil && now.Sub(m.lastCheck) < m.cfg.CacheFor {
		return *m.last
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
		CheckedAt:    now,
	}

	// 1. Store
	store := ComponentHealth{Status: StatusHealthy}
	if err := m.store.Health(ctx); err != nil {
		store = ComponentHealth{Status: StatusCritical, Message: err.Error()}
	}
	report.Components["store"] = store

	// 2. Region monitoring
	report.Regions = m.regions.Status()
	monitoring := ComponentHealth{Status: StatusHealthy}
	if f := report.Regions.LastFailureAt; f != nil && now.Sub(*f) < m.cfg.FailureWindow {
		monitoring = ComponentHealth{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("monitoring failure: %s", report.Regions.LastFailureReason),
		}
	}
	report.Components["monitoring"] = monitoring

	// 3. Transitions and position feed
	report.Tracking = m.tracking.GetMetrics()
	tracking := ComponentHealth{Status: StatusHealthy}
	if f := report.Tracking.LastPersistFailure; f != nil && now.Sub(*f) < m.cfg.FailureWindow {
		tracking = ComponentHealth{Status: StatusDegraded, Message: "recent persistence failure"}
	}
	report.Components["tracking"] = tracking

	// Freshness is judged by receipt time; device timestamps may drift.
	feed := ComponentHealth{Status: StatusHealthy}
	lastPosition := m.startedAt
	if p := report.Tracking.LastPositionAt; p != nil {
		lastPosition = *p
	}
	if now.Sub(lastPosition) > m.cfg.StaleAfter {
		feed = ComponentHealth{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no position for %s", now.Sub(lastPosition).Round(time.Second)),
		}
	}
	report.Components["position_feed"] = feed

	// Worst component wins
	for _, c := range report.Components {
		if c.Status.rank() > report.SystemStatus.rank() {
			report.SystemStatus = c.Status
		}
	}

	if m.last != nil && m.last.SystemStatus != report.SystemStatus {
		m.log.Warn("Health status changed", "from", m.last.SystemStatus, "to", report.SystemStatus)
	}

	m.lastCheck = now
	m.last = &report
	return report
}

// Start runs periodic checks so status changes are logged without traffic.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CacheFor)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckHealth(ctx)
		}
	}
}

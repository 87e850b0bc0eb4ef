// Package transition owns the per-zone Outside/Inside state machine.
// Native region events and position reconciliation both funnel into the
// same enter/exit functions behind one lock.
package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/core/geo"
	"github.com/vietddude/zonewatch/internal/infra/storage"
	"github.com/vietddude/zonewatch/internal/tracking/metrics"
	"github.com/vietddude/zonewatch/internal/tracking/recovery"
)

// DefaultMinVisitDuration is the shortest stay that produces a visit log.
const DefaultMinVisitDuration = 60 * time.Second

// DefaultMaxClockSkew is how far ahead of the service clock a sample may be.
const DefaultMaxClockSkew = 5 * time.Minute

// ErrPersist is returned when a decided transition could not be committed.
// The zone keeps its previous state and the next reconciliation retries it.
var ErrPersist = errors.New("transition not persisted")

// Notifier receives user-visible messages for applied transitions.
// Implementations must not block.
type Notifier interface {
	NotifyArrival(zoneName string)
	NotifyDeparture(zoneName, formattedDuration string)
}

// Config holds state machine settings.
type Config struct {
	MinVisitDuration time.Duration
	MaxClockSkew     time.Duration
	HistorySize      int
	Retry            recovery.RetryStrategy
	Clock            func() time.Time
	Logger           *slog.Logger
}

// Machine applies transitions for every zone in the store.
type Machine struct {
	store    storage.Store
	notifier Notifier
	minVisit time.Duration
	maxSkew  time.Duration
	retry    recovery.RetryStrategy
	now      func() time.Time
	log      *slog.Logger

	mu         sync.Mutex
	lastSample *domain.Position
	history    *HistoryCollector
	callback   func(Transition)
}

// NewMachine creates a state machine over store. A nil notifier disables
// notifications.
func NewMachine(store storage.Store, notifier Notifier, cfg Config) *Machine {
	if cfg.MinVisitDuration <= 0 {
		cfg.MinVisitDuration = DefaultMinVisitDuration
	}
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = DefaultMaxClockSkew
	}
	if cfg.Retry == nil {
		cfg.Retry = recovery.DefaultBackoff(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Machine{
		store:    store,
		notifier: notifier,
		minVisit: cfg.MinVisitDuration,
		maxSkew:  cfg.MaxClockSkew,
		retry:    cfg.Retry,
		now:      cfg.Clock,
		log:      cfg.Logger.With("component", "transition"),
		history:  NewHistoryCollector(cfg.HistorySize),
	}
}

// SetTransitionCallback registers a callback for applied transitions.
// It runs with the machine lock held and must not call back into the machine.
func (m *Machine) SetTransitionCallback(fn func(t Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = fn
}

// GetMetrics returns transition history and failure counters.
func (m *Machine) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.GetMetrics()
}

// HandleRegionEvent applies a native entered/exited event. Unknown or
// malformed region ids are logged and ignored.
func (m *Machine) HandleRegionEvent(ctx context.Context, ev domain.RegionEvent) error {
	metrics.RegionEvents.WithLabelValues(string(ev.Type)).Inc()

	if ev.Type != domain.RegionEntered && ev.Type != domain.RegionExited {
		m.log.Warn("Ignoring unsupported region event", "type", ev.Type, "region_id", ev.RegionID)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uuid.Parse(ev.RegionID)
	if err != nil {
		m.anomaly("malformed_id", ev, err)
		return nil
	}

	zone, err := m.store.Zones().Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		m.anomaly("unknown_zone", ev, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load zone %s: %w", id, err)
	}

	at := m.now()
	switch ev.Type {
	case domain.RegionEntered:
		if zone.Inside() {
			m.log.Debug("Zone already inside, ignoring entered event", "zone_id", zone.ID)
			return nil
		}
		return m.enter(ctx, zone, at, SourceEvent)
	default:
		if !zone.Inside() {
			m.log.Debug("Zone already outside, ignoring exited event", "zone_id", zone.ID)
			return nil
		}
		return m.exit(ctx, zone, at, SourceEvent)
	}
}

// Reconcile re-derives containment for every zone from one position sample
// and corrects any missed entry or exit. Samples older than the newest
// accepted one are dropped; repeating a sample changes nothing.
func (m *Machine) Reconcile(ctx context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if limit := now.Add(m.maxSkew); pos.Timestamp.After(limit) {
		metrics.PositionsReceived.WithLabelValues("future").Inc()
		m.history.RecordFuture()
		m.log.Warn("Dropping position dated ahead of the clock",
			"timestamp", pos.Timestamp, "limit", limit)
		return nil
	}

	if last := m.lastSample; last != nil {
		if pos.Timestamp.Before(last.Timestamp) {
			metrics.PositionsReceived.WithLabelValues("stale").Inc()
			m.history.RecordStale()
			m.log.Debug("Dropping stale position",
				"timestamp", pos.Timestamp, "newest", last.Timestamp)
			return nil
		}
		if pos == *last {
			metrics.PositionsReceived.WithLabelValues("duplicate").Inc()
		} else {
			metrics.PositionsReceived.WithLabelValues("accepted").Inc()
		}
	} else {
		metrics.PositionsReceived.WithLabelValues("accepted").Inc()
	}

	sample := pos
	m.lastSample = &sample
	m.history.RecordPosition(now, pos.Timestamp)

	start := time.Now()
	defer func() { metrics.ReconcileLatency.Observe(time.Since(start).Seconds()) }()

	zones, err := m.store.Zones().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list zones: %w", err)
	}

	var errs []error
	for _, zone := range zones {
		contained := geo.Contains(zone.Latitude, zone.Longitude, zone.Radius, pos.Latitude, pos.Longitude)

		switch {
		case zone.Inside() && !contained:
			if pos.Timestamp.Before(*zone.ActiveEntry) {
				// Sample predates the current visit.
				continue
			}
			m.log.Info("Reconciliation detected missed exit", "zone_id", zone.ID, "zone", zone.Name)
			errs = append(errs, m.exit(ctx, zone, pos.Timestamp, SourceReconcile))
		case !zone.Inside() && contained:
			m.log.Info("Reconciliation detected missed entry", "zone_id", zone.ID, "zone", zone.Name)
			errs = append(errs, m.enter(ctx, zone, pos.Timestamp, SourceReconcile))
		}
	}
	return errors.Join(errs...)
}

// enter applies Outside -> Inside. Must be called with mu held.
func (m *Machine) enter(ctx context.Context, zone *domain.Zone, at time.Time, source Source) error {
	err := recovery.Do(ctx, m.retry, func(ctx context.Context) error {
		return m.store.Zones().SetActiveEntry(ctx, zone.ID, &at)
	})
	if err != nil {
		return m.persistFailed("enter", zone, err)
	}

	m.applied(Transition{
		ZoneID:   zone.ID,
		ZoneName: zone.Name,
		From:     StateOutside,
		To:       StateInside,
		Source:   source,
		At:       at,
	})
	m.log.Info("Zone entered", "zone_id", zone.ID, "zone", zone.Name, "source", source)

	if m.notifier != nil {
		m.notifier.NotifyArrival(zone.Name)
	}
	return nil
}

// exit applies Inside -> Outside. Must be called with mu held.
func (m *Machine) exit(ctx context.Context, zone *domain.Zone, at time.Time, source Source) error {
	entry := *zone.ActiveEntry
	duration := at.Sub(entry)

	t := Transition{
		ZoneID:   zone.ID,
		ZoneName: zone.Name,
		From:     StateInside,
		To:       StateOutside,
		Source:   source,
		At:       at,
		Duration: duration,
	}

	if duration < m.minVisit || duration <= 0 {
		err := recovery.Do(ctx, m.retry, func(ctx context.Context) error {
			return m.store.Zones().SetActiveEntry(ctx, zone.ID, nil)
		})
		if err != nil {
			return m.persistFailed("discard", zone, err)
		}
		metrics.VisitsDiscarded.Inc()
		m.applied(t)
		m.log.Info("Visit too short, discarded",
			"zone_id", zone.ID, "zone", zone.Name, "duration", duration, "source", source)
		return nil
	}

	log, err := domain.NewVisitLog(zone, entry, at)
	if err != nil {
		return m.persistFailed("exit", zone, err)
	}

	err = recovery.Do(ctx, m.retry, func(ctx context.Context) error {
		return m.commitExit(ctx, zone.ID, log)
	})
	if err != nil {
		return m.persistFailed("exit", zone, err)
	}

	metrics.VisitsLogged.Inc()
	metrics.VisitDuration.Observe(duration.Seconds())
	t.Logged = true
	m.applied(t)
	m.log.Info("Visit logged",
		"zone_id", zone.ID, "zone", zone.Name, "duration", duration, "source", source)

	if m.notifier != nil {
		m.notifier.NotifyDeparture(zone.Name, domain.FormatDuration(duration))
	}
	return nil
}

// commitExit clears the entry and inserts the log in one unit of work.
func (m *Machine) commitExit(ctx context.Context, zoneID uuid.UUID, log *domain.VisitLog) error {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() { _ = uow.Rollback() }()

	if err := uow.SetActiveEntry(ctx, zoneID, nil); err != nil {
		return fmt.Errorf("failed to clear active entry: %w", err)
	}
	if err := uow.InsertVisitLog(ctx, log); err != nil {
		return fmt.Errorf("failed to insert visit log: %w", err)
	}
	return uow.Commit()
}

func (m *Machine) applied(t Transition) {
	metrics.TransitionsTotal.WithLabelValues(string(t.To), string(t.Source)).Inc()
	m.history.RecordTransition(t)
	if m.callback != nil {
		m.callback(t)
	}
}

func (m *Machine) persistFailed(op string, zone *domain.Zone, err error) error {
	metrics.PersistFailures.WithLabelValues(op).Inc()
	m.history.RecordPersistFailure(m.now())
	m.log.Error("Failed to persist transition",
		"operation", op, "zone_id", zone.ID, "zone", zone.Name, "error", err)
	return fmt.Errorf("%w: %s zone %s: %w", ErrPersist, op, zone.ID, err)
}

func (m *Machine) anomaly(reason string, ev domain.RegionEvent, err error) {
	metrics.RegionAnomalies.WithLabelValues(reason).Inc()
	m.history.RecordAnomaly()
	m.log.Warn("Region event references no zone",
		"reason", reason, "type", ev.Type, "region_id", ev.RegionID, "error", err)
}

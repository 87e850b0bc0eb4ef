package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/zonewatch/internal/core/transition"
	"github.com/vietddude/zonewatch/internal/tracking/region"
)

// =============================================================================
// Stubs
// =============================================================================

type stubStore struct {
	err error
}

func (s *stubStore) Health(ctx context.Context) error { return s.err }

type stubRegions struct {
	status region.Status
}

func (s *stubRegions) Status() region.Status { return s.status }

type stubTracking struct {
	metrics transition.Metrics
}

func (s *stubTracking) GetMetrics() transition.Metrics { return s.metrics }

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestMonitor(store *stubStore, regions *stubRegions, tracking *stubTracking, c *clock) *Monitor {
	return NewMonitor(Config{
		StaleAfter:    30 * time.Minute,
		FailureWindow: 5 * time.Minute,
		CacheFor:      time.Second,
		Clock:         c.Now,
	}, store, regions, tracking)
}

func ptr(t time.Time) *time.Time { return &t }

// =============================================================================
// Monitor
// =============================================================================

func TestCheckHealth_Healthy(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tracking := &stubTracking{metrics: transition.Metrics{LastPositionAt: ptr(c.now.Add(-time.Minute))}}
	m := newTestMonitor(&stubStore{}, &stubRegions{status: region.Status{Monitored: 3, MaxRegions: 20}}, tracking, c)

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s: %+v", report.SystemStatus, report.Components)
	}
	if report.Regions.Monitored != 3 {
		t.Errorf("expected 3 monitored regions, got %d", report.Regions.Monitored)
	}
}

func TestCheckHealth_StoreDownIsCritical(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestMonitor(&stubStore{err: errors.New("connection refused")}, &stubRegions{}, &stubTracking{}, c)

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Components["store"].Message != "connection refused" {
		t.Errorf("unexpected store message: %q", report.Components["store"].Message)
	}
}

func TestCheckHealth_RecentFailuresDegrade(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		regions   region.Status
		tracking  transition.Metrics
		component string
		want      SystemStatus
	}{
		{
			name:      "monitoring failure",
			regions:   region.Status{LastFailureAt: ptr(now.Add(-time.Minute)), LastFailureReason: "disabled"},
			tracking:  transition.Metrics{LastPositionAt: ptr(now)},
			component: "monitoring",
			want:      StatusDegraded,
		},
		{
			name:      "old monitoring failure",
			regions:   region.Status{LastFailureAt: ptr(now.Add(-time.Hour))},
			tracking:  transition.Metrics{LastPositionAt: ptr(now)},
			component: "monitoring",
			want:      StatusHealthy,
		},
		{
			name:      "persist failure",
			tracking:  transition.Metrics{LastPositionAt: ptr(now), LastPersistFailure: ptr(now.Add(-time.Minute))},
			component: "tracking",
			want:      StatusDegraded,
		},
		{
			name:      "lagging device clock",
			tracking:  transition.Metrics{LastPositionAt: ptr(now), LastSampleAt: ptr(now.Add(-3 * time.Hour))},
			component: "position_feed",
			want:      StatusHealthy,
		},
		{
			name:      "future-dated sample received long ago",
			tracking:  transition.Metrics{LastPositionAt: ptr(now.Add(-time.Hour)), LastSampleAt: ptr(now.Add(time.Hour))},
			component: "position_feed",
			want:      StatusDegraded,
		},
		{
			name:      "stale feed",
			tracking:  transition.Metrics{LastPositionAt: ptr(now.Add(-time.Hour))},
			component: "position_feed",
			want:      StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &clock{now: now}
			m := newTestMonitor(&stubStore{}, &stubRegions{status: tt.regions}, &stubTracking{metrics: tt.tracking}, c)

			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.SystemStatus)
			}
			if got := report.Components[tt.component].Status; got != tt.want {
				t.Errorf("expected component %s to be %s, got %s", tt.component, tt.want, got)
			}
		})
	}
}

func TestCheckHealth_NoPositionsSinceStart(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestMonitor(&stubStore{}, &stubRegions{}, &stubTracking{}, c)

	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusHealthy {
		t.Fatalf("expected healthy right after start, got %s", got)
	}

	c.now = c.now.Add(31 * time.Minute)
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusDegraded {
		t.Errorf("expected degraded without positions, got %s", got)
	}
}

func TestCheckHealth_Cached(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := &stubStore{}
	m := newTestMonitor(store, &stubRegions{}, &stubTracking{}, c)

	_ = m.CheckHealth(context.Background())
	store.err = errors.New("down")

	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusHealthy {
		t.Errorf("expected cached healthy report, got %s", got)
	}

	c.now = c.now.Add(2 * time.Second)
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusCritical {
		t.Errorf("expected critical after cache expiry, got %s", got)
	}
}

// =============================================================================
// Server
// =============================================================================

func TestServer_HealthEndpoints(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := &stubStore{}
	m := newTestMonitor(store, &stubRegions{status: region.Status{MaxRegions: 20}}, &stubTracking{}, c)
	s := NewServer(m, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if report.Regions.MaxRegions != 20 {
		t.Errorf("expected max_regions 20, got %d", report.Regions.MaxRegions)
	}

	store.err = errors.New("down")
	c.now = c.now.Add(time.Minute)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when critical, got %d", rec.Code)
	}
}

func TestServer_Mount(t *testing.T) {
	c := &clock{now: time.Now()}
	s := NewServer(newTestMonitor(&stubStore{}, &stubRegions{}, &stubTracking{}, c), 0)
	s.Mount("/api/v1", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected mounted handler, got %d", rec.Code)
	}
}

package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// =============================================================================
// Mocks
// =============================================================================

type mockMachine struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockMachine) HandleRegionEvent(ctx context.Context, ev domain.RegionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "event:"+ev.RegionID)
	return m.err
}

func (m *mockMachine) Reconcile(ctx context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "position")
	return m.err
}

func (m *mockMachine) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockFailures struct {
	mu     sync.Mutex
	failed []string
}

func (f *mockFailures) HandleMonitoringFailed(ev domain.RegionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, ev.RegionID)
}

func (f *mockFailures) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failed)
}

type mockObserver struct {
	mu     sync.Mutex
	seen   int
	events []domain.RegionEvent
}

func (o *mockObserver) Observe(pos domain.Position) []domain.RegionEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen++
	return o.events
}

func (o *mockObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seen
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startProcessor(t *testing.T, cfg Config) (*Processor, chan error) {
	t.Helper()
	p := New(cfg)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	waitFor(t, p.Running)
	t.Cleanup(func() {
		p.Stop()
		<-done
	})
	return p, done
}

// =============================================================================
// Tests
// =============================================================================

func TestProcessor_AppliesInArrivalOrder(t *testing.T) {
	m := &mockMachine{}
	p := New(Config{Machine: m})
	ctx := context.Background()

	// Queue before running so the order is fixed.
	_ = p.SubmitEvent(ctx, domain.RegionEvent{Type: domain.RegionEntered, RegionID: "a"})
	_ = p.SubmitPosition(ctx, domain.Position{})
	_ = p.SubmitEvent(ctx, domain.RegionEvent{Type: domain.RegionExited, RegionID: "b"})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	waitFor(t, func() bool { return len(m.snapshot()) == 3 })
	p.Stop()
	<-done

	got := m.snapshot()
	want := []string{"event:a", "position", "event:b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestProcessor_RoutesMonitoringFailed(t *testing.T) {
	m := &mockMachine{}
	f := &mockFailures{}
	p, _ := startProcessor(t, Config{Machine: m, Failures: f})

	_ = p.SubmitEvent(context.Background(), domain.RegionEvent{
		Type:     domain.RegionMonitoringFailed,
		RegionID: "a",
	})

	waitFor(t, func() bool { return f.count() == 1 })
	if len(m.snapshot()) != 0 {
		t.Error("monitoring_failed should not reach the state machine")
	}
}

func TestProcessor_ObserverSeesPositions(t *testing.T) {
	m := &mockMachine{err: errors.New("store down")}
	o := &mockObserver{}
	p, _ := startProcessor(t, Config{Machine: m, Observer: o})

	_ = p.SubmitPosition(context.Background(), domain.Position{})
	_ = p.SubmitPosition(context.Background(), domain.Position{})

	// Errors from the machine do not stop the loop.
	waitFor(t, func() bool { return o.count() == 2 })
}

func TestProcessor_ObservedEventsAppliedInline(t *testing.T) {
	m := &mockMachine{}
	o := &mockObserver{events: []domain.RegionEvent{{Type: domain.RegionEntered, RegionID: "z"}}}
	p, _ := startProcessor(t, Config{Machine: m, Observer: o})

	_ = p.SubmitPosition(context.Background(), domain.Position{})
	_ = p.SubmitEvent(context.Background(), domain.RegionEvent{Type: domain.RegionExited, RegionID: "late"})

	waitFor(t, func() bool { return len(m.snapshot()) == 3 })
	want := []string{"position", "event:z", "event:late"}
	for i, call := range m.snapshot() {
		if call != want[i] {
			t.Fatalf("expected %v, got %v", want, m.snapshot())
		}
	}
}

func TestProcessor_AttachedSources(t *testing.T) {
	m := &mockMachine{}
	p := New(Config{Machine: m})

	positions := make(chan domain.Position, 1)
	events := make(chan domain.RegionEvent, 1)
	p.AttachPositions(positions)
	p.AttachEvents(events)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	positions <- domain.Position{}
	events <- domain.RegionEvent{Type: domain.RegionEntered, RegionID: "z"}

	waitFor(t, func() bool { return len(m.snapshot()) == 2 })
	p.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestProcessor_SubmitAfterStop(t *testing.T) {
	p := New(Config{Machine: &mockMachine{}})
	p.Stop()
	p.Stop()

	if err := p.SubmitPosition(context.Background(), domain.Position{}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestProcessor_SubmitRespectsContext(t *testing.T) {
	p := New(Config{Machine: &mockMachine{}, QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())

	_ = p.SubmitPosition(ctx, domain.Position{})
	cancel()
	if err := p.SubmitPosition(ctx, domain.Position{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProcessor_RunTwice(t *testing.T) {
	p, _ := startProcessor(t, Config{Machine: &mockMachine{}})
	if err := p.Run(context.Background()); err == nil {
		t.Error("expected error when already running")
	}
}

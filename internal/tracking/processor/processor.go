// Package processor is the single owner of zone transitions: position
// samples and region events from every source are applied one at a time.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// ErrNotRunning is returned when submitting to a stopped processor.
var ErrNotRunning = errors.New("processor not running")

// StateMachine applies transitions.
type StateMachine interface {
	HandleRegionEvent(ctx context.Context, ev domain.RegionEvent) error
	Reconcile(ctx context.Context, pos domain.Position) error
}

// FailureHandler reacts to regions the platform stopped monitoring.
type FailureHandler interface {
	HandleMonitoringFailed(ev domain.RegionEvent)
}

// Observer sees every sample after reconciliation, e.g. an in-process
// geofencing platform. Returned events are applied before the next item.
type Observer interface {
	Observe(pos domain.Position) []domain.RegionEvent
}

// Config holds processor dependencies.
type Config struct {
	Machine   StateMachine
	Failures  FailureHandler
	Observer  Observer
	QueueSize int
	Logger    *slog.Logger
}

// work is one queued item: exactly one of pos or ev is set.
type work struct {
	pos *domain.Position
	ev  *domain.RegionEvent
}

// Processor serializes positions and region events into the state machine
// through one queue, so items are applied in arrival order.
type Processor struct {
	cfg   Config
	queue chan work
	log   *slog.Logger

	running atomic.Bool
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu      sync.Mutex
	sources []func(ctx context.Context)
}

// New creates a processor.
func New(cfg Config) *Processor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Processor{
		cfg:   cfg,
		queue: make(chan work, cfg.QueueSize),
		log:   cfg.Logger.With("component", "processor"),
		stop:  make(chan struct{}),
	}
}

// AttachPositions forwards a position feed into the processor while it runs.
func (p *Processor) AttachPositions(feed <-chan domain.Position) {
	p.attach(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case pos, ok := <-feed:
				if !ok {
					return
				}
				_ = p.SubmitPosition(ctx, pos)
			}
		}
	})
}

// AttachEvents forwards a region event stream into the processor while it runs.
func (p *Processor) AttachEvents(events <-chan domain.RegionEvent) {
	p.attach(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				_ = p.SubmitEvent(ctx, ev)
			}
		}
	})
}

func (p *Processor) attach(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = append(p.sources, fn)
}

// SubmitPosition queues a sample, waiting for room until ctx is done.
func (p *Processor) SubmitPosition(ctx context.Context, pos domain.Position) error {
	return p.submit(ctx, work{pos: &pos})
}

// SubmitEvent queues a region event, waiting for room until ctx is done.
func (p *Processor) SubmitEvent(ctx context.Context, ev domain.RegionEvent) error {
	return p.submit(ctx, work{ev: &ev})
}

func (p *Processor) submit(ctx context.Context, w work) error {
	select {
	case <-p.stop:
		return ErrNotRunning
	default:
	}
	select {
	case p.queue <- w:
		return nil
	case <-p.stop:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued work until ctx is done or Stop is called.
func (p *Processor) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("processor already running")
	}
	defer p.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		p.wg.Wait()
	}()

	p.mu.Lock()
	for _, src := range p.sources {
		p.wg.Add(1)
		go func(src func(ctx context.Context)) {
			defer p.wg.Done()
			src(ctx)
		}(src)
	}
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case w := <-p.queue:
			if w.ev != nil {
				p.handleEvent(ctx, *w.ev)
			} else if w.pos != nil {
				p.handlePosition(ctx, *w.pos)
			}
		}
	}
}

// Stop stops the processor. Safe to call more than once.
func (p *Processor) Stop() {
	p.once.Do(func() { close(p.stop) })
}

// Running reports whether Run is active.
func (p *Processor) Running() bool {
	return p.running.Load()
}

func (p *Processor) handleEvent(ctx context.Context, ev domain.RegionEvent) {
	if ev.Type == domain.RegionMonitoringFailed {
		if p.cfg.Failures != nil {
			p.cfg.Failures.HandleMonitoringFailed(ev)
		}
		return
	}
	if err := p.cfg.Machine.HandleRegionEvent(ctx, ev); err != nil {
		p.log.Error("Failed to apply region event",
			"type", ev.Type, "region_id", ev.RegionID, "error", err)
	}
}

func (p *Processor) handlePosition(ctx context.Context, pos domain.Position) {
	if err := p.cfg.Machine.Reconcile(ctx, pos); err != nil {
		p.log.Error("Reconciliation incomplete, will retry on next sample",
			"timestamp", pos.Timestamp, "error", err)
	}
	if p.cfg.Observer == nil {
		return
	}
	for _, ev := range p.cfg.Observer.Observe(pos) {
		p.handleEvent(ctx, ev)
	}
}

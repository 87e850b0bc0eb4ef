package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/zonewatch/internal/tracking/metrics"
)

// DefaultQueueSize bounds notifications waiting for delivery.
const DefaultQueueSize = 64

// Dispatcher queues notifications and delivers them to every sink in the
// background. Enqueueing never blocks: a full queue drops the notification.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Notification
	now     func() time.Time
	log     *slog.Logger
	timeout time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Notification, queueSize),
		now:     time.Now,
		log:     slog.Default().With("component", "notify"),
		timeout: 5 * time.Second,
	}
}

// NotifyArrival queues an arrival notification.
func (d *Dispatcher) NotifyArrival(zoneName string) {
	d.enqueue(Notification{
		Kind:     KindArrival,
		ZoneName: zoneName,
		Message:  ArrivalMessage(zoneName),
		At:       d.now(),
	})
}

// NotifyDeparture queues a departure notification.
func (d *Dispatcher) NotifyDeparture(zoneName, formattedDuration string) {
	d.enqueue(Notification{
		Kind:     KindDeparture,
		ZoneName: zoneName,
		Duration: formattedDuration,
		Message:  DepartureMessage(zoneName, formattedDuration),
		At:       d.now(),
	})
}

func (d *Dispatcher) enqueue(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		metrics.Notifications.WithLabelValues(string(n.Kind), "dropped").Inc()
		return
	}
	select {
	case d.queue <- n:
	default:
		metrics.Notifications.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Warn("Notification queue full, dropping", "kind", n.Kind, "zone", n.ZoneName)
	}
}

// Start launches the delivery goroutine. It drains the queue after ctx is
// done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case n, ok := <-d.queue:
				if !ok {
					return
				}
				d.deliver(n)
			case <-ctx.Done():
				d.drain()
				return
			}
		}
	}()
}

// Stop closes the queue and waits for pending deliveries.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case n, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Send(ctx, n)
		cancel()
		if err != nil {
			metrics.Notifications.WithLabelValues(string(n.Kind), "failed").Inc()
			d.log.Warn("Notification delivery failed", "sink", sink.Name(), "kind", n.Kind, "error", err)
			continue
		}
		metrics.Notifications.WithLabelValues(string(n.Kind), "sent").Inc()
	}
}

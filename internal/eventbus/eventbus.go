// Package eventbus implements the central event dispatcher: a single
// dispatch loop reads from one inbound queue and fans each event out to
// every subscriber registered for its type. Each subscriber owns its own
// bounded queue and a single worker goroutine, so one slow subscriber
// cannot block dispatch to the others or block the publisher.
package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quantcapital/internal/domain"
	"quantcapital/internal/observability"
)

// Handler processes one event. Handlers run sequentially on their
// subscriber's single worker goroutine, so a handler may assume no
// concurrent calls to itself.
type Handler func(ctx context.Context, ev domain.Event)

// DefaultQueueSize is the per-subscriber and main-queue buffer size used
// when a caller does not override it via Option.
const DefaultQueueSize = 1000

type subscriber struct {
	name    string
	queue   chan domain.Event
	handler Handler
	done    chan struct{}
}

// Bus is the central event dispatcher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[domain.EventType][]*subscriber
	inbound     chan domain.Event
	queueSize   int
	metrics     *observability.TradingMetrics

	runningMu sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	busy atomic.Int32 // events currently being dispatched or handled
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithQueueSize overrides the default per-subscriber and main queue depth.
func WithQueueSize(n int) Option {
	return func(b *Bus) { b.queueSize = n }
}

// WithMetrics attaches a metrics set; dispatch counters are recorded on it.
func WithMetrics(m *observability.TradingMetrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// New constructs a Bus. Call Start before publishing.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[domain.EventType][]*subscriber),
		queueSize:   DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.inbound = make(chan domain.Event, b.queueSize)
	return b
}

// Subscribe registers handler under name to receive every event of
// eventType. Must be called before Start; subscribing after Start panics,
// matching the teacher's fail-fast construction convention.
func (b *Bus) Subscribe(eventType domain.EventType, name string, handler Handler) {
	b.runningMu.Lock()
	running := b.running
	b.runningMu.Unlock()
	if running {
		panic("eventbus: Subscribe called after Start")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &subscriber{
		name:    name,
		queue:   make(chan domain.Event, b.queueSize),
		handler: handler,
		done:    make(chan struct{}),
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
}

// Start launches the dispatch loop and one worker per subscriber. It
// returns immediately; dispatch runs in background goroutines until ctx is
// cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	if b.running {
		return
	}
	b.running = true

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.mu.RLock()
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			b.wg.Add(1)
			go b.runSubscriber(runCtx, sub)
		}
	}
	b.mu.RUnlock()

	b.wg.Add(1)
	go b.runDispatch(runCtx)

	log.Printf("[eventbus] started with %d event types registered", len(b.subscribers))
}

// Stop cancels the dispatch loop and all subscriber workers, waiting up to
// deadline for them to drain. It is safe to call Stop more than once.
func (b *Bus) Stop(deadline time.Duration) {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return
	}
	b.running = false
	cancel := b.cancel
	b.runningMu.Unlock()

	cancel()

	stopped := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(deadline):
		log.Printf("[eventbus] stop deadline of %s exceeded, workers may still be draining", deadline)
	}
}

// Publish enqueues ev for dispatch. It never blocks: if the main queue is
// full the event is dropped and counted. Returns false when dropped.
func (b *Bus) Publish(ev domain.Event) bool {
	select {
	case b.inbound <- ev:
		return true
	default:
		b.recordDropped(ev.Type)
		log.Printf("[eventbus] inbound queue full, dropped event type=%s", ev.Type)
		return false
	}
}

func (b *Bus) runDispatch(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.inbound:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ev domain.Event) {
	b.busy.Add(1)
	defer b.busy.Add(-1)

	b.mu.RLock()
	subs := b.subscribers[ev.Type]
	b.mu.RUnlock()

	dispatched := 0
	for _, sub := range subs {
		select {
		case sub.queue <- ev:
			dispatched++
		default:
			b.recordDropped(ev.Type)
			log.Printf("[eventbus] subscriber %s queue full, dropped event type=%s", sub.name, ev.Type)
		}
	}
	if b.metrics != nil {
		b.metrics.EventsDispatched.Inc("event_type", string(ev.Type))
	}
	if dispatched == 0 && len(subs) == 0 {
		observability.LogEvent(ctx, "debug", "no_subscribers", map[string]any{"event_type": string(ev.Type)})
	}
}

func (b *Bus) runSubscriber(ctx context.Context, sub *subscriber) {
	defer b.wg.Done()
	defer close(sub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.queue:
			b.busy.Add(1)
			b.handleSafely(ctx, sub, ev)
			b.busy.Add(-1)
		}
	}
}

// handleSafely recovers a panicking handler so one bad subscriber cannot
// take down the dispatch loop or other subscribers.
func (b *Bus) handleSafely(ctx context.Context, sub *subscriber, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.DispatchErrors.Inc()
			}
			observability.LogEvent(ctx, "error", "handler_panic", map[string]any{
				"subscriber": sub.name,
				"event_type": string(ev.Type),
				"error":      fmt.Sprintf("%v", r),
			})
		}
	}()
	sub.handler(ctx, ev)
}

func (b *Bus) recordDropped(eventType domain.EventType) {
	if b.metrics != nil {
		b.metrics.EventsDropped.Inc("event_type", string(eventType))
	}
}

// IsIdle reports whether the bus has nothing queued and nothing in flight:
// the inbound queue is empty, every subscriber queue is empty, and no
// dispatch or handler call is currently executing. A true result is only a
// snapshot — a concurrent Publish can make it stale immediately — but it is
// exactly what a backtest driver needs to know "this bar's events have all
// been fully processed" before advancing the clock.
func (b *Bus) IsIdle() bool {
	if len(b.inbound) != 0 || b.busy.Load() != 0 {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			if len(sub.queue) != 0 {
				return false
			}
		}
	}
	return true
}

// WaitIdle polls IsIdle until it reports true, ctx is cancelled, or timeout
// elapses, whichever comes first. It returns nil once idle, or ctx.Err()/a
// deadline-exceeded error otherwise.
func (b *Bus) WaitIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	const pollInterval = 200 * time.Microsecond
	for {
		if b.IsIdle() {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return fmt.Errorf("eventbus: wait idle: timeout after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

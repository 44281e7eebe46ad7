package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"quantcapital/internal/clock"
	"quantcapital/internal/domain"
	"quantcapital/internal/observability"
)

// Broker is the external collaborator a live executor submits to — a thin
// seam over a real brokerage SDK (e.g. an Alpaca or IB client), kept out of
// this package so tests can substitute a fake.
type Broker interface {
	SubmitOrder(ctx context.Context, order *domain.Order) (domain.Fill, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// LiveGateConfig bounds what the live path will submit, independent of the
// portfolio manager's own risk gates: a second, broker-facing line of
// defense against a runaway strategy or a stuck process re-submitting the
// same order repeatedly.
type LiveGateConfig struct {
	// MaxOrderValue caps a single order's notional (quantity*price).
	MaxOrderValue float64
	// MaxDailyOrders caps how many orders the live path will submit per
	// calendar day; the counter resets on date rollover.
	MaxDailyOrders int
}

// DefaultLiveGateConfig mirrors the reference live execution handler's
// defaults.
func DefaultLiveGateConfig() LiveGateConfig {
	return LiveGateConfig{MaxOrderValue: 50_000, MaxDailyOrders: 200}
}

// LiveExecutor submits orders to a real Broker through a circuit breaker,
// after passing pre-submit gates. It never calls Account.ApplyFill: a
// returned Fill is published as a FILL event for the portfolio manager to
// apply, exactly like the simulated path.
type LiveExecutor struct {
	mu      sync.Mutex
	broker  Broker
	gates   LiveGateConfig
	breaker *gobreaker.CircuitBreaker[domain.Fill]

	currentDay string
	dayCount   int

	publish func(domain.Event) bool
	metrics *observability.TradingMetrics
}

// NewLiveExecutor wraps broker with gates and a circuit breaker. publish is
// typically (*eventbus.Bus).Publish; it is accepted directly rather than
// wiring through Subscribe because the live path is driven by broker
// callbacks/poll loops, not by ORDER events on the bus.
func NewLiveExecutor(broker Broker, gates LiveGateConfig, publish func(domain.Event) bool) *LiveExecutor {
	settings := gobreaker.Settings{
		Name:        "live-executor",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &LiveExecutor{
		broker:  broker,
		gates:   gates,
		breaker: gobreaker.NewCircuitBreaker[domain.Fill](settings),
		publish: publish,
	}
}

// Submit runs order through the pre-submit gates, then the broker call
// guarded by the circuit breaker. On success it publishes a FILL event.
func (e *LiveExecutor) Submit(ctx context.Context, order *domain.Order) error {
	if err := e.checkGates(ctx, order); err != nil {
		return err
	}

	fill, err := e.breaker.Execute(func() (domain.Fill, error) {
		return e.broker.SubmitOrder(ctx, order)
	})
	if err != nil {
		observability.LogEvent(ctx, "error", "live_submit_failed", map[string]any{"order_id": order.OrderID, "error": err.Error()})
		return fmt.Errorf("execution: live submit %s: %w", order.OrderID, err)
	}

	observability.LogFillReceived(ctx, fill.FillID, fill.OrderID, fill.Symbol, fill.Quantity, fill.Price)
	e.publish(domain.NewFillEvent(clock.Now(ctx), fill))
	return nil
}

// Cancel forwards to the broker through the same circuit breaker.
func (e *LiveExecutor) Cancel(ctx context.Context, orderID string) error {
	_, err := e.breaker.Execute(func() (domain.Fill, error) {
		return domain.Fill{}, e.broker.CancelOrder(ctx, orderID)
	})
	return err
}

func (e *LiveExecutor) checkGates(ctx context.Context, order *domain.Order) error {
	if e.gates.MaxOrderValue > 0 {
		value := float64(order.Quantity) * order.Price
		if value > e.gates.MaxOrderValue {
			return fmt.Errorf("execution: live gate: order value %.2f exceeds maximum %.2f", value, e.gates.MaxOrderValue)
		}
	}

	day := clock.Now(ctx).Format("2006-01-02")
	e.mu.Lock()
	defer e.mu.Unlock()
	if day != e.currentDay {
		e.currentDay = day
		e.dayCount = 0
	}
	if e.gates.MaxDailyOrders > 0 && e.dayCount >= e.gates.MaxDailyOrders {
		return fmt.Errorf("execution: live gate: daily order count %d has reached the maximum %d", e.dayCount, e.gates.MaxDailyOrders)
	}
	e.dayCount++
	return nil
}

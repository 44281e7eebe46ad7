// Package execution implements the C7 execution engine: a simulated
// executor that turns submitted orders into fills with randomised slippage
// and commission, and a live execution path with pre-submit gates and a
// circuit breaker in front of the broker call.
//
// Neither executor ever touches the Account directly — by design, the
// portfolio manager's single worker is the only caller of
// Account.ApplyFill; the executor's job ends at publishing a FILL event.
package execution

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"quantcapital/internal/clock"
	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/observability"
)

// Config tunes the simulated executor's fill model.
type Config struct {
	// SlippageBps is the maximum adverse slippage applied to a fill, drawn
	// uniformly from [0, SlippageBps] basis points of the order price.
	SlippageBps float64
	// CommissionRate is applied to the filled notional.
	CommissionRate float64
	// MinCommission is the floor applied regardless of notional.
	MinCommission float64
	// Seed seeds the slippage RNG. A fixed seed makes a backtest run's
	// fill prices reproducible given the same order sequence.
	Seed int64
}

// DefaultConfig mirrors the reference simulated execution handler's
// defaults: 5bps max slippage, 3bps commission, $5 minimum commission.
func DefaultConfig() Config {
	return Config{SlippageBps: 5, CommissionRate: 0.0003, MinCommission: 5, Seed: 1}
}

// SimulatedExecutor fills orders immediately and in full (per the recorded
// open-question resolution: partial fills are a data-model capability the
// simulated path doesn't exercise, reserved for a future live adapter).
type SimulatedExecutor struct {
	mu      sync.Mutex
	config  Config
	active  map[string]*domain.Order
	bus     *eventbus.Bus
	metrics *observability.TradingMetrics
	rng     *rand.Rand
	seq     int
}

// NewSimulated constructs a SimulatedExecutor.
func NewSimulated(config Config) *SimulatedExecutor {
	return &SimulatedExecutor{
		config: config,
		active: make(map[string]*domain.Order),
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Subscribe wires the executor to bus: ORDER events drive simulated fills.
// Must be called before bus.Start.
func (e *SimulatedExecutor) Subscribe(bus *eventbus.Bus, metrics *observability.TradingMetrics) {
	e.bus = bus
	e.metrics = metrics
	bus.Subscribe(domain.EventOrder, "simulated-executor", e.handleOrder)
}

func (e *SimulatedExecutor) handleOrder(ctx context.Context, ev domain.Event) {
	data, ok := ev.Data.(domain.OrderEventData)
	if !ok || data.Order == nil {
		return
	}
	order := data.Order

	e.mu.Lock()
	e.active[order.OrderID] = order
	e.mu.Unlock()

	e.simulateFill(ctx, order)
}

func (e *SimulatedExecutor) simulateFill(ctx context.Context, order *domain.Order) {
	fillPrice := e.calculateFillPrice(order)
	commission := e.calculateCommission(order.RemainingQuantity(), fillPrice)
	now := clock.Now(ctx)

	if err := order.Fill(order.RemainingQuantity(), fillPrice, now); err != nil {
		observability.LogEvent(ctx, "error", "fill_apply_failed", map[string]any{"order_id": order.OrderID, "error": err.Error()})
		return
	}

	e.mu.Lock()
	e.seq++
	fillID := fmt.Sprintf("fill_%d", e.seq)
	e.mu.Unlock()

	fill, err := domain.NewFill(fillID, order.OrderID, order.Symbol, order.Side, order.FilledQuantity, fillPrice, commission, now, order.StrategyID)
	if err != nil {
		observability.LogEvent(ctx, "error", "fill_construct_failed", map[string]any{"order_id": order.OrderID, "error": err.Error()})
		return
	}

	if e.metrics != nil {
		e.metrics.FillLatency.ObserveDuration(now.Sub(order.SubmittedTime))
		slippageBps := math.Abs(fillPrice-order.Price) / order.Price * 10000
		e.metrics.SlippageBps.Observe(slippageBps)
	}
	observability.LogFillReceived(ctx, fill.FillID, fill.OrderID, fill.Symbol, fill.Quantity, fill.Price)

	e.mu.Lock()
	delete(e.active, order.OrderID)
	e.mu.Unlock()

	e.bus.Publish(domain.NewFillEvent(now, fill))
}

// calculateFillPrice applies uniform random adverse slippage: a BUY fills
// at or above the order price, a SELL at or below it, rounded to cents.
func (e *SimulatedExecutor) calculateFillPrice(order *domain.Order) float64 {
	e.mu.Lock()
	slip := e.rng.Float64() * (e.config.SlippageBps / 10000) * order.Price
	e.mu.Unlock()

	price := order.Price
	if order.Side == domain.DirectionBuy {
		price += slip
	} else {
		price -= slip
	}
	return math.Round(price*100) / 100
}

func (e *SimulatedExecutor) calculateCommission(quantity int, price float64) float64 {
	commission := float64(quantity) * price * e.config.CommissionRate
	if commission < e.config.MinCommission {
		return e.config.MinCommission
	}
	return commission
}

// CancelOrder cancels an active order, removing it from tracking. Returns
// an error if the order is unknown or already terminal.
func (e *SimulatedExecutor) CancelOrder(orderID string) error {
	e.mu.Lock()
	order, ok := e.active[orderID]
	if ok {
		delete(e.active, orderID)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("execution: cancel: unknown order %s", orderID)
	}
	return order.Cancel()
}

// ActiveCount reports the number of orders awaiting a fill.
func (e *SimulatedExecutor) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

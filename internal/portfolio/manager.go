// Package portfolio implements the C6 portfolio/risk manager: the single
// worker that turns validated signals into sized, risk-checked orders, and
// the only place Account state is mutated in response to a fill.
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quantcapital/internal/clock"
	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/observability"
)

// Manager is the portfolio/risk manager. It subscribes to SIGNAL and FILL
// events and is the exclusive caller of Account.ApplyFill, by design note:
// the execution engine never touches the account directly.
type Manager struct {
	mu      sync.Mutex
	account *domain.Account
	config  Config
	bus     *eventbus.Bus
	metrics *observability.TradingMetrics

	lastEmit map[string]time.Time // key: strategyID|symbol|direction
	frozen   map[string]float64   // orderID -> cash frozen against it
	seq      int
}

// New constructs a Manager over account with the given configuration.
func New(account *domain.Account, config Config) *Manager {
	return &Manager{
		account:  account,
		config:   config,
		lastEmit: make(map[string]time.Time),
		frozen:   make(map[string]float64),
	}
}

// Subscribe wires the manager to bus: SIGNAL events drive order emission,
// FILL events drive the account's single mutation point. Must be called
// before bus.Start.
func (m *Manager) Subscribe(bus *eventbus.Bus, metrics *observability.TradingMetrics) {
	m.bus = bus
	m.metrics = metrics
	bus.Subscribe(domain.EventSignal, "portfolio-manager-signal", m.handleSignal)
	bus.Subscribe(domain.EventFill, "portfolio-manager-fill", m.handleFill)
}

func (m *Manager) handleSignal(ctx context.Context, ev domain.Event) {
	data, ok := ev.Data.(domain.SignalEventData)
	if !ok {
		return
	}
	sig := domain.Signal{
		StrategyID: data.StrategyID,
		Symbol:     data.Symbol,
		Direction:  data.Direction,
		Strength:   data.Strength,
		Timestamp:  ev.Timestamp,
		Price:      data.Price,
		Reason:     data.Reason,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v := m.validate(sig); v != nil {
		m.reject(ctx, sig, *v)
		return
	}
	if v := m.checkDedup(sig); v != nil {
		m.reject(ctx, sig, *v)
		return
	}

	var order *domain.Order
	var v *Violation
	switch sig.Direction {
	case domain.DirectionBuy:
		order, v = m.buildBuyOrder(sig)
	case domain.DirectionSell:
		order, v = m.buildSellOrder(sig)
	default:
		return
	}
	if v != nil {
		m.reject(ctx, sig, *v)
		return
	}

	m.recordEmit(sig)
	m.submitOrder(ctx, order)
}

func (m *Manager) validate(sig domain.Signal) *Violation {
	if !sig.IsValid() {
		return &Violation{Code: ViolationInvalidSignal, Message: "signal fields out of range"}
	}
	return nil
}

func (m *Manager) checkDedup(sig domain.Signal) *Violation {
	key := dedupKey(sig.StrategyID, sig.Symbol, sig.Direction)
	if last, ok := m.lastEmit[key]; ok && sig.Timestamp.Sub(last) < m.config.SignalCooldown {
		return &Violation{
			Code:     ViolationDuplicateSignal,
			Message:  "signal emitted again within the cooldown window",
			Limit:    m.config.SignalCooldown.Seconds(),
			Observed: sig.Timestamp.Sub(last).Seconds(),
		}
	}
	return nil
}

func (m *Manager) recordEmit(sig domain.Signal) {
	m.lastEmit[dedupKey(sig.StrategyID, sig.Symbol, sig.Direction)] = sig.Timestamp
}

func dedupKey(strategyID, symbol string, dir domain.Direction) string {
	return strategyID + "|" + symbol + "|" + string(dir)
}

// buildBuyOrder applies the BUY risk gate and sizing pipeline: reject an
// existing position (no pyramiding), size the notional per the configured
// method, floor to whole lots, and check cash/position-pct limits before
// constructing the order.
func (m *Manager) buildBuyOrder(sig domain.Signal) (*domain.Order, *Violation) {
	if _, exists := m.account.Position(sig.Symbol); exists {
		return nil, &Violation{Code: ViolationExistingPosition, Message: "a position in this symbol is already open"}
	}

	prices := map[string]float64{sig.Symbol: sig.Price}
	portfolioValue := m.account.TotalValue(prices)
	notional := m.config.notional(portfolioValue, sig.Strength)
	if notional < m.config.MinOrderAmount {
		return nil, &Violation{
			Code:     ViolationBelowMinOrderAmount,
			Message:  "sized order notional is below the configured minimum",
			Limit:    m.config.MinOrderAmount,
			Observed: notional,
		}
	}

	quantity := m.config.lotQuantity(notional, sig.Price)
	if quantity <= 0 {
		return nil, &Violation{Code: ViolationBelowMinOrderAmount, Message: "sized notional does not afford a single lot"}
	}

	grossCost := float64(quantity) * sig.Price * m.config.CashBufferRate
	if m.account.AvailableCash() < grossCost {
		return nil, &Violation{
			Code:     ViolationInsufficientCash,
			Message:  "insufficient available cash to cover the order plus buffer",
			Limit:    grossCost,
			Observed: m.account.AvailableCash(),
		}
	}

	positionValue := float64(quantity) * sig.Price
	if m.config.MaxPositionPct > 0 && portfolioValue > 0 && positionValue/portfolioValue > m.config.MaxPositionPct {
		return nil, &Violation{
			Code:     ViolationMaxPositionPct,
			Message:  "new position would exceed the maximum single-position fraction of the portfolio",
			Limit:    m.config.MaxPositionPct,
			Observed: positionValue / portfolioValue,
		}
	}

	existingPositionValue := m.account.PositionValue(prices)
	if m.config.MaxTotalPositionPct > 0 && portfolioValue > 0 {
		totalFrac := (existingPositionValue + positionValue) / portfolioValue
		if totalFrac > m.config.MaxTotalPositionPct {
			return nil, &Violation{
				Code:     ViolationMaxTotalPositionPct,
				Message:  "new position would exceed the maximum total invested fraction of the portfolio",
				Limit:    m.config.MaxTotalPositionPct,
				Observed: totalFrac,
			}
		}
	}

	m.seq++
	orderID := fmt.Sprintf("order_%d", m.seq)
	order, err := domain.NewOrder(orderID, sig.Symbol, domain.DirectionBuy, domain.OrderTypeLimit, quantity, sig.Price, sig.StrategyID, sig.Timestamp)
	if err != nil {
		return nil, &Violation{Code: ViolationInvalidSignal, Message: err.Error()}
	}
	if !m.account.FreezeCash(grossCost) {
		return nil, &Violation{Code: ViolationInsufficientCash, Message: "cash freeze failed at submit time"}
	}
	m.frozen[orderID] = grossCost
	return order, nil
}

// buildSellOrder requires an existing position and sells it in full; the
// reference manager does not support partial-size sells.
func (m *Manager) buildSellOrder(sig domain.Signal) (*domain.Order, *Violation) {
	pos, exists := m.account.Position(sig.Symbol)
	if !exists || pos.IsEmpty() {
		return nil, &Violation{Code: ViolationNoPosition, Message: "no open position to sell"}
	}

	quantity := pos.Quantity
	if quantity < 0 {
		quantity = -quantity
	}

	m.seq++
	orderID := fmt.Sprintf("order_%d", m.seq)
	order, err := domain.NewOrder(orderID, sig.Symbol, domain.DirectionSell, domain.OrderTypeLimit, quantity, sig.Price, sig.StrategyID, sig.Timestamp)
	if err != nil {
		return nil, &Violation{Code: ViolationInvalidSignal, Message: err.Error()}
	}
	return order, nil
}

func (m *Manager) submitOrder(ctx context.Context, order *domain.Order) {
	now := clock.Now(ctx)
	if err := order.Submit(now); err != nil {
		observability.LogEvent(ctx, "error", "order_submit_failed", map[string]any{"order_id": order.OrderID, "error": err.Error()})
		return
	}
	m.account.AddOrder(order)
	if m.metrics != nil {
		m.metrics.OrdersSubmitted.Inc("symbol", order.Symbol, "side", string(order.Side))
	}
	observability.LogOrderSubmitted(ctx, order.OrderID, order.Symbol, string(order.Side), order.Quantity, order.Price)
	m.bus.Publish(domain.NewOrderEvent(now, order))
}

func (m *Manager) reject(ctx context.Context, sig domain.Signal, v Violation) {
	if m.metrics != nil {
		m.metrics.SignalsRejected.Inc("reason", string(v.Code))
	}
	observability.LogSignalRejected(ctx, sig.StrategyID, sig.Symbol, string(v.Code))
}

// handleFill is the single place a FILL event mutates the account: it
// releases the cash frozen against the originating order (if any — a SELL
// never froze cash) and applies the fill to the position/cash/trade state.
func (m *Manager) handleFill(ctx context.Context, ev domain.Event) {
	data, ok := ev.Data.(domain.FillEventData)
	if !ok {
		return
	}
	f := data.Fill

	m.mu.Lock()
	if frozen, had := m.frozen[f.OrderID]; had {
		m.account.UnfreezeCash(frozen)
		delete(m.frozen, f.OrderID)
	}
	m.mu.Unlock()

	m.account.ApplyFill(f)
	if m.metrics != nil {
		m.metrics.Equity.Set(m.account.TotalValue(map[string]float64{f.Symbol: f.Price}))
		m.metrics.ActivePositions.Set(float64(len(m.account.Snapshot())))
	}
	observability.LogFillReceived(ctx, f.FillID, f.OrderID, f.Symbol, f.Quantity, f.Price)
}

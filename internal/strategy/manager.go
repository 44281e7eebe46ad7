package strategy

import (
	"context"
	"fmt"
	"sync"

	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/observability"
)

// Stats summarizes one strategy's activity, returned by Manager.Statistics.
type Stats struct {
	StrategyID    string
	Enabled       bool
	SignalsEmitted int
}

// Manager owns a set of named strategies and, once Subscribe is called,
// drives them from MARKET events arriving on the bus: for each bar, it asks
// every enabled strategy whether it's watching that symbol right now, and
// if so invokes GenerateSignals and republishes the result as SIGNAL
// events.
type Manager struct {
	mu         sync.Mutex
	strategies map[string]Strategy
	enabled    map[string]bool
	emitted    map[string]int

	universe *domain.Universe
	account  PositionView
	data     MarketView
	bus      *eventbus.Bus
	metrics  *observability.TradingMetrics
}

// New constructs a Manager. universe and account are consulted live on
// every bar (they are not snapshotted at construction time), so a universe
// update or a new position is visible to WatchSymbols on the very next bar.
func New(universe *domain.Universe, account PositionView, data MarketView) *Manager {
	return &Manager{
		strategies: make(map[string]Strategy),
		enabled:    make(map[string]bool),
		emitted:    make(map[string]int),
		universe:   universe,
		account:    account,
		data:       data,
	}
}

// Add registers a strategy. Returns an error if its ID is already taken,
// matching the reference manager's duplicate-rejection behavior.
func (m *Manager) Add(s Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.strategies[s.ID()]; exists {
		return fmt.Errorf("strategy: manager: strategy %s already registered", s.ID())
	}
	m.strategies[s.ID()] = s
	m.enabled[s.ID()] = true
	return nil
}

// Remove unregisters a strategy entirely.
func (m *Manager) Remove(strategyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strategies, strategyID)
	delete(m.enabled, strategyID)
	delete(m.emitted, strategyID)
}

// Get returns the strategy with the given ID, if registered.
func (m *Manager) Get(strategyID string) (Strategy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.strategies[strategyID]
	return s, ok
}

// All returns every registered strategy, in no particular order.
func (m *Manager) All() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		out = append(out, s)
	}
	return out
}

// Activate enables a registered strategy so it starts receiving bars again.
func (m *Manager) Activate(strategyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[strategyID]; ok {
		m.enabled[strategyID] = true
	}
}

// Deactivate disables a registered strategy without unregistering it.
func (m *Manager) Deactivate(strategyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[strategyID]; ok {
		m.enabled[strategyID] = false
	}
}

// Statistics returns a per-strategy activity snapshot.
func (m *Manager) Statistics() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stats, 0, len(m.strategies))
	for id := range m.strategies {
		out = append(out, Stats{StrategyID: id, Enabled: m.enabled[id], SignalsEmitted: m.emitted[id]})
	}
	return out
}

// Subscribe wires the manager to bus: it registers a MARKET handler under
// name and attaches metrics for signals published. Must be called before
// bus.Start, matching eventbus.Bus.Subscribe's own constraint.
func (m *Manager) Subscribe(bus *eventbus.Bus, name string, metrics *observability.TradingMetrics) {
	m.bus = bus
	m.metrics = metrics
	bus.Subscribe(domain.EventMarket, name, m.handleMarket)
}

func (m *Manager) handleMarket(ctx context.Context, ev domain.Event) {
	data, ok := ev.Data.(domain.MarketEventData)
	if !ok {
		return
	}

	for _, s := range m.activeStrategies() {
		watch := s.WatchSymbols(m.universe, m.account)
		if !containsSymbol(watch, data.Symbol) {
			continue
		}
		signals := s.GenerateSignals(ctx, data.Symbol, data.Bar, m.data, m.account)
		for _, sig := range signals {
			if !sig.IsValid() {
				continue
			}
			m.recordEmitted(s.ID())
			if m.metrics != nil {
				m.metrics.SignalsPublished.Inc("strategy", s.ID(), "direction", string(sig.Direction))
			}
			observability.LogEvent(ctx, "info", "signal_generated", map[string]any{
				"strategy_id": sig.StrategyID,
				"symbol":      sig.Symbol,
				"direction":   string(sig.Direction),
				"strength":    sig.Strength,
			})
			m.bus.Publish(domain.NewSignalEvent(sig.Timestamp, sig))
		}
	}
}

func (m *Manager) activeStrategies() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Strategy, 0, len(m.strategies))
	for id, s := range m.strategies {
		if m.enabled[id] {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) recordEmitted(strategyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted[strategyID]++
}

func containsSymbol(symbols []string, target string) bool {
	for _, s := range symbols {
		if s == target {
			return true
		}
	}
	return false
}

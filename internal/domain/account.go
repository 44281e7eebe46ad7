package domain

import (
	"fmt"
	"sync"
)

// Account is the book of record for a single trading account. It is mutated
// exclusively by the portfolio manager's single worker (see internal/portfolio);
// the mutex here guards concurrent *reads* from strategies querying positions
// snapshot-style, not concurrent writers.
type Account struct {
	mu sync.RWMutex

	AccountID        string
	InitialCapital   float64
	Cash             float64
	FrozenCash       float64
	Positions        map[string]*Position // keyed by symbol
	Orders           map[string]*Order    // keyed by order_id
	Fills            []Fill
	Trades           []*Trade
	TotalCommission  float64
	TotalRealizedPnL float64

	// openTradeByKey indexes the currently-open Trade per (symbol, strategy_id).
	openTradeByKey map[string]*Trade
}

// NewAccount constructs an Account funded with initialCapital.
func NewAccount(accountID string, initialCapital float64) (*Account, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("domain: account %s: initial_capital must be positive, got %.2f", accountID, initialCapital)
	}
	return &Account{
		AccountID:      accountID,
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      make(map[string]*Position),
		Orders:         make(map[string]*Order),
		openTradeByKey: make(map[string]*Trade),
	}, nil
}

// AvailableCash is cash not currently reserved by a frozen-cash hold.
func (a *Account) AvailableCash() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Cash - a.FrozenCash
}

// FreezeCash reserves amount against available cash. Returns false without
// mutating state if amount is non-positive or exceeds available cash.
func (a *Account) FreezeCash(amount float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount <= 0 {
		return false
	}
	if a.Cash-a.FrozenCash < amount {
		return false
	}
	a.FrozenCash += amount
	return true
}

// UnfreezeCash releases a previously frozen amount, clamped at zero.
func (a *Account) UnfreezeCash(amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.FrozenCash -= amount
	if a.FrozenCash < 0 {
		a.FrozenCash = 0
	}
}

// Position returns a snapshot copy of the position for symbol, and whether
// one exists.
func (a *Account) Position(symbol string) (Position, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.Positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Snapshot returns copies of all open positions, keyed by symbol.
func (a *Account) Snapshot() map[string]Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Position, len(a.Positions))
	for symbol, p := range a.Positions {
		out[symbol] = *p
	}
	return out
}

// AddOrder records an order in the account's order book.
func (a *Account) AddOrder(o *Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Orders[o.OrderID] = o
}

// ApplyFill is the single place Account state changes in response to a fill.
// It updates/creates the position via the cost-basis rule, applies the cash
// delta, tracks commission, and opens/closes the corresponding Trade.
// Per the design note forbidding double-application, the executor must never
// call this — only the portfolio manager's worker does.
func (a *Account) ApplyFill(f Fill) {
	a.mu.Lock()
	defer a.mu.Unlock()

	qtyChange := f.Quantity
	if f.Side == DirectionSell {
		qtyChange = -f.Quantity
	}

	pos, exists := a.Positions[f.Symbol]
	if !exists {
		if qtyChange == 0 {
			return
		}
		pos = &Position{Symbol: f.Symbol, StrategyID: f.StrategyID}
		a.Positions[f.Symbol] = pos
	}
	pos.ApplyFill(qtyChange, f.Price)
	if pos.IsEmpty() {
		delete(a.Positions, f.Symbol)
	}

	if f.Side == DirectionBuy {
		a.Cash -= f.NetAmount()
	} else {
		a.Cash += f.NetAmount()
	}
	a.TotalCommission += f.Commission
	a.Fills = append(a.Fills, f)

	a.applyTrade(f)
}

// applyTrade opens or closes the Trade record for this fill. Must be called
// with a.mu already held.
func (a *Account) applyTrade(f Fill) {
	key := f.Symbol + "|" + f.StrategyID
	if f.Side == DirectionBuy {
		if _, open := a.openTradeByKey[key]; !open {
			t := OpenTrade(fmt.Sprintf("trade_%d", len(a.Trades)+1), f)
			a.Trades = append(a.Trades, t)
			a.openTradeByKey[key] = t
		}
		return
	}
	// SELL closes the earliest open trade for this key.
	t, open := a.openTradeByKey[key]
	if !open {
		return
	}
	if err := t.Close(f); err == nil {
		a.TotalRealizedPnL += t.RealizedPnL
		delete(a.openTradeByKey, key)
	}
}

// TotalValue is cash plus the notional of every open position, using
// currentPrices when available and falling back to the position's average
// cost for symbols not present in currentPrices.
func (a *Account) TotalValue(currentPrices map[string]float64) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	total := a.Cash
	for symbol, p := range a.Positions {
		price, ok := currentPrices[symbol]
		if !ok {
			price = p.AvgPrice
		}
		total += float64(p.Quantity) * price
	}
	return total
}

// PositionValue is the absolute notional of all open positions.
func (a *Account) PositionValue(currentPrices map[string]float64) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	total := 0.0
	for symbol, p := range a.Positions {
		price, ok := currentPrices[symbol]
		if !ok {
			price = p.AvgPrice
		}
		total += p.MarketValue(price)
	}
	return total
}

// UnrealizedPnL sums unrealized PnL across all open positions.
func (a *Account) UnrealizedPnL(currentPrices map[string]float64) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	total := 0.0
	for symbol, p := range a.Positions {
		price, ok := currentPrices[symbol]
		if !ok {
			price = p.AvgPrice
		}
		total += p.UnrealizedPnL(price)
	}
	return total
}

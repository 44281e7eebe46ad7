package domain

import (
	"fmt"
	"time"
)

// TradeStatus tracks whether a round-trip (buy-to-sell) trade is still open.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a complete (or still-open) round trip: a BUY fill that opened a
// position for a (symbol, strategy_id) key, and the SELL fill that
// eventually closes it.
type Trade struct {
	TradeID    string
	Symbol     string
	StrategyID string

	BuyFill Fill

	SellFill *Fill

	RealizedPnL     float64
	TotalCommission float64
	Status          TradeStatus
}

// OpenTrade opens a new Trade from a BUY fill.
func OpenTrade(tradeID string, buyFill Fill) *Trade {
	return &Trade{
		TradeID:         tradeID,
		Symbol:          buyFill.Symbol,
		StrategyID:      buyFill.StrategyID,
		BuyFill:         buyFill,
		TotalCommission: buyFill.Commission,
		Status:          TradeOpen,
	}
}

// Close applies the closing SELL fill and computes realized PnL.
func (t *Trade) Close(sellFill Fill) error {
	if t.Status == TradeClosed {
		return fmt.Errorf("domain: trade %s: already closed", t.TradeID)
	}
	if sellFill.Symbol != t.Symbol {
		return fmt.Errorf("domain: trade %s: sell symbol %s does not match buy symbol %s", t.TradeID, sellFill.Symbol, t.Symbol)
	}
	t.SellFill = &sellFill
	t.TotalCommission += sellFill.Commission
	qty := float64(minInt(t.BuyFill.Quantity, sellFill.Quantity))
	t.RealizedPnL = (sellFill.Price-t.BuyFill.Price)*qty - t.TotalCommission
	t.Status = TradeClosed
	return nil
}

// IsOpen reports whether the trade has not yet been closed.
func (t *Trade) IsOpen() bool { return t.Status == TradeOpen }

// HoldingDuration returns the time between the buy and sell fills, valid
// only once the trade is closed.
func (t *Trade) HoldingDuration() time.Duration {
	if t.SellFill == nil {
		return 0
	}
	return t.SellFill.Timestamp.Sub(t.BuyFill.Timestamp)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

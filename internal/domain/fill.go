package domain

import (
	"fmt"
	"time"
)

// Fill is an immutable trade execution record.
type Fill struct {
	FillID     string
	OrderID    string
	Symbol     string
	Side       Direction // BUY or SELL
	Quantity   int
	Price      float64
	Commission float64
	Timestamp  time.Time
	StrategyID string
}

// NewFill validates and constructs a Fill.
func NewFill(fillID, orderID, symbol string, side Direction, quantity int, price, commission float64, ts time.Time, strategyID string) (Fill, error) {
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("domain: fill %s: quantity must be positive, got %d", fillID, quantity)
	}
	if price <= 0 {
		return Fill{}, fmt.Errorf("domain: fill %s: price must be positive, got %.4f", fillID, price)
	}
	if commission < 0 {
		return Fill{}, fmt.Errorf("domain: fill %s: commission must be non-negative, got %.4f", fillID, commission)
	}
	return Fill{
		FillID:     fillID,
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
		StrategyID: strategyID,
	}, nil
}

// NetAmount is the cash delta magnitude of this fill: quantity*price+commission
// for a BUY (cash out) and quantity*price-commission for a SELL (cash in).
func (f Fill) NetAmount() float64 {
	gross := float64(f.Quantity) * f.Price
	if f.Side == DirectionBuy {
		return gross + f.Commission
	}
	return gross - f.Commission
}

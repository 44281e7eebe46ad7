package domain

import (
	"fmt"
	"time"
)

// OrderType distinguishes how an order's price is interpreted.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus is a node in the order lifecycle graph:
//
//	PENDING -> SUBMITTED -> (PARTIALLY_FILLED)* -> FILLED | CANCELLED | REJECTED
//
// Terminal states (FILLED, CANCELLED, REJECTED) reject further fills or
// cancels.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Order is a decision to trade, after risk and sizing have already been
// applied by the portfolio manager.
type Order struct {
	OrderID    string
	Symbol     string
	Side       Direction // BUY or SELL only
	Type       OrderType
	Quantity   int
	Price      float64
	StrategyID string

	Status        OrderStatus
	CreatedTime   time.Time
	SubmittedTime time.Time
	FilledTime    time.Time

	FilledQuantity int
	// accumulatedFilledAmount is the running sum of quantity*price across
	// fills, used to derive AvgFilledPrice without re-deriving it from a
	// single fill (keeps partial-fill averaging correct).
	accumulatedFilledAmount float64
}

// NewOrder validates quantity/price and returns a PENDING order.
func NewOrder(orderID, symbol string, side Direction, orderType OrderType, quantity int, price float64, strategyID string, createdAt time.Time) (*Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("domain: order %s: quantity must be positive, got %d", orderID, quantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("domain: order %s: price must be positive, got %.4f", orderID, price)
	}
	if side != DirectionBuy && side != DirectionSell {
		return nil, fmt.Errorf("domain: order %s: side must be BUY or SELL, got %q", orderID, side)
	}
	return &Order{
		OrderID:     orderID,
		Symbol:      symbol,
		Side:        side,
		Type:        orderType,
		Quantity:    quantity,
		Price:       price,
		StrategyID:  strategyID,
		Status:      OrderPending,
		CreatedTime: createdAt,
	}, nil
}

// IsActive reports whether the order can still receive fills or be cancelled.
func (o *Order) IsActive() bool {
	return o.Status == OrderPending || o.Status == OrderSubmitted || o.Status == OrderPartiallyFilled
}

// RemainingQuantity is the unfilled portion of the order.
func (o *Order) RemainingQuantity() int {
	return o.Quantity - o.FilledQuantity
}

// AvgFilledPrice is the accumulated-filled-amount-weighted average fill
// price, or zero if nothing has filled yet.
func (o *Order) AvgFilledPrice() float64 {
	if o.FilledQuantity == 0 {
		return 0
	}
	return o.accumulatedFilledAmount / float64(o.FilledQuantity)
}

// Submit transitions PENDING -> SUBMITTED, stamping submittedAt.
func (o *Order) Submit(submittedAt time.Time) error {
	if o.Status != OrderPending {
		return fmt.Errorf("domain: order %s: cannot submit from status %s", o.OrderID, o.Status)
	}
	o.Status = OrderSubmitted
	o.SubmittedTime = submittedAt
	return nil
}

// Fill applies a fill of fillQuantity at fillPrice, advancing the order
// toward FILLED or PARTIALLY_FILLED. Terminal orders reject further fills.
func (o *Order) Fill(fillQuantity int, fillPrice float64, filledAt time.Time) error {
	if !o.IsActive() {
		return fmt.Errorf("domain: order %s: cannot fill terminal status %s", o.OrderID, o.Status)
	}
	if fillQuantity <= 0 {
		return fmt.Errorf("domain: order %s: fill quantity must be positive, got %d", o.OrderID, fillQuantity)
	}
	if fillQuantity > o.RemainingQuantity() {
		return fmt.Errorf("domain: order %s: fill quantity %d exceeds remaining %d", o.OrderID, fillQuantity, o.RemainingQuantity())
	}
	o.FilledQuantity += fillQuantity
	o.accumulatedFilledAmount += float64(fillQuantity) * fillPrice
	if o.FilledQuantity == o.Quantity {
		o.Status = OrderFilled
		o.FilledTime = filledAt
	} else {
		o.Status = OrderPartiallyFilled
	}
	return nil
}

// Cancel transitions SUBMITTED/PARTIALLY_FILLED -> CANCELLED.
func (o *Order) Cancel() error {
	if o.Status != OrderSubmitted && o.Status != OrderPartiallyFilled {
		return fmt.Errorf("domain: order %s: cannot cancel from status %s", o.OrderID, o.Status)
	}
	o.Status = OrderCancelled
	return nil
}

// Reject transitions PENDING -> REJECTED.
func (o *Order) Reject() error {
	if o.Status != OrderPending {
		return fmt.Errorf("domain: order %s: cannot reject from status %s", o.OrderID, o.Status)
	}
	o.Status = OrderRejected
	return nil
}

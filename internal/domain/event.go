package domain

import "time"

// EventType discriminates the five event kinds flowing through the event bus.
type EventType string

const (
	EventMarket EventType = "MARKET"
	EventSignal EventType = "SIGNAL"
	EventOrder  EventType = "ORDER"
	EventFill   EventType = "FILL"
	EventTimer  EventType = "TIMER"
)

// Event is the uniform envelope every subscriber filters by Type. Data holds
// the type-specific payload; callers type-assert to the concrete payload
// struct below after checking Type.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// MarketEventData is the payload of an EventMarket event.
type MarketEventData struct {
	Symbol string
	Bar    Bar
}

// SignalEventData is the payload of an EventSignal event.
type SignalEventData struct {
	StrategyID string
	Symbol     string
	Direction  Direction
	Strength   float64
	Price      float64
	Reason     string
}

// OrderEventData is the payload of an EventOrder event.
type OrderEventData struct {
	Order *Order
}

// FillEventData is the payload of an EventFill event.
type FillEventData struct {
	Fill Fill
}

// TimerEventData is the payload of an EventTimer event.
type TimerEventData struct {
	TimerID  string
	Interval time.Duration
}

// NewMarketEvent builds a typed MARKET event envelope.
func NewMarketEvent(ts time.Time, symbol string, bar Bar) Event {
	return Event{Type: EventMarket, Timestamp: ts, Data: MarketEventData{Symbol: symbol, Bar: bar}}
}

// NewSignalEvent builds a typed SIGNAL event envelope.
func NewSignalEvent(ts time.Time, s Signal) Event {
	return Event{Type: EventSignal, Timestamp: ts, Data: SignalEventData{
		StrategyID: s.StrategyID,
		Symbol:     s.Symbol,
		Direction:  s.Direction,
		Strength:   s.Strength,
		Price:      s.Price,
		Reason:     s.Reason,
	}}
}

// NewOrderEvent builds a typed ORDER event envelope.
func NewOrderEvent(ts time.Time, o *Order) Event {
	return Event{Type: EventOrder, Timestamp: ts, Data: OrderEventData{Order: o}}
}

// NewFillEvent builds a typed FILL event envelope.
func NewFillEvent(ts time.Time, f Fill) Event {
	return Event{Type: EventFill, Timestamp: ts, Data: FillEventData{Fill: f}}
}

// NewTimerEvent builds a typed TIMER event envelope.
func NewTimerEvent(ts time.Time, timerID string, interval time.Duration) Event {
	return Event{Type: EventTimer, Timestamp: ts, Data: TimerEventData{TimerID: timerID, Interval: interval}}
}

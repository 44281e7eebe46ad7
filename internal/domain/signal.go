package domain

import "time"

// Direction is a signal's or order's trading direction.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Signal is a strategy's directional intent with a strength in [0, 1].
// Immutable once constructed.
type Signal struct {
	StrategyID string
	Symbol     string
	Direction  Direction
	Strength   float64
	Timestamp  time.Time
	Price      float64
	Reason     string
}

// IsValid reports whether the signal's fields are within their documented
// ranges: symbol non-empty, strength in [0,1], price positive.
func (s Signal) IsValid() bool {
	return s.Symbol != "" &&
		s.Strength >= 0 && s.Strength <= 1 &&
		s.Price > 0
}

// Package domain defines the core trading entities: Bar, Signal, Order, Fill,
// Position, Trade, Account, Calendar, Universe and StrategyInstance.
package domain

import (
	"fmt"
	"time"
)

// Frequency is the sampling period of a Bar.
type Frequency string

const (
	FrequencyHourly Frequency = "H"
	FrequencyDaily  Frequency = "D"
	FrequencyWeekly Frequency = "W"
)

// Bar is one OHLC observation for a symbol at a given frequency. Immutable
// after construction: NewBar validates and returns an error rather than
// allowing a caller to build an invalid Bar.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Frequency Frequency

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Amount float64

	// Optional technical indicators, nil when not supplied by the data source.
	MA5           *float64
	MA20          *float64
	MA60          *float64
	MACDDif       *float64
	MACDDea       *float64
	MACDHistogram *float64
	RSI14         *float64
	BollUpper     *float64
	BollLower     *float64

	// Optional fundamentals.
	MarketCap            *float64
	CirculatingMarketCap *float64
	IsST                 bool
	IsNewStock           bool
}

// NewBar validates the OHLC invariants and returns a Bar, or an error.
func NewBar(symbol string, ts time.Time, freq Frequency, open, high, low, close float64, volume int64, amount float64) (Bar, error) {
	if high < maxF(open, close) {
		return Bar{}, fmt.Errorf("domain: bar %s@%s: high %.4f below max(open,close)", symbol, ts, high)
	}
	if low > minF(open, close) {
		return Bar{}, fmt.Errorf("domain: bar %s@%s: low %.4f above min(open,close)", symbol, ts, low)
	}
	if volume < 0 {
		return Bar{}, fmt.Errorf("domain: bar %s@%s: negative volume %d", symbol, ts, volume)
	}
	if amount < 0 {
		return Bar{}, fmt.Errorf("domain: bar %s@%s: negative amount %.4f", symbol, ts, amount)
	}
	return Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Frequency: freq,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Amount:    amount,
	}, nil
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool { return b.Close > b.Open }

// IsBearish reports whether the bar closed below its open.
func (b Bar) IsBearish() bool { return b.Close < b.Open }

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

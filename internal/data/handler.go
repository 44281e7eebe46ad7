// Package data implements the backtest-facing DataHandler: an in-memory,
// per-symbol bar store addressed through a moving "current time" cursor so a
// strategy or the portfolio manager can only ever observe bars up to and
// including the cursor, never into the future.
package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quantcapital/internal/domain"
)

// Source is the external collaborator contract a DataHandler loads from: it
// knows how to list symbols and fetch a bar series for one, but nothing
// about cursors, lookback windows, or event publication. A CSV file reader
// and a live vendor adapter are both Sources.
type Source interface {
	ListSymbols(ctx context.Context) ([]string, error)
	FetchKline(ctx context.Context, symbol string, freq domain.Frequency) ([]domain.Bar, error)
}

// Handler is the C4 data handler: it preloads bar series for a universe of
// symbols and serves them through a current-time cursor. Safe for
// concurrent reads; SetCurrentTime is expected to be called by a single
// owner (the backtest driver), which moves it forward one trading day at a
// time. SetCurrentTime itself does not reject a move backwards.
type Handler struct {
	mu          sync.RWMutex
	bars        map[string][]domain.Bar // sorted ascending by Timestamp, per symbol
	currentTime time.Time
	universe    *domain.Universe
	calendar    TradingCalendar
}

// TradingCalendar is the subset of internal/calendar.Calendar the data
// handler needs: whether a given instant falls on a trading day. Accepting
// an interface here (rather than importing internal/calendar directly)
// keeps the data package usable against a fake calendar in tests.
type TradingCalendar interface {
	IsTradingDay(t time.Time) bool
}

// New constructs an empty Handler over the given universe and calendar.
// Load bar series with LoadSymbol before use.
func New(universe *domain.Universe, cal TradingCalendar) *Handler {
	return &Handler{
		bars:     make(map[string][]domain.Bar),
		universe: universe,
		calendar: cal,
	}
}

// LoadFromSource pulls every symbol in src's listing into memory via
// FetchKline, grounding the handler in a CSV file, a catalogued dataset
// registry, or a live vendor adapter interchangeably.
func (h *Handler) LoadFromSource(ctx context.Context, src Source, freq domain.Frequency) error {
	symbols, err := src.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("data: load from source: list symbols: %w", err)
	}
	for _, symbol := range symbols {
		bars, err := src.FetchKline(ctx, symbol, freq)
		if err != nil {
			return fmt.Errorf("data: load from source: fetch %s: %w", symbol, err)
		}
		h.LoadSymbol(symbol, bars)
	}
	return nil
}

// LoadSymbol replaces symbol's bar series wholesale, sorted ascending by
// timestamp.
func (h *Handler) LoadSymbol(symbol string, bars []domain.Bar) {
	sorted := append([]domain.Bar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	h.mu.Lock()
	defer h.mu.Unlock()
	h.bars[symbol] = sorted
}

// SetCurrentTime moves the handler's read cursor. Every Get* call below is
// clamped to bars at or before this instant — this is what lets a backtest
// walk history day by day without a strategy ever seeing a future bar.
func (h *Handler) SetCurrentTime(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentTime = t
}

// CurrentTime returns the handler's read cursor.
func (h *Handler) CurrentTime() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentTime
}

// IsTradingDay reports whether t is a trading day per the handler's
// calendar.
func (h *Handler) IsTradingDay(t time.Time) bool {
	return h.calendar.IsTradingDay(t)
}

// GetUniverse returns the handler's configured universe.
func (h *Handler) GetUniverse() *domain.Universe {
	return h.universe
}

// GetBars returns every bar for symbol at or before the current-time
// cursor, oldest first.
func (h *Handler) GetBars(symbol string) []domain.Bar {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clamp(h.bars[symbol])
}

// GetLatestBar returns the most recent bar for symbol at or before the
// cursor, looking back up to lookbackDays to find one (a symbol that hasn't
// traded every calendar day still resolves to its last known bar). ok is
// false if no such bar exists.
func (h *Handler) GetLatestBar(symbol string, lookbackDays int) (domain.Bar, bool) {
	bars := h.GetBars(symbol)
	if len(bars) == 0 {
		return domain.Bar{}, false
	}
	last := bars[len(bars)-1]
	if lookbackDays > 0 {
		cutoff := h.CurrentTime().AddDate(0, 0, -lookbackDays)
		if last.Timestamp.Before(cutoff) {
			return domain.Bar{}, false
		}
	}
	return last, true
}

// GetLatestBars returns up to count of the most recent bars for symbol at
// or before the cursor, oldest first, looking back up to lookbackDays.
func (h *Handler) GetLatestBars(symbol string, count, lookbackDays int) []domain.Bar {
	bars := h.GetBars(symbol)
	if lookbackDays > 0 {
		cutoff := h.CurrentTime().AddDate(0, 0, -lookbackDays)
		start := 0
		for start < len(bars) && bars[start].Timestamp.Before(cutoff) {
			start++
		}
		bars = bars[start:]
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars
}

// clamp returns the prefix of bars (already sorted ascending) with
// Timestamp <= h.currentTime. Caller must hold h.mu.
func (h *Handler) clamp(bars []domain.Bar) []domain.Bar {
	if h.currentTime.IsZero() {
		return nil
	}
	idx := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(h.currentTime) })
	return bars[:idx]
}

// Symbols returns every symbol the handler has loaded bar data for,
// regardless of universe membership.
func (h *Handler) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.bars))
	for s := range h.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the earliest and latest timestamps across every loaded
// symbol's bar series. ok is false when no symbol has any bars. The
// backtest driver does not call it; Driver.Run always takes explicit
// start/end dates.
func (h *Handler) DateRange() (start, end time.Time, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, bars := range h.bars {
		if len(bars) == 0 {
			continue
		}
		if !ok || bars[0].Timestamp.Before(start) {
			start = bars[0].Timestamp
		}
		if !ok || bars[len(bars)-1].Timestamp.After(end) {
			end = bars[len(bars)-1].Timestamp
		}
		ok = true
	}
	return start, end, ok
}

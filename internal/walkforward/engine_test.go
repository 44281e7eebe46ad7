package walkforward_test

import (
	"context"
	"testing"
	"time"

	"quantcapital/internal/backtest"
	"quantcapital/internal/calendar"
	"quantcapital/internal/clock"
	"quantcapital/internal/data"
	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/execution"
	"quantcapital/internal/portfolio"
	"quantcapital/internal/strategy"
	"quantcapital/internal/walkforward"
)

func weekdayCalendar() *calendar.Calendar {
	return calendar.New("test", []calendar.Session{calendar.USEquityRegularSession}, nil)
}

// flatBars builds a flat (no golden cross, no trades) close series so the
// walk-forward aggregation can be exercised without depending on strategy
// signal timing.
func flatBars(t *testing.T, cal *calendar.Calendar, start time.Time, n int) []domain.Bar {
	t.Helper()
	days := cal.TradingDaysBetween(start, start.AddDate(1, 0, 0))
	if len(days) < n {
		t.Fatalf("need %d trading days, only produced %d", n, len(days))
	}
	bars := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		bar, err := domain.NewBar("AAPL", days[i], domain.FrequencyDaily, 20, 20.5, 19.5, 20, 1_000_000, 20_000_000)
		if err != nil {
			t.Fatalf("NewBar day %d: %v", i, err)
		}
		bars[i] = bar
	}
	return bars
}

func TestWalkForwardRun(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cal := weekdayCalendar()
	fullEnd := start.AddDate(0, 8, 0)
	bars := flatBars(t, cal, start, 200)
	universe := domain.NewUniverse("test-universe", []string{"AAPL"}, start)

	build := func(winStart, winEnd time.Time) (*backtest.Driver, error) {
		account, err := domain.NewAccount("test-account", 100_000)
		if err != nil {
			return nil, err
		}
		dataHandler := data.New(universe, cal)
		dataHandler.LoadSymbol("AAPL", bars)

		bus := eventbus.New()
		stratMgr := strategy.New(universe, account, dataHandler)
		inst, err := domain.NewStrategyInstance("ma_entry", "ma_entry", domain.StrategyEntry, map[string]any{
			"owner_id": "ma_rule", "short_window": 5, "long_window": 20,
		})
		if err != nil {
			return nil, err
		}
		if err := stratMgr.Add(strategy.NewMACrossover(inst)); err != nil {
			return nil, err
		}

		portfolioMgr := portfolio.New(account, portfolio.DefaultConfig())
		executor := execution.NewSimulated(execution.DefaultConfig())

		return backtest.New(backtest.Config{
			Account:     account,
			Bus:         bus,
			Clock:       clock.NewManualClock(winStart),
			Calendar:    cal,
			Data:        dataHandler,
			Strategies:  stratMgr,
			Portfolio:   portfolioMgr,
			Executor:    executor,
			IdleTimeout: 2 * time.Second,
		}), nil
	}

	engine := walkforward.New(build)
	result, err := engine.Run(context.Background(), walkforward.Config{
		FullStart:      start,
		FullEnd:        fullEnd,
		ISPeriod:       60 * 24 * time.Hour,
		OOSPeriod:      30 * 24 * time.Hour,
		InitialCapital: 100_000,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Windows) == 0 {
		t.Fatalf("expected at least one window")
	}
	for _, w := range result.Windows {
		if w.TotalTrades != 0 {
			t.Fatalf("expected zero trades on a flat price series, got %d in window %d", w.TotalTrades, w.Index)
		}
	}
	if result.PassRate != 0 {
		t.Fatalf("expected zero pass rate when every window returns exactly flat, got %.2f", result.PassRate)
	}
}

func TestWalkForwardRunTooShort(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	build := func(winStart, winEnd time.Time) (*backtest.Driver, error) {
		t.Fatalf("build should not be called when the range is too short")
		return nil, nil
	}
	engine := walkforward.New(build)
	_, err := engine.Run(context.Background(), walkforward.Config{
		FullStart:      start,
		FullEnd:        start.AddDate(0, 0, 10),
		InitialCapital: 100_000,
	})
	if err == nil {
		t.Fatalf("expected an error for a too-short date range")
	}
}

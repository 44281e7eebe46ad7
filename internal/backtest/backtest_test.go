package backtest_test

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
)

// weekdayCalendar treats every weekday as a trading day, enough to drive
// calendar.Calendar's own weekend check without a holiday set.
func weekdayCalendar() *calendar.Calendar {
	return calendar.New("test", []calendar.Session{calendar.USEquityRegularSession}, nil)
}

func mustRegister(t *testing.T, mgr *strategy.Manager, id string, kind domain.StrategyKind, shortWindow, longWindow int) {
	t.Helper()
	inst, err := domain.NewStrategyInstance(id, id, kind, map[string]any{
		"owner_id":     "ma_rule",
		"short_window": shortWindow,
		"long_window":  longWindow,
	})
	if err != nil {
		t.Fatalf("NewStrategyInstance(%s): %v", id, err)
	}
	if err := mgr.Add(strategy.NewMACrossover(inst)); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

// TestBacktestGoldenCrossThenStopLoss runs a full strategy->portfolio->execution
// pipeline over a synthetic AAPL close series engineered to produce a golden
// cross BUY followed by a stop-loss SELL, and checks the resulting Result
// reflects one closed, losing trade.
func TestBacktestGoldenCrossThenStopLoss(t *testing.T) {
	// Entry path: golden cross fires on the 7th bar (short=3, long=5).
	entryCloses := []float64{20, 19, 18, 17, 16, 18, 22}
	// Exit path: a sharp drop well past the 5% stop-loss threshold.
	exitCloses := []float64{20, 18, 16, 14}
	closes := append(append([]float64{}, entryCloses...), exitCloses...)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	cal := weekdayCalendar()
	days := cal.TradingDaysBetween(start, start.AddDate(0, 0, 30))
	if len(days) < len(closes) {
		t.Fatalf("need %d trading days, calendar window only produced %d", len(closes), len(days))
	}
	days = days[:len(closes)]
	end := days[len(days)-1]

	bars := make([]domain.Bar, 0, len(closes))
	for i, c := range closes {
		bar, err := domain.NewBar("AAPL", days[i], domain.FrequencyDaily, c, c+0.5, c-0.5, c, 1_000_000, c*1_000_000)
		if err != nil {
			t.Fatalf("NewBar day %d: %v", i, err)
		}
		bars = append(bars, bar)
	}

	universe := domain.NewUniverse("test-universe", []string{"AAPL"}, start)
	dataHandler := data.New(universe, cal)
	dataHandler.LoadSymbol("AAPL", bars)

	account, err := domain.NewAccount("test-account", 100_000)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	bus := eventbus.New()

	stratMgr := strategy.New(universe, account, dataHandler)
	mustRegister(t, stratMgr, "ma_entry", domain.StrategyEntry, 3, 5)
	mustRegister(t, stratMgr, "ma_exit", domain.StrategyExit, 3, 5)
	mustRegister(t, stratMgr, "ma_stop", domain.StrategyUniversalStop, 3, 5)

	portfolioMgr := portfolio.New(account, portfolio.DefaultConfig())
	executor := execution.NewSimulated(execution.DefaultConfig())

	driver := backtest.New(backtest.Config{
		Account:     account,
		Bus:         bus,
		Clock:       clock.NewManualClock(start),
		Calendar:    cal,
		Data:        dataHandler,
		Strategies:  stratMgr,
		Portfolio:   portfolioMgr,
		Executor:    executor,
		IdleTimeout: 2 * time.Second,
	})

	result, err := driver.Run(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.TotalTrades < 1 {
		t.Fatalf("expected at least one closed trade, got %d (final value %.2f)", result.TotalTrades, result.FinalValue)
	}
	if result.RealizedPnL >= 0 {
		t.Fatalf("expected a net loss from the stop-loss exit, got realized PnL %.2f", result.RealizedPnL)
	}
	if result.WinRate != 0 {
		t.Fatalf("expected the single closed trade to be a loser (win rate 0), got %.2f", result.WinRate)
	}
	if _, stillOpen := account.Position("AAPL"); stillOpen {
		t.Fatalf("expected the AAPL position to be closed by the stop-loss exit")
	}
	if result.TotalCommission <= 0 {
		t.Fatalf("expected nonzero commission across entry and exit fills")
	}
}

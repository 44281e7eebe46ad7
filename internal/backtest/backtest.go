// Package backtest implements the C8 backtest driver: it wires the event
// bus, data handler, strategy manager, portfolio manager and execution
// engine together, then walks the calendar one trading day at a time,
// publishing a MARKET event per (symbol, bar) and waiting for the bus to
// fully drain before advancing — the quiescence barrier that keeps a
// backtest's bar-by-bar ordering deterministic despite an otherwise
// concurrent event pipeline.
package backtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantcapital/internal/calendar"
	"quantcapital/internal/clock"
	"quantcapital/internal/data"
	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/execution"
	"quantcapital/internal/observability"
	"quantcapital/internal/portfolio"
	"quantcapital/internal/strategy"
)

// Result aggregates a completed run's outcome, matching the reference
// engine's get_results() fields.
type Result struct {
	FinalValue      float64
	TotalReturn     float64
	TotalTrades     int
	WinRate         float64
	TotalCommission float64
	RealizedPnL     float64
	StrategyStats   []strategy.Stats
}

// Config bundles the components a Driver orchestrates. Every component
// field is required; Metrics may be nil, and a zero IdleTimeout defaults to
// 5s. Use New to wire their event-bus subscriptions in the correct order.
type Config struct {
	Account    *domain.Account
	Bus        *eventbus.Bus
	Clock      *clock.ManualClock
	Calendar   *calendar.Calendar
	Data       *data.Handler
	Strategies *strategy.Manager
	Portfolio  *portfolio.Manager
	Executor   *execution.SimulatedExecutor
	Metrics    *observability.TradingMetrics

	// IdleTimeout bounds how long WaitIdle blocks per trading day before
	// the run fails rather than hanging forever on a stuck handler.
	IdleTimeout time.Duration
}

// Driver runs one backtest: a single, sequential walk of a calendar range
// against Config's wired components.
type Driver struct {
	cfg Config
}

// New wires every component's event-bus subscription and returns a Driver.
// Must be called before cfg.Bus.Start — callers should not call Start
// themselves; Run does that.
func New(cfg Config) *Driver {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Second
	}
	cfg.Strategies.Subscribe(cfg.Bus, "strategy-manager", cfg.Metrics)
	cfg.Portfolio.Subscribe(cfg.Bus, cfg.Metrics)
	cfg.Executor.Subscribe(cfg.Bus, cfg.Metrics)
	return &Driver{cfg: cfg}
}

// Run walks every trading day in [start, end], publishing one MARKET event
// per symbol with a bar dated that day, and blocks between days until the
// bus is fully idle. It starts and stops the bus itself.
func (d *Driver) Run(ctx context.Context, start, end time.Time) (Result, error) {
	ctx = clock.WithClock(ctx, d.cfg.Clock)
	d.cfg.Bus.Start(ctx)
	defer d.cfg.Bus.Stop(10 * time.Second)

	days := d.cfg.Calendar.TradingDaysBetween(start, end)
	symbols := d.cfg.Data.Symbols()

	for i, day := range days {
		d.cfg.Clock.Set(day)
		d.cfg.Data.SetCurrentTime(day)

		for _, symbol := range symbols {
			bar, ok := d.cfg.Data.GetLatestBar(symbol, 0)
			if !ok || !sameDate(bar.Timestamp, day) {
				continue
			}
			d.cfg.Bus.Publish(domain.NewMarketEvent(day, symbol, bar))
		}

		if err := d.cfg.Bus.WaitIdle(ctx, d.cfg.IdleTimeout); err != nil {
			return Result{}, fmt.Errorf("backtest: day %s: %w", day.Format("2006-01-02"), err)
		}

		if (i+1)%10 == 0 {
			log.Printf("[backtest] processed %d/%d trading days (%s)", i+1, len(days), day.Format("2006-01-02"))
		}
	}

	return d.buildResult(), nil
}

func (d *Driver) buildResult() Result {
	account := d.cfg.Account
	snapshot := account.Snapshot()

	prices := make(map[string]float64, len(snapshot))
	for symbol := range snapshot {
		if bar, ok := d.cfg.Data.GetLatestBar(symbol, 0); ok {
			prices[symbol] = bar.Close
		}
	}

	finalValue := account.TotalValue(prices)
	totalReturn := 0.0
	if account.InitialCapital > 0 {
		totalReturn = (finalValue - account.InitialCapital) / account.InitialCapital
	}

	closed, wins := 0, 0
	for _, t := range account.Trades {
		if t.Status == domain.TradeClosed {
			closed++
			if t.RealizedPnL > 0 {
				wins++
			}
		}
	}
	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}

	return Result{
		FinalValue:      finalValue,
		TotalReturn:     totalReturn,
		TotalTrades:     closed,
		WinRate:         winRate,
		TotalCommission: account.TotalCommission,
		RealizedPnL:     account.TotalRealizedPnL,
		StrategyStats:   d.cfg.Strategies.Statistics(),
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

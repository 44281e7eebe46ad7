// Package walkforward implements rolling in-sample/out-of-sample validation
// on top of the C8 backtest driver: a supplemental analysis layer (D5) that
// answers "does this strategy still work on data it wasn't tuned against?"
// without changing internal/backtest's own single-run semantics.
//
// A walk-forward run splits [FullStart, FullEnd) into overlapping windows,
// each with an in-sample (IS) period and a following out-of-sample (OOS)
// period, runs one backtest per window's OOS range, and aggregates a
// walk-forward efficiency ratio:
//
//	WFER = mean(OOS annualised return) / IS annualised return
//
// A WFER above 0.5 is generally read as "deployable"; below zero means the
// OOS windows lost money on average.
package walkforward

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"quantcapital/internal/backtest"
)

// Config defines a single walk-forward validation run.
type Config struct {
	FullStart, FullEnd time.Time
	// ISPeriod is the length of each in-sample window; defaults to 252
	// calendar days (~1 trading year) when zero.
	ISPeriod time.Duration
	// OOSPeriod is the length of each out-of-sample window; defaults to 63
	// calendar days (~1 trading quarter) when zero.
	OOSPeriod time.Duration
	// InitialCapital must be positive; Run rejects the Config otherwise.
	// Returns are not computed from it: each window's fractional return is
	// the Driver's own Result.TotalReturn, taken against the starting
	// capital of the Account that DriverFactory wired in.
	InitialCapital float64
}

// Window describes one IS/OOS pair, half-open on both ends: IS covers
// [ISStart, ISEnd), OOS covers [OOSStart, OOSEnd).
type Window struct {
	Index    int
	ISStart  time.Time
	ISEnd    time.Time
	OOSStart time.Time
	OOSEnd   time.Time
}

// WindowResult holds one window's OOS outcome.
type WindowResult struct {
	Window
	backtest.Result
	AnnualizedReturn float64
}

// Result is the aggregate output of a walk-forward validation run.
type Result struct {
	Config Config

	// Windows holds per-window OOS results in chronological order.
	Windows []WindowResult

	// ISResult is the full in-sample reference run, covering FullStart
	// through the last window's ISEnd.
	ISResult backtest.Result

	MeanOOSReturn  float64
	WFER           float64
	PassRate       float64
	TotalOOSTrades int
	// StabilityScore in [0,1]: the fraction of total OOS trades contributed
	// by windows with a positive annualized return.
	StabilityScore float64
}

// DriverFactory builds a fresh, fully-wired backtest.Driver scoped to the
// half-open date range [start, end) — a new Account, event bus, data
// handler and strategy set per call, since a Driver's bus and account are
// single-use. The walkforward Engine never touches component internals; it
// only calls Run on what this factory returns.
type DriverFactory func(start, end time.Time) (*backtest.Driver, error)

// Engine orchestrates walk-forward validation by repeatedly invoking a
// DriverFactory and running each resulting Driver.
type Engine struct {
	build DriverFactory
}

// New constructs an Engine that builds a fresh Driver per window via build.
func New(build DriverFactory) *Engine {
	return &Engine{build: build}
}

// Run executes a full walk-forward validation: one IS reference run plus
// one OOS run per window, aggregated into a Result.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.ISPeriod == 0 {
		cfg.ISPeriod = 252 * 24 * time.Hour
	}
	if cfg.OOSPeriod == 0 {
		cfg.OOSPeriod = 63 * 24 * time.Hour
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("walkforward: InitialCapital must be positive")
	}

	windows := buildWindows(cfg.FullStart, cfg.FullEnd, cfg.ISPeriod, cfg.OOSPeriod)
	if len(windows) == 0 {
		return nil, fmt.Errorf("walkforward: date range too short to form a single IS+OOS window (need >= %v)",
			cfg.ISPeriod+cfg.OOSPeriod)
	}

	log.Printf("[walkforward] starting IS=%v OOS=%v range=%s..%s windows=%d",
		cfg.ISPeriod, cfg.OOSPeriod,
		cfg.FullStart.Format("2006-01-02"), cfg.FullEnd.Format("2006-01-02"), len(windows))

	isEnd := windows[len(windows)-1].ISEnd
	isDriver, err := e.build(cfg.FullStart, isEnd)
	if err != nil {
		return nil, fmt.Errorf("walkforward: building IS reference driver: %w", err)
	}
	// Driver.Run includes its end day; stepping back 1ns keeps each run
	// inside the half-open range its window covers.
	isResult, err := isDriver.Run(ctx, cfg.FullStart, isEnd.Add(-time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("walkforward: IS reference run: %w", err)
	}
	isAnnualized := annualize(isResult.TotalReturn, cfg.FullStart, isEnd)

	var winResults []WindowResult
	for _, w := range windows {
		driver, err := e.build(w.OOSStart, w.OOSEnd)
		if err != nil {
			return nil, fmt.Errorf("walkforward: window %d: building driver: %w", w.Index, err)
		}
		res, err := driver.Run(ctx, w.OOSStart, w.OOSEnd.Add(-time.Nanosecond))
		if err != nil {
			log.Printf("[walkforward] window %d OOS run failed: %v (skipping)", w.Index, err)
			continue
		}
		ann := annualize(res.TotalReturn, w.OOSStart, w.OOSEnd)
		winResults = append(winResults, WindowResult{Window: w, Result: res, AnnualizedReturn: ann})
		log.Printf("[walkforward] window %d OOS %s..%s trades=%d annRet=%.2f%%",
			w.Index, w.OOSStart.Format("2006-01-02"), w.OOSEnd.Format("2006-01-02"), res.TotalTrades, ann*100)
	}
	if len(winResults) == 0 {
		return nil, fmt.Errorf("walkforward: all OOS windows failed to produce results")
	}

	result := &Result{Config: cfg, Windows: winResults, ISResult: isResult}

	var sumRet float64
	var positiveWindows int
	var weightedPositive, totalWeight float64
	for _, w := range winResults {
		sumRet += w.AnnualizedReturn
		result.TotalOOSTrades += w.TotalTrades
		weight := math.Max(float64(w.TotalTrades), 1)
		totalWeight += weight
		if w.AnnualizedReturn > 0 {
			positiveWindows++
			weightedPositive += weight
		}
	}
	result.MeanOOSReturn = sumRet / float64(len(winResults))
	result.PassRate = float64(positiveWindows) / float64(len(winResults))
	if totalWeight > 0 {
		result.StabilityScore = weightedPositive / totalWeight
	}
	if isAnnualized != 0 {
		result.WFER = result.MeanOOSReturn / isAnnualized
	}

	log.Printf("[walkforward] done windows=%d WFER=%.2f passRate=%.0f%% stabilityScore=%.2f",
		len(winResults), result.WFER, result.PassRate*100, result.StabilityScore)

	return result, nil
}

// buildWindows generates IS/OOS window pairs anchored to fullStart, each
// sliding forward by oos from the previous window's start.
func buildWindows(fullStart, fullEnd time.Time, is, oos time.Duration) []Window {
	var windows []Window
	idx := 0
	for {
		isStart := fullStart.Add(time.Duration(idx) * oos)
		isEnd := isStart.Add(is)
		oosStart := isEnd
		oosEnd := oosStart.Add(oos)
		if oosEnd.After(fullEnd) {
			break
		}
		windows = append(windows, Window{Index: idx, ISStart: isStart, ISEnd: isEnd, OOSStart: oosStart, OOSEnd: oosEnd})
		idx++
	}
	return windows
}

// annualize converts a fractional return over a date span to a compound
// annual growth rate, using a 252-trading-day year.
func annualize(totalReturn float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return 0
	}
	years := days / 252
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// Verdict returns a human-readable read of a Result's WFER.
func Verdict(r *Result) string {
	switch {
	case r.WFER >= 0.7:
		return "excellent: strategy transfers to out-of-sample data well"
	case r.WFER >= 0.5:
		return "good: strategy is deployable"
	case r.WFER >= 0.0:
		return "marginal: live performance likely to underperform in-sample"
	default:
		return "fail: strategy loses money out-of-sample, do not deploy"
	}
}

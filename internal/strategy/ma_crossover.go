package strategy

import (
	"context"
	"fmt"

	"quantcapital/internal/domain"
)

// MACrossover is the reference strategy: a moving-average golden-cross
// entry, paired with a stop-loss/take-profit/death-cross exit and an
// account-wide universal-stop variant, selected by the StrategyInstance's
// Kind. One MACrossover value implements exactly one of the three roles —
// a deployment registers three instances (one per kind) sharing a universe
// to get the full entry/exit/stop pipeline, mirroring the reference
// implementation's three StrategyKind-dispatched code paths inside a single
// class.
type MACrossover struct {
	id, ownerID, name string
	kind              domain.StrategyKind

	shortWindow int
	longWindow  int

	stopLossPct      float64
	takeProfitPct    float64
	universalStopPct float64
}

// NewMACrossover builds a MACrossover from a StrategyInstance's
// configuration, applying the reference implementation's defaults for any
// key the config omits: short_window=5, long_window=20, stop_loss_pct=0.05,
// take_profit_pct=0.10, universal_stop_pct=0.08. config["owner_id"], if
// present, sets the shared rule identity used for signal/position
// attribution across a deployment's ENTRY/EXIT/UNIVERSAL_STOP instances;
// it defaults to the instance's own StrategyID, which is correct for a
// standalone single-kind deployment.
func NewMACrossover(inst domain.StrategyInstance) *MACrossover {
	ownerID := inst.StrategyID
	if v, ok := inst.Config["owner_id"]; ok {
		if s, ok := v.(string); ok && s != "" {
			ownerID = s
		}
	}
	return &MACrossover{
		id:               inst.StrategyID,
		ownerID:          ownerID,
		name:             inst.Name,
		kind:             inst.Kind,
		shortWindow:      inst.ConfigInt("short_window", 5),
		longWindow:       inst.ConfigInt("long_window", 20),
		stopLossPct:      inst.ConfigFloat("stop_loss_pct", 0.05),
		takeProfitPct:    inst.ConfigFloat("take_profit_pct", 0.10),
		universalStopPct: inst.ConfigFloat("universal_stop_pct", 0.08),
	}
}

func (s *MACrossover) ID() string               { return s.id }
func (s *MACrossover) OwnerID() string           { return s.ownerID }
func (s *MACrossover) Name() string              { return s.name }
func (s *MACrossover) Kind() domain.StrategyKind { return s.kind }

func (s *MACrossover) WatchSymbols(universe *domain.Universe, account PositionView) []string {
	return WatchSetForKind(s.kind, s.ownerID, universe, account)
}

func (s *MACrossover) GenerateSignals(ctx context.Context, symbol string, bar domain.Bar, data MarketView, account PositionView) []domain.Signal {
	bars := data.GetBars(symbol)
	if len(bars) == 0 {
		return nil
	}

	switch s.kind {
	case domain.StrategyExit:
		pos, ok := account.Snapshot()[symbol]
		if !ok || pos.IsEmpty() || pos.StrategyID != s.ownerID {
			return nil
		}
		if sig, ok := s.checkExit(bars, pos); ok {
			return []domain.Signal{sig}
		}
	case domain.StrategyUniversalStop:
		pos, ok := account.Snapshot()[symbol]
		if !ok || pos.IsEmpty() {
			return nil
		}
		if sig, ok := s.checkUniversalStop(bars, pos); ok {
			return []domain.Signal{sig}
		}
	default: // domain.StrategyEntry
		if sig, ok := s.checkEntry(bars); ok {
			return []domain.Signal{sig}
		}
	}
	return nil
}

// checkEntry detects a golden cross: the short MA was at or below the long
// MA on the previous bar and is strictly above it now, with the close
// trading above the short MA for confirmation.
func (s *MACrossover) checkEntry(bars []domain.Bar) (domain.Signal, bool) {
	if len(bars) < s.longWindow+1 {
		return domain.Signal{}, false
	}
	curShort, _ := sma(bars, s.shortWindow)
	curLong, _ := sma(bars, s.longWindow)
	prevShort, _ := sma(bars[:len(bars)-1], s.shortWindow)
	prevLong, _ := sma(bars[:len(bars)-1], s.longWindow)

	last := bars[len(bars)-1]
	goldenCross := prevShort <= prevLong && curShort > curLong
	if !goldenCross || last.Close <= curShort {
		return domain.Signal{}, false
	}

	return domain.Signal{
		StrategyID: s.ownerID,
		Symbol:     last.Symbol,
		Direction:  domain.DirectionBuy,
		Strength:   0.8,
		Timestamp:  last.Timestamp,
		Price:      last.Close,
		Reason:     "golden_cross",
	}, true
}

// checkExit evaluates stop-loss, take-profit and death-cross-with-profit in
// that priority order, matching the reference implementation's check
// sequence.
func (s *MACrossover) checkExit(bars []domain.Bar, pos domain.Position) (domain.Signal, bool) {
	last := bars[len(bars)-1]
	pnlPct := (last.Close - pos.AvgPrice) / pos.AvgPrice

	switch {
	case pnlPct <= -s.stopLossPct:
		return s.exitSignal(last, 1.0, "stop_loss"), true
	case pnlPct >= s.takeProfitPct:
		return s.exitSignal(last, 0.9, "take_profit"), true
	}

	if len(bars) < s.longWindow+1 {
		return domain.Signal{}, false
	}
	curShort, _ := sma(bars, s.shortWindow)
	curLong, _ := sma(bars, s.longWindow)
	prevShort, _ := sma(bars[:len(bars)-1], s.shortWindow)
	prevLong, _ := sma(bars[:len(bars)-1], s.longWindow)
	deathCross := prevShort >= prevLong && curShort < curLong
	if deathCross && pnlPct > 0 {
		return s.exitSignal(last, 0.7, "death_cross"), true
	}
	return domain.Signal{}, false
}

// checkUniversalStop fires regardless of which strategy owns the position,
// a deeper-loss last resort independent of the owning strategy's own exit
// logic.
func (s *MACrossover) checkUniversalStop(bars []domain.Bar, pos domain.Position) (domain.Signal, bool) {
	last := bars[len(bars)-1]
	pnlPct := (last.Close - pos.AvgPrice) / pos.AvgPrice
	if pnlPct > -s.universalStopPct {
		return domain.Signal{}, false
	}
	return s.exitSignal(last, 1.0, "universal_stop"), true
}

func (s *MACrossover) exitSignal(bar domain.Bar, strength float64, reason string) domain.Signal {
	return domain.Signal{
		StrategyID: s.ownerID,
		Symbol:     bar.Symbol,
		Direction:  domain.DirectionSell,
		Strength:   strength,
		Timestamp:  bar.Timestamp,
		Price:      bar.Close,
		Reason:     reason,
	}
}

// sma returns the simple moving average of the last n closes in bars, and
// whether bars held enough history to compute it.
func sma(bars []domain.Bar, n int) (float64, bool) {
	if n <= 0 || len(bars) < n {
		return 0, false
	}
	window := bars[len(bars)-n:]
	sum := 0.0
	for _, b := range window {
		sum += b.Close
	}
	return sum / float64(n), true
}

// NewInstance is a convenience constructor bundling a StrategyInstance and
// its MACrossover implementation for one kind, so a
// caller wiring three instances (entry/exit/stop) off one config map
// doesn't have to repeat field names.
func NewInstance(id, name string, kind domain.StrategyKind, config map[string]any) (domain.StrategyInstance, *MACrossover, error) {
	inst, err := domain.NewStrategyInstance(id, name, kind, config)
	if err != nil {
		return domain.StrategyInstance{}, nil, fmt.Errorf("strategy: new instance: %w", err)
	}
	return inst, NewMACrossover(inst), nil
}

// Package strategy defines the C5 strategy contract and the registry that
// wires running strategy instances to the event bus: each strategy declares
// which symbols it wants to watch given the account's current positions,
// and reacts to bars for those symbols by emitting signals.
package strategy

import (
	"context"

	"quantcapital/internal/domain"
)

// MarketView is the read-only bar access a strategy needs. internal/data's
// Handler satisfies this structurally.
type MarketView interface {
	GetBars(symbol string) []domain.Bar
	GetLatestBar(symbol string, lookbackDays int) (domain.Bar, bool)
	GetLatestBars(symbol string, count, lookbackDays int) []domain.Bar
}

// PositionView is the read-only account access a strategy needs to resolve
// its own positions or the account's positions as a whole.
// domain.Account satisfies this structurally.
type PositionView interface {
	Snapshot() map[string]domain.Position
}

// Strategy is one running trading rule. Kind determines how WatchSymbols is
// expected to behave (see domain.StrategyKind), but the framework does not
// enforce that correspondence — it trusts the implementation.
//
// ID and OwnerID are deliberately distinct: a deployment typically registers
// three instances of the same trading rule (one per kind: ENTRY, EXIT,
// UNIVERSAL_STOP), each needing its own unique registration ID so the
// Manager's duplicate-ID rejection doesn't collide. But the signals they
// emit and the positions they resolve as "their own" must attribute to one
// shared OwnerID — the EXIT instance for a rule only recognizes a position
// as its own if the BUY that opened it carried that same OwnerID, not the
// EXIT instance's own registration ID.
type Strategy interface {
	ID() string
	OwnerID() string
	Name() string
	Kind() domain.StrategyKind

	// WatchSymbols returns the symbols this strategy wants MARKET events
	// for right now, given universe and the account's current positions.
	// Called before dispatching every bar, since the watch set shifts as
	// positions open and close.
	WatchSymbols(universe *domain.Universe, account PositionView) []string

	// GenerateSignals reacts to a new bar for symbol, one of the symbols
	// WatchSymbols most recently returned. It may return zero or more
	// signals; returning none means "no action this bar".
	GenerateSignals(ctx context.Context, symbol string, bar domain.Bar, data MarketView, account PositionView) []domain.Signal
}

// ownPositions filters a full account snapshot down to the symbols a given
// owner ID holds.
func ownPositions(account PositionView, ownerID string) map[string]domain.Position {
	all := account.Snapshot()
	out := make(map[string]domain.Position)
	for symbol, p := range all {
		if p.StrategyID == ownerID {
			out[symbol] = p
		}
	}
	return out
}

// WatchSetForKind implements the three standard watch-set policies so
// concrete strategies can delegate to it instead of reimplementing the
// bookkeeping. ownerID identifies the logical trading rule across its
// ENTRY/EXIT/UNIVERSAL_STOP instances, not any one instance's registration
// ID — see the Strategy interface's OwnerID doc comment.
//
//	ENTRY           universe symbols minus this rule's own positions
//	EXIT             this rule's own positions
//	UNIVERSAL_STOP   every symbol held in the account, regardless of owner
func WatchSetForKind(kind domain.StrategyKind, ownerID string, universe *domain.Universe, account PositionView) []string {
	switch kind {
	case domain.StrategyExit:
		own := ownPositions(account, ownerID)
		out := make([]string, 0, len(own))
		for symbol := range own {
			out = append(out, symbol)
		}
		return out
	case domain.StrategyUniversalStop:
		all := account.Snapshot()
		out := make([]string, 0, len(all))
		for symbol := range all {
			out = append(out, symbol)
		}
		return out
	default: // domain.StrategyEntry
		own := ownPositions(account, ownerID)
		universeSymbols := universe.Symbols()
		out := make([]string, 0, len(universeSymbols))
		for _, symbol := range universeSymbols {
			if _, held := own[symbol]; !held {
				out = append(out, symbol)
			}
		}
		return out
	}
}

package domain_test

import (
	"testing"

	"quantcapital/internal/domain"
)

func TestPosition_ApplyFill_OpeningAverage(t *testing.T) {
	p := domain.Position{Symbol: "AAPL"}
	p.ApplyFill(10, 100)
	if p.Quantity != 10 || p.AvgPrice != 100 {
		t.Fatalf("unexpected position after opening fill: %+v", p)
	}
	p.ApplyFill(10, 120)
	wantAvg := (10*100.0 + 10*120.0) / 20.0
	if p.Quantity != 20 || p.AvgPrice != wantAvg {
		t.Fatalf("got qty=%d avg=%.4f, want qty=20 avg=%.4f", p.Quantity, p.AvgPrice, wantAvg)
	}
}

func TestPosition_ApplyFill_PureReductionLeavesAvgUnchanged(t *testing.T) {
	p := domain.Position{Symbol: "AAPL", Quantity: 20, AvgPrice: 110}
	p.ApplyFill(-5, 200)
	if p.Quantity != 15 {
		t.Fatalf("expected quantity 15, got %d", p.Quantity)
	}
	if p.AvgPrice != 110 {
		t.Fatalf("pure reduction must leave avg_price unchanged, got %.4f", p.AvgPrice)
	}
}

func TestPosition_ApplyFill_SignFlipResetsAvgToFillPrice(t *testing.T) {
	p := domain.Position{Symbol: "AAPL", Quantity: 10, AvgPrice: 100}
	p.ApplyFill(-15, 90)
	if p.Quantity != -5 {
		t.Fatalf("expected quantity -5 after sign flip, got %d", p.Quantity)
	}
	if p.AvgPrice != 90 {
		t.Fatalf("sign flip must reset avg_price to fill price, got %.4f", p.AvgPrice)
	}
}

func TestPosition_ApplyFill_ClosingToZero(t *testing.T) {
	p := domain.Position{Symbol: "AAPL", Quantity: 10, AvgPrice: 100}
	p.ApplyFill(-10, 150)
	if !p.IsEmpty() {
		t.Fatalf("expected empty position after closing fill, got quantity %d", p.Quantity)
	}
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	p := domain.Position{Symbol: "AAPL", Quantity: 10, AvgPrice: 100}
	if got, want := p.UnrealizedPnL(110), 100.0; got != want {
		t.Fatalf("unrealized pnl = %.2f, want %.2f", got, want)
	}
}

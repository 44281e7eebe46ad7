package domain_test

import (
	"testing"
	"time"

	"quantcapital/internal/domain"
)

func TestTrade_OpenAndClose_RealizedPnL(t *testing.T) {
	buyTS := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	sellTS := buyTS.Add(3 * time.Hour)

	buy, err := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 1, buyTS, "strat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := domain.OpenTrade("t1", buy)
	if !tr.IsOpen() {
		t.Fatalf("expected newly opened trade to be open")
	}

	sell, err := domain.NewFill("f2", "o2", "AAPL", domain.DirectionSell, 10, 110, 1, sellTS, "strat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Close(sell); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if tr.IsOpen() {
		t.Fatalf("expected trade to be closed")
	}

	wantPnL := (110.0-100.0)*10 - 2
	if tr.RealizedPnL != wantPnL {
		t.Fatalf("realized pnl = %.2f, want %.2f", tr.RealizedPnL, wantPnL)
	}
	if tr.HoldingDuration() != 3*time.Hour {
		t.Fatalf("holding duration = %v, want 3h", tr.HoldingDuration())
	}
}

func TestTrade_CloseTwiceRejected(t *testing.T) {
	ts := time.Now()
	buy, _ := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 0, ts, "strat1")
	tr := domain.OpenTrade("t1", buy)
	sell, _ := domain.NewFill("f2", "o2", "AAPL", domain.DirectionSell, 10, 100, 0, ts, "strat1")
	if err := tr.Close(sell); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := tr.Close(sell); err == nil {
		t.Fatalf("expected error closing an already-closed trade")
	}
}

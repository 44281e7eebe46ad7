package domain_test

import (
	"testing"
	"time"

	"quantcapital/internal/domain"
)

func TestNewFill_Validation(t *testing.T) {
	ts := time.Now()
	if _, err := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 0, 100, 1, ts, "strat1"); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	if _, err := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 0, 1, ts, "strat1"); err == nil {
		t.Fatalf("expected error for zero price")
	}
	if _, err := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, -1, ts, "strat1"); err == nil {
		t.Fatalf("expected error for negative commission")
	}
}

func TestFill_NetAmount(t *testing.T) {
	ts := time.Now()
	buy, err := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 5, ts, "strat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := buy.NetAmount(), 1005.0; got != want {
		t.Fatalf("buy net amount = %.2f, want %.2f", got, want)
	}

	sell, err := domain.NewFill("f2", "o1", "AAPL", domain.DirectionSell, 10, 100, 5, ts, "strat1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := sell.NetAmount(), 995.0; got != want {
		t.Fatalf("sell net amount = %.2f, want %.2f", got, want)
	}
}

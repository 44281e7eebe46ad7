package domain_test

import (
	"testing"
	"time"

	"quantcapital/internal/domain"
)

func TestAccount_ApplyFill_UpdatesCashAndPosition(t *testing.T) {
	acct, err := domain.NewAccount("acct1", 100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buy, _ := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 1, time.Now(), "strat1")
	acct.ApplyFill(buy)

	pos, ok := acct.Position("AAPL")
	if !ok {
		t.Fatalf("expected an open AAPL position")
	}
	if pos.Quantity != 10 || pos.AvgPrice != 100 {
		t.Fatalf("unexpected position: %+v", pos)
	}
	wantCash := 100000.0 - (10*100.0 + 1)
	if acct.Cash != wantCash {
		t.Fatalf("cash = %.2f, want %.2f", acct.Cash, wantCash)
	}
}

func TestAccount_ApplyFill_ClosingPositionRemovesFromMap(t *testing.T) {
	acct, _ := domain.NewAccount("acct1", 100000)
	buy, _ := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 0, time.Now(), "strat1")
	acct.ApplyFill(buy)

	sell, _ := domain.NewFill("f2", "o2", "AAPL", domain.DirectionSell, 10, 110, 0, time.Now(), "strat1")
	acct.ApplyFill(sell)

	if _, ok := acct.Position("AAPL"); ok {
		t.Fatalf("expected position to be removed once flat")
	}
	if acct.TotalRealizedPnL != 100 {
		t.Fatalf("total realized pnl = %.2f, want 100", acct.TotalRealizedPnL)
	}
	if len(acct.Trades) != 1 || acct.Trades[0].IsOpen() {
		t.Fatalf("expected exactly one closed trade, got %+v", acct.Trades)
	}
}

func TestAccount_FreezeCash(t *testing.T) {
	acct, _ := domain.NewAccount("acct1", 1000)
	if !acct.FreezeCash(400) {
		t.Fatalf("expected freeze of 400 against 1000 cash to succeed")
	}
	if acct.AvailableCash() != 600 {
		t.Fatalf("available cash = %.2f, want 600", acct.AvailableCash())
	}
	if acct.FreezeCash(700) {
		t.Fatalf("expected freeze exceeding available cash to fail")
	}
	acct.UnfreezeCash(400)
	if acct.AvailableCash() != 1000 {
		t.Fatalf("available cash after unfreeze = %.2f, want 1000", acct.AvailableCash())
	}
}

func TestAccount_TotalValue_FallsBackToAvgPriceWhenPriceMissing(t *testing.T) {
	acct, _ := domain.NewAccount("acct1", 1000)
	buy, _ := domain.NewFill("f1", "o1", "AAPL", domain.DirectionBuy, 10, 100, 0, time.Now(), "strat1")
	acct.ApplyFill(buy)

	got := acct.TotalValue(map[string]float64{})
	want := acct.Cash + 1000.0
	if got != want {
		t.Fatalf("total value = %.2f, want %.2f", got, want)
	}
}

func TestNewAccount_RejectsNonPositiveCapital(t *testing.T) {
	if _, err := domain.NewAccount("acct1", 0); err == nil {
		t.Fatalf("expected error for zero initial capital")
	}
}

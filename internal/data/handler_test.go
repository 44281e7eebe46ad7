package data_test

import (
	"testing"
	"time"

	"quantcapital/internal/data"
	"quantcapital/internal/domain"
)

type fakeCalendar struct{}

func (fakeCalendar) IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func mustBar(t *testing.T, symbol string, ts time.Time, close float64) domain.Bar {
	t.Helper()
	b, err := domain.NewBar(symbol, ts, domain.FrequencyDaily, close, close+1, close-1, close, 1000, close*1000)
	if err != nil {
		t.Fatalf("NewBar: %v", err)
	}
	return b
}

func TestHandlerClampsToCurrentTime(t *testing.T) {
	u := domain.NewUniverse("test", []string{"AAPL"}, time.Now())
	h := data.New(u, fakeCalendar{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		mustBar(t, "AAPL", base, 100),
		mustBar(t, "AAPL", base.AddDate(0, 0, 1), 101),
		mustBar(t, "AAPL", base.AddDate(0, 0, 2), 102),
	}
	h.LoadSymbol("AAPL", bars)

	h.SetCurrentTime(base.AddDate(0, 0, 1))
	got := h.GetBars("AAPL")
	if len(got) != 2 {
		t.Fatalf("expected 2 bars visible at cursor, got %d", len(got))
	}

	latest, ok := h.GetLatestBar("AAPL", 0)
	if !ok || latest.Close != 101 {
		t.Fatalf("expected latest bar close 101, got %+v ok=%v", latest, ok)
	}
}

func TestHandlerLatestBarLookbackExcludesStaleData(t *testing.T) {
	u := domain.NewUniverse("test", []string{"AAPL"}, time.Now())
	h := data.New(u, fakeCalendar{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.LoadSymbol("AAPL", []domain.Bar{mustBar(t, "AAPL", base, 100)})

	h.SetCurrentTime(base.AddDate(0, 0, 40))
	if _, ok := h.GetLatestBar("AAPL", 30); ok {
		t.Fatal("expected no bar within a 30-day lookback when the only bar is 40 days stale")
	}
	if _, ok := h.GetLatestBar("AAPL", 60); !ok {
		t.Fatal("expected the bar to resolve within a 60-day lookback")
	}
}

func TestHandlerGetLatestBarsOrdering(t *testing.T) {
	u := domain.NewUniverse("test", []string{"AAPL"}, time.Now())
	h := data.New(u, fakeCalendar{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []domain.Bar
	for i := 0; i < 5; i++ {
		bars = append(bars, mustBar(t, "AAPL", base.AddDate(0, 0, i), float64(100+i)))
	}
	h.LoadSymbol("AAPL", bars)
	h.SetCurrentTime(base.AddDate(0, 0, 4))

	got := h.GetLatestBars("AAPL", 2, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[0].Close != 103 || got[1].Close != 104 {
		t.Fatalf("expected [103,104], got [%v,%v]", got[0].Close, got[1].Close)
	}
}

func TestHandlerDateRange(t *testing.T) {
	u := domain.NewUniverse("test", []string{"AAPL", "MSFT"}, time.Now())
	h := data.New(u, fakeCalendar{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.LoadSymbol("AAPL", []domain.Bar{mustBar(t, "AAPL", base, 100), mustBar(t, "AAPL", base.AddDate(0, 0, 10), 110)})
	h.LoadSymbol("MSFT", []domain.Bar{mustBar(t, "MSFT", base.AddDate(0, 0, -5), 200)})

	start, end, ok := h.DateRange()
	if !ok {
		t.Fatal("expected a date range")
	}
	if !start.Equal(base.AddDate(0, 0, -5)) {
		t.Fatalf("expected start %v, got %v", base.AddDate(0, 0, -5), start)
	}
	if !end.Equal(base.AddDate(0, 0, 10)) {
		t.Fatalf("expected end %v, got %v", base.AddDate(0, 0, 10), end)
	}
}

package domain_test

import (
	"testing"
	"time"

	"quantcapital/internal/domain"
)

func TestNewBar_ValidOHLC(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	b, err := domain.NewBar("AAPL", ts, domain.FrequencyDaily, 10, 12, 9, 11, 1000, 11000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.IsBullish() {
		t.Fatalf("expected bullish bar (close %.2f > open %.2f)", b.Close, b.Open)
	}
	if b.IsBearish() {
		t.Fatalf("bar should not be bearish")
	}
}

func TestNewBar_HighBelowMaxRejected(t *testing.T) {
	ts := time.Now()
	_, err := domain.NewBar("AAPL", ts, domain.FrequencyDaily, 10, 9, 8, 11, 1000, 11000)
	if err == nil {
		t.Fatalf("expected error when high is below max(open, close)")
	}
}

func TestNewBar_LowAboveMinRejected(t *testing.T) {
	ts := time.Now()
	_, err := domain.NewBar("AAPL", ts, domain.FrequencyDaily, 10, 12, 10.5, 11, 1000, 11000)
	if err == nil {
		t.Fatalf("expected error when low is above min(open, close)")
	}
}

func TestNewBar_NegativeVolumeRejected(t *testing.T) {
	ts := time.Now()
	_, err := domain.NewBar("AAPL", ts, domain.FrequencyDaily, 10, 12, 9, 11, -1, 11000)
	if err == nil {
		t.Fatalf("expected error for negative volume")
	}
}

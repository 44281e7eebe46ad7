package domain_test

import (
	"testing"

	"quantcapital/internal/domain"
)

func TestNewStrategyInstance_Validation(t *testing.T) {
	if _, err := domain.NewStrategyInstance("", "name", domain.StrategyEntry, nil); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := domain.NewStrategyInstance("s1", "", domain.StrategyEntry, nil); err == nil {
		t.Fatalf("expected error for empty name")
	}

	si, err := domain.NewStrategyInstance("s1", "MA Crossover", domain.StrategyEntry, map[string]any{"fast_window": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !si.Enabled {
		t.Fatalf("expected newly constructed strategy instance to be enabled")
	}
	if got := si.ConfigInt("fast_window", 10); got != 5 {
		t.Fatalf("config fast_window = %d, want 5", got)
	}
	if got := si.ConfigFloat("missing", 1.5); got != 1.5 {
		t.Fatalf("config fallback = %.2f, want 1.5", got)
	}
}

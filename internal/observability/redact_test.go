package observability_test

import (
	"testing"

	"quantcapital/internal/observability"
)

func TestRedactValue_Map(t *testing.T) {
	in := map[string]any{
		"account_id": "acct-1",
		"api_key":    "sk-xyz",
		"quantity":   10,
		"nested":     map[string]any{"broker_key": "secret", "symbol": "AAPL"},
	}
	out, ok := observability.RedactValue(in).(map[string]any)
	if !ok {
		t.Fatalf("expected map result")
	}
	if out["account_id"] != "[REDACTED]" || out["api_key"] != "[REDACTED]" {
		t.Fatalf("expected top-level sensitive fields redacted: %+v", out)
	}
	if out["quantity"] != 10 {
		t.Fatalf("expected non-sensitive field preserved: %+v", out)
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map preserved")
	}
	if nested["broker_key"] != "[REDACTED]" || nested["symbol"] != "AAPL" {
		t.Fatalf("expected nested redaction: %+v", nested)
	}
}

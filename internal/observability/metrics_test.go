package observability_test

import (
	"strings"
	"testing"

	"quantcapital/internal/observability"
)

func TestCounter_AddAndWriteText(t *testing.T) {
	reg := observability.NewRegistry()
	c := reg.NewCounter("events_dispatched_total", "test counter")
	c.Inc("event_type", "MARKET")
	c.Add(2, "event_type", "MARKET")
	c.Inc("event_type", "SIGNAL")

	if got := c.Value("event_type", "MARKET"); got != 3 {
		t.Fatalf("MARKET value = %v, want 3", got)
	}

	var sb strings.Builder
	reg.WriteText(&sb)
	out := sb.String()
	if !strings.Contains(out, `events_dispatched_total{event_type="MARKET"} 3`) {
		t.Fatalf("expected MARKET row in output, got:\n%s", out)
	}
}

func TestCounter_NegativeAddIgnored(t *testing.T) {
	reg := observability.NewRegistry()
	c := reg.NewCounter("x", "help")
	c.Add(-5)
	if got := c.Value(); got != 0 {
		t.Fatalf("expected negative add to be ignored, got %v", got)
	}
}

func TestGauge_SetAndAdd(t *testing.T) {
	reg := observability.NewRegistry()
	g := reg.NewGauge("equity", "help")
	g.Set(1000)
	g.Add(-50)
	if got := g.Value(); got != 950 {
		t.Fatalf("gauge value = %v, want 950", got)
	}
}

func TestHistogram_Observe(t *testing.T) {
	reg := observability.NewRegistry()
	h := reg.NewHistogram("latency_seconds", "help", []float64{0.1, 0.5, 1.0})
	h.Observe(0.05)
	h.Observe(0.3)
	h.Observe(2.0)

	var sb strings.Builder
	reg.WriteText(&sb)
	out := sb.String()
	if !strings.Contains(out, "latency_seconds_count 3") {
		t.Fatalf("expected count of 3, got:\n%s", out)
	}
}

func TestNewTradingMetrics_RegistersAll(t *testing.T) {
	reg := observability.NewRegistry()
	m := observability.NewTradingMetrics(reg)
	m.EventsDispatched.Inc("event_type", "MARKET")
	m.Equity.Set(100000)

	var sb strings.Builder
	reg.WriteText(&sb)
	if !strings.Contains(sb.String(), "quantcapital_events_dispatched_total") {
		t.Fatalf("expected events dispatched metric registered")
	}
}

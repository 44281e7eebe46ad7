package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/sony/gobreaker/v2"

	"quantcapital/internal/domain"
)

// AlpacaSource adapts Alpaca's market-data REST API into a data.Source. It
// watches a fixed, configured symbol list rather than discovering one from
// the vendor, since Alpaca has no "list all tradable symbols this backtest
// cares about" endpoint — that selection is this adapter's caller's job.
type AlpacaSource struct {
	client  *marketdata.Client
	symbols []string
	breaker *gobreaker.CircuitBreaker[[]domain.Bar]
}

// AlpacaConfig holds the credentials and symbol universe for an AlpacaSource.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	// BaseURL defaults to the standard Alpaca data endpoint when empty.
	BaseURL string
	Symbols []string
}

// NewAlpacaSource builds an AlpacaSource. The circuit breaker trips after
// three consecutive failures and probes again after 30s, matching the live
// executor's own gobreaker settings in internal/execution since both guard
// a brittle external call from cascading into the pipeline that drives them.
func NewAlpacaSource(cfg AlpacaConfig) *AlpacaSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://data.alpaca.markets"
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   baseURL,
	})
	settings := gobreaker.Settings{
		Name:        "alpaca-marketdata",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &AlpacaSource{
		client:  client,
		symbols: append([]string(nil), cfg.Symbols...),
		breaker: gobreaker.NewCircuitBreaker[[]domain.Bar](settings),
	}
}

// ListSymbols returns the configured symbol universe.
func (s *AlpacaSource) ListSymbols(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.symbols...), nil
}

func alpacaTimeFrame(freq domain.Frequency) (marketdata.TimeFrame, error) {
	switch freq {
	case domain.FrequencyHourly:
		return marketdata.NewTimeFrame(1, marketdata.Hour), nil
	case domain.FrequencyDaily:
		return marketdata.NewTimeFrame(1, marketdata.Day), nil
	case domain.FrequencyWeekly:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	default:
		return marketdata.TimeFrame{}, ErrUnsupportedFrequency
	}
}

// FetchKline fetches up to two years of history for symbol at freq, through
// the circuit breaker, and translates vendor bars into domain.Bar.
func (s *AlpacaSource) FetchKline(ctx context.Context, symbol string, freq domain.Frequency) ([]domain.Bar, error) {
	tf, err := alpacaTimeFrame(freq)
	if err != nil {
		return nil, err
	}
	end := time.Now()
	start := end.AddDate(-2, 0, 0)

	bars, err := s.breaker.Execute(func() ([]domain.Bar, error) {
		raw, err := s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca: get bars %s: %w", symbol, err)
		}
		if len(raw) == 0 {
			return nil, ErrNoData
		}
		out := make([]domain.Bar, 0, len(raw))
		for _, b := range raw {
			bar, err := domain.NewBar(symbol, b.Timestamp, freq, b.Open, b.High, b.Low, b.Close, int64(b.Volume), b.Close*float64(b.Volume))
			if err != nil {
				continue
			}
			out = append(out, bar)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca: circuit breaker: %w", err)
	}
	return bars, nil
}

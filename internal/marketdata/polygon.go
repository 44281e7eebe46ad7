package marketdata

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/sony/gobreaker/v2"

	"quantcapital/internal/domain"
)

// PolygonSource adapts Polygon.io's aggregates API into a data.Source, the
// second concrete DataSource implementation alongside AlpacaSource so a
// strategy can be pointed at either vendor without changing any core code.
type PolygonSource struct {
	client  *polygon.Client
	symbols []string
	breaker *gobreaker.CircuitBreaker[[]domain.Bar]
}

// PolygonConfig holds the credentials and symbol universe for a PolygonSource.
type PolygonConfig struct {
	APIKey  string
	Symbols []string
}

// NewPolygonSource builds a PolygonSource.
func NewPolygonSource(cfg PolygonConfig) *PolygonSource {
	settings := gobreaker.Settings{
		Name:        "polygon-marketdata",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &PolygonSource{
		client:  polygon.New(cfg.APIKey),
		symbols: append([]string(nil), cfg.Symbols...),
		breaker: gobreaker.NewCircuitBreaker[[]domain.Bar](settings),
	}
}

// ListSymbols returns the configured symbol universe.
func (s *PolygonSource) ListSymbols(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.symbols...), nil
}

func polygonTimespan(freq domain.Frequency) (int, models.Timespan, error) {
	switch freq {
	case domain.FrequencyHourly:
		return 1, models.Hour, nil
	case domain.FrequencyDaily:
		return 1, models.Day, nil
	case domain.FrequencyWeekly:
		return 1, models.Week, nil
	default:
		return 0, "", ErrUnsupportedFrequency
	}
}

// FetchKline fetches up to two years of aggregates for symbol at freq,
// through the circuit breaker, and translates them into domain.Bar.
func (s *PolygonSource) FetchKline(ctx context.Context, symbol string, freq domain.Frequency) ([]domain.Bar, error) {
	multiplier, timespan, err := polygonTimespan(freq)
	if err != nil {
		return nil, err
	}
	to := time.Now()
	from := to.AddDate(-2, 0, 0)

	bars, err := s.breaker.Execute(func() ([]domain.Bar, error) {
		params := models.ListAggsParams{
			Ticker:     symbol,
			Multiplier: multiplier,
			Timespan:   timespan,
			From:       models.Millis(from),
			To:         models.Millis(to),
		}.WithLimit(50000)

		iter := s.client.ListAggs(ctx, params)
		out := make([]domain.Bar, 0)
		for iter.Next() {
			agg := iter.Item()
			ts := time.Time(agg.Timestamp)
			bar, err := domain.NewBar(symbol, ts, freq, agg.Open, agg.High, agg.Low, agg.Close, int64(agg.Volume), agg.Close*agg.Volume)
			if err != nil {
				continue
			}
			out = append(out, bar)
		}
		if iter.Err() != nil {
			return nil, fmt.Errorf("polygon: list aggs %s: %w", symbol, iter.Err())
		}
		if len(out) == 0 {
			return nil, ErrNoData
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("polygon: circuit breaker: %w", err)
	}
	return bars, nil
}

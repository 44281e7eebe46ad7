// Package store implements the optional business store named in spec.md
// §6 ("Optional business store (key/value-like) may persist named
// universes, calendars, and strategy configs"): a Postgres-backed Store for
// exactly those three things. Backtests never require it — when no DSN is
// configured, the core runs entirely against in-memory universes and the
// JSON-file-backed internal/calendar.Store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quantcapital/internal/domain"
)

// Config holds connection-pool tunables, mirroring the reference database
// wrapper's pool-sizing and retry-with-backoff knobs.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
}

// DefaultConfig returns production-sensible pool defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        2,
		ConnMaxLifetime: 5 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}
}

// Store persists named universes, calendars, and strategy configs to
// Postgres as JSON-valued rows keyed by name — a key/value-like schema, as
// spec.md leaves the schema implementation-defined.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres with exponential-backoff retry, provisions the
// three tables if absent, and returns a ready Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store: DSN must not be empty")
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MinConns <= 0 {
		cfg.MinConns = 2
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	var pool *pgxpool.Pool
	delay := cfg.RetryDelay
	for attempt := 0; attempt <= cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			continue
		}
		if err = pool.Ping(ctx); err == nil {
			break
		}
		pool.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("store: connect after %d attempt(s): %w", cfg.RetryAttempts+1, err)
	}

	if err := provision(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: provision schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func provision(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS universes (
			name TEXT PRIMARY KEY,
			symbols JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calendars (
			market TEXT PRIMARY KEY,
			holidays JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS strategy_configs (
			strategy_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			enabled BOOLEAN NOT NULL,
			config JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveUniverse upserts u under its own name.
func (s *Store) SaveUniverse(ctx context.Context, u *domain.Universe) error {
	symbols, err := json.Marshal(u.Symbols())
	if err != nil {
		return fmt.Errorf("store: marshal universe %s: %w", u.Name, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO universes (name, symbols, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET symbols = EXCLUDED.symbols, updated_at = EXCLUDED.updated_at`,
		u.Name, symbols, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save universe %s: %w", u.Name, err)
	}
	return nil
}

// LoadUniverse fetches a previously saved universe by name.
func (s *Store) LoadUniverse(ctx context.Context, name string) (*domain.Universe, error) {
	var symbolsJSON []byte
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT symbols, updated_at FROM universes WHERE name = $1`, name).
		Scan(&symbolsJSON, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store: universe %s: %w", name, pgx.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load universe %s: %w", name, err)
	}
	var symbols []string
	if err := json.Unmarshal(symbolsJSON, &symbols); err != nil {
		return nil, fmt.Errorf("store: unmarshal universe %s: %w", name, err)
	}
	return domain.NewUniverse(name, symbols, updatedAt), nil
}

// SaveCalendarHolidays upserts market's holiday set. Sessions are not
// persisted: they are startup configuration (spec.md §3's fixed intraday
// session bounds), not state that changes at runtime.
func (s *Store) SaveCalendarHolidays(ctx context.Context, market string, holidays []time.Time, now time.Time) error {
	dates := make([]string, 0, len(holidays))
	for _, h := range holidays {
		dates = append(dates, h.Format("2006-01-02"))
	}
	blob, err := json.Marshal(dates)
	if err != nil {
		return fmt.Errorf("store: marshal calendar %s: %w", market, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO calendars (market, holidays, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (market) DO UPDATE SET holidays = EXCLUDED.holidays, updated_at = EXCLUDED.updated_at`,
		market, blob, now)
	if err != nil {
		return fmt.Errorf("store: save calendar %s: %w", market, err)
	}
	return nil
}

// LoadCalendarHolidays fetches market's persisted holiday dates.
func (s *Store) LoadCalendarHolidays(ctx context.Context, market string) ([]time.Time, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT holidays FROM calendars WHERE market = $1`, market).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load calendar %s: %w", market, err)
	}
	var dates []string
	if err := json.Unmarshal(blob, &dates); err != nil {
		return nil, fmt.Errorf("store: unmarshal calendar %s: %w", market, err)
	}
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveStrategyConfig upserts a strategy instance's configuration.
func (s *Store) SaveStrategyConfig(ctx context.Context, inst domain.StrategyInstance, now time.Time) error {
	blob, err := json.Marshal(inst.Config)
	if err != nil {
		return fmt.Errorf("store: marshal strategy config %s: %w", inst.StrategyID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO strategy_configs (strategy_id, name, kind, enabled, config, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (strategy_id) DO UPDATE SET
			name = EXCLUDED.name, kind = EXCLUDED.kind, enabled = EXCLUDED.enabled,
			config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		inst.StrategyID, inst.Name, string(inst.Kind), inst.Enabled, blob, now)
	if err != nil {
		return fmt.Errorf("store: save strategy config %s: %w", inst.StrategyID, err)
	}
	return nil
}

// LoadStrategyConfig fetches a previously saved strategy instance by ID.
func (s *Store) LoadStrategyConfig(ctx context.Context, strategyID string) (domain.StrategyInstance, error) {
	var name, kind string
	var enabled bool
	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, kind, enabled, config FROM strategy_configs WHERE strategy_id = $1`, strategyID).
		Scan(&name, &kind, &enabled, &blob)
	if err != nil {
		return domain.StrategyInstance{}, fmt.Errorf("store: load strategy config %s: %w", strategyID, err)
	}
	var config map[string]any
	if err := json.Unmarshal(blob, &config); err != nil {
		return domain.StrategyInstance{}, fmt.Errorf("store: unmarshal strategy config %s: %w", strategyID, err)
	}
	inst, err := domain.NewStrategyInstance(strategyID, name, domain.StrategyKind(kind), config)
	if err != nil {
		return domain.StrategyInstance{}, err
	}
	inst.Enabled = enabled
	return inst, nil
}

// HealthCheck pings the underlying connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("store: health check: %w", err)
	}
	return nil
}

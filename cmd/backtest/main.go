package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quantcapital/internal/backtest"
	"quantcapital/internal/calendar"
	"quantcapital/internal/clock"
	"quantcapital/internal/data"
	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
	"quantcapital/internal/execution"
	"quantcapital/internal/observability"
	"quantcapital/internal/portfolio"
	"quantcapital/internal/strategy"
	"quantcapital/libs/dataset"
)

var (
	version   = "0.1.0"
	startTime = time.Now()
)

// Config holds this run's tunables, loaded from the environment with the
// reference MA-crossover defaults applied to anything unset.
type Config struct {
	DataDir        string
	CatalogDir     string
	StartDate      string
	EndDate        string
	InitialCapital float64
	MetricsPort    string

	ShortWindow      int
	LongWindow       int
	StopLossPct      float64
	TakeProfitPct    float64
	UniversalStopPct float64
}

func main() {
	cfg := loadConfig()

	log.Printf("starting quantcapital-backtest v%s", version)
	log.Printf("data dir: %s, catalog dir: %s", cfg.DataDir, cfg.CatalogDir)
	log.Printf("window: %s to %s, initial capital: %.2f", cfg.StartDate, cfg.EndDate, cfg.InitialCapital)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("backtest run failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func run(ctx context.Context, cfg Config) (backtest.Result, error) {
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return backtest.Result{}, fmt.Errorf("backtest: invalid start date %q: %w", cfg.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return backtest.Result{}, fmt.Errorf("backtest: invalid end date %q: %w", cfg.EndDate, err)
	}

	reg, err := dataset.Open(cfg.CatalogDir)
	if err != nil {
		return backtest.Result{}, fmt.Errorf("backtest: opening dataset catalog: %w", err)
	}
	sources, symbols, err := loadCSVDatasets(reg, cfg.DataDir)
	if err != nil {
		return backtest.Result{}, err
	}
	if len(symbols) == 0 {
		return backtest.Result{}, fmt.Errorf("backtest: no CSV files found in %s", cfg.DataDir)
	}
	log.Printf("loaded %d symbol(s): %v", len(symbols), symbols)

	cal := calendar.New("us_equity", []calendar.Session{calendar.USEquityRegularSession}, nil)
	universe := domain.NewUniverse("backtest-universe", symbols, start)

	account, err := domain.NewAccount("backtest-account", cfg.InitialCapital)
	if err != nil {
		return backtest.Result{}, fmt.Errorf("backtest: %w", err)
	}

	dataHandler := data.New(universe, cal)
	for _, src := range sources {
		if err := dataHandler.LoadFromSource(ctx, src, domain.FrequencyDaily); err != nil {
			return backtest.Result{}, fmt.Errorf("backtest: loading dataset: %w", err)
		}
	}

	stratMgr := strategy.New(universe, account, dataHandler)
	registerMACrossoverRules(stratMgr, "ma_rule", cfg)

	bus := eventbus.New()
	registry := observability.NewRegistry()
	metrics := observability.NewTradingMetrics(registry)
	portfolioMgr := portfolio.New(account, portfolio.DefaultConfig())
	executor := execution.NewSimulated(execution.DefaultConfig())

	stopMetrics := serveMetrics(cfg.MetricsPort, registry)
	defer stopMetrics()

	driver := backtest.New(backtest.Config{
		Account:    account,
		Bus:        bus,
		Clock:      clock.NewManualClock(start),
		Calendar:   cal,
		Data:       dataHandler,
		Strategies: stratMgr,
		Portfolio:  portfolioMgr,
		Executor:   executor,
		Metrics:    metrics,
	})

	return driver.Run(ctx, start, end)
}

// registerMACrossoverRules registers the three kind-specific instances of
// one MA-crossover rule, sharing ownerID so the EXIT and UNIVERSAL_STOP
// instances recognize positions the ENTRY instance opened.
func registerMACrossoverRules(mgr *strategy.Manager, ownerID string, cfg Config) {
	base := map[string]any{
		"owner_id":           ownerID,
		"short_window":       cfg.ShortWindow,
		"long_window":        cfg.LongWindow,
		"stop_loss_pct":      cfg.StopLossPct,
		"take_profit_pct":    cfg.TakeProfitPct,
		"universal_stop_pct": cfg.UniversalStopPct,
	}
	kinds := []struct {
		id   string
		kind domain.StrategyKind
	}{
		{ownerID + "_entry", domain.StrategyEntry},
		{ownerID + "_exit", domain.StrategyExit},
		{ownerID + "_stop", domain.StrategyUniversalStop},
	}
	for _, k := range kinds {
		inst, err := domain.NewStrategyInstance(k.id, k.id, k.kind, base)
		if err != nil {
			log.Fatalf("backtest: registering %s: %v", k.id, err)
		}
		if err := mgr.Add(strategy.NewMACrossover(inst)); err != nil {
			log.Fatalf("backtest: registering %s: %v", k.id, err)
		}
	}
}

// loadCSVDatasets registers (if new) and loads every *.csv file in dir,
// deriving each dataset's name from its filename and its symbol from the
// name with the extension stripped and upper-cased.
func loadCSVDatasets(reg *dataset.Registry, dir string) ([]*dataset.CSVDataSource, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("backtest: reading data dir %s: %w", dir, err)
	}

	var sources []*dataset.CSVDataSource
	var symbols []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		symbol := strings.ToUpper(name)
		path := filepath.Join(dir, e.Name())

		d, err := reg.GetByName(name)
		if err != nil {
			d, err = reg.Register(dataset.Dataset{Name: name, Symbol: symbol, FilePath: path, Source: "csv"})
			if err != nil {
				return nil, nil, fmt.Errorf("backtest: registering %s: %w", path, err)
			}
		}

		src, err := reg.LoadDataSource(context.Background(), d.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("backtest: loading %s: %w", path, err)
		}
		sources = append(sources, src)
		symbols = append(symbols, symbol)
	}
	return sources, symbols, nil
}

// serveMetrics starts a background HTTP server exposing /health and
// /metrics for the duration of the run, and returns a function that shuts
// it down. A blank port disables the server.
func serveMetrics(port string, reg *observability.Registry) func() {
	if port == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"service": "quantcapital-backtest",
			"status":  "healthy",
			"uptime":  time.Since(startTime).String(),
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		reg.WriteText(w)
	})

	server := &http.Server{Addr: ":" + port, Handler: mux, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	go func() {
		log.Printf("metrics server listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx) //nolint:errcheck
	}
}

func loadConfig() Config {
	cfg := Config{
		DataDir:        os.Getenv("BACKTEST_DATA_DIR"),
		CatalogDir:     os.Getenv("BACKTEST_CATALOG_DIR"),
		StartDate:      os.Getenv("BACKTEST_START_DATE"),
		EndDate:        os.Getenv("BACKTEST_END_DATE"),
		InitialCapital: parseFloatEnv("BACKTEST_INITIAL_CAPITAL", 100_000),
		MetricsPort:    os.Getenv("BACKTEST_METRICS_PORT"),

		ShortWindow:      parseIntEnv("MA_SHORT_WINDOW", 5),
		LongWindow:       parseIntEnv("MA_LONG_WINDOW", 20),
		StopLossPct:      parseFloatEnv("MA_STOP_LOSS_PCT", 0.05),
		TakeProfitPct:    parseFloatEnv("MA_TAKE_PROFIT_PCT", 0.10),
		UniversalStopPct: parseFloatEnv("MA_UNIVERSAL_STOP_PCT", 0.08),
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
		log.Println("BACKTEST_DATA_DIR not set, using default ./data")
	}
	if cfg.CatalogDir == "" {
		cfg.CatalogDir = "./data/.catalog"
		log.Println("BACKTEST_CATALOG_DIR not set, using default ./data/.catalog")
	}
	if cfg.StartDate == "" {
		cfg.StartDate = time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
		log.Printf("BACKTEST_START_DATE not set, defaulting to one year ago: %s", cfg.StartDate)
	}
	if cfg.EndDate == "" {
		cfg.EndDate = time.Now().Format("2006-01-02")
		log.Printf("BACKTEST_END_DATE not set, defaulting to today: %s", cfg.EndDate)
	}

	return cfg
}

func parseFloatEnv(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("warning: invalid %s value %q, using default %.4f", key, val, defaultValue)
		return defaultValue
	}
	return parsed
}

func parseIntEnv(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("warning: invalid %s value %q, using default %d", key, val, defaultValue)
		return defaultValue
	}
	return parsed
}

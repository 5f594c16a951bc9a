package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/creditgate/internal/api/handlers"
	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/external/tradier"
	"github.com/wonny/creditgate/internal/history"
	"github.com/wonny/creditgate/internal/marketdata"
	"github.com/wonny/creditgate/internal/options"
	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/internal/screener"
	"github.com/wonny/creditgate/internal/strategyconfig"
	"github.com/wonny/creditgate/internal/strikes"
	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/database"
	"github.com/wonny/creditgate/pkg/httputil"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/metrics"
	"github.com/wonny/creditgate/pkg/redis"
)

const dataSource = "tradier"

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	strategy *strategyconfig.Config
	metrics  *metrics.Recorder
	http     *httputil.Client
	tradier  *tradier.Client
	bars     *marketdata.Repository
	history  *history.Repository
	tracker  *screener.Tracker
	scan     *scan.Service
	stream   *handlers.RunStream
}

// newApp loads config and wires the full stack. withStream adds the
// websocket run feed as the scan publisher.
// ⭐ SSOT: dependency wiring lives here only
func newApp(ctx context.Context, withStream bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	// 1. Strategy
	strategy, yamlData, err := strategyconfig.LoadOrDefault(cfg.Screen.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if err := strategy.ApplyEnv(cfg.Screen); err != nil {
		return nil, fmt.Errorf("apply screen settings: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	snapshot, err := strategyconfig.NewDecisionSnapshot(strategy, yamlData, time.Now())
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	// 2. Database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// 3. Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}
	cache := redis.NewCache(rdb, "creditgate")

	// 4. Upstream
	httpClient := httputil.NewWithTimeout(cfg, log, cfg.Tradier.Timeout).
		WithRetry(3, time.Second).
		WithCircuitBreaker(dataSource)
	if rdb.Enabled() {
		httpClient = httpClient.WithRateLimiter(
			redis.NewRateLimiter(rdb, "ratelimit"),
			redis.PerMinute(dataSource, cfg.Tradier.RateLimit),
		)
	} else {
		httpClient = httpClient.WithLocalLimit(cfg.Tradier.RateLimit, 5)
	}
	tc := tradier.NewClient(cfg.Tradier, httpClient, log)
	if !cfg.Tradier.Enabled() {
		log.Warn("TRADIER_API_KEY not set: scans use stored bars only and skip options checks")
	}

	// 5. Data layer
	rec := metrics.New()
	bars := marketdata.NewRepository(db.Pool, dataSource)
	var upstream contracts.MarketDataProvider
	if cfg.Tradier.Enabled() {
		upstream = tc
	}
	provider := marketdata.NewProvider(upstream, bars, cache, log)

	// without an API key every options check is skipped
	var optProvider contracts.OptionsDataProvider = &options.Static{}
	if cfg.Tradier.Enabled() {
		optProvider = options.NewCached(tradier.NewOptionsProvider(tc), cache)
	}
	snapshots := options.NewRepository(db.Pool, dataSource)
	runs := history.NewRepository(db.Pool)

	// spread ranking reads live chains, so it needs the API key too
	var spreads scan.SpreadSelector
	if cfg.Tradier.Enabled() {
		spreads = strikes.NewSelector(tc, strategy.Strikes, log)
	}

	// 6. Screening
	var (
		stream    *handlers.RunStream
		publisher scan.Publisher
	)
	if withStream {
		stream = handlers.NewRunStream(log)
		publisher = stream
	}
	tracker := screener.NewTracker()
	deps := scan.Dependencies{
		Market:    marketdata.NewCollector(provider, log),
		Provider:  provider,
		Options:   options.NewCollector(optProvider, log),
		Snapshots: snapshots,
		Spreads:   spreads,
		Screener:  screener.New(strategy.ScreenerConfig(), log),
		Tracker:   tracker,
		Store:     runs,
		Metrics:   rec,
		Publisher: publisher,
	}
	settings := scan.Settings{
		Tickers:          strategy.Screener.Tickers,
		MarketSymbol:     strategy.Screener.MarketSymbol,
		VolatilitySymbol: strategy.Screener.VolatilitySymbol,
		LookbackDays:     strategy.Screener.LookbackDays,
		Workers:          strategy.Screener.Workers,
		ConfigHash:       snapshot.ConfigHash,
	}

	log.WithFields(map[string]interface{}{
		"strategy":    strategy.Meta.StrategyID,
		"config_hash": snapshot.ConfigHash[:12],
		"tickers":     len(settings.Tickers),
		"redis":       rdb.Enabled(),
		"tradier":     cfg.Tradier.Enabled(),
	}).Debug("Application wired")

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    rdb,
		strategy: strategy,
		metrics:  rec,
		http:     httpClient,
		tradier:  tc,
		bars:     bars,
		history:  runs,
		tracker:  tracker,
		scan:     scan.NewService(settings, deps, log),
		stream:   stream,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if a.stream != nil {
		a.stream.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

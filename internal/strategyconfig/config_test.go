package strategyconfig

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/pkg/config"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/credit_spread.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "put_credit_spread", cfg.Meta.StrategyID)
	assert.Equal(t, "SPY", cfg.Screener.MarketSymbol)
	assert.Equal(t, 45, cfg.EventVolatility.TradeDurationDays)
	assert.InDelta(t, 0.40, cfg.FailureModes.CorrelatedBreakdownThreshold, 1e-12)

	// the shipped file matches the built-in thresholds
	def := Default()
	assert.Equal(t, def.MarketRegime, cfg.MarketRegime)
	assert.Equal(t, def.StructuralSafety, cfg.StructuralSafety)
	assert.Equal(t, def.FailureModes, cfg.FailureModes)
	assert.Equal(t, def.Strikes, cfg.Strikes)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("market_regime:\n  sma_periods: 50\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sma_periods")
}

func TestParse_PartialOverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte("event_volatility:\n  trade_duration_days: 30\n"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.EventVolatility.TradeDurationDays)
	assert.Equal(t, 20.0, cfg.EventVolatility.MinIVRank)
	assert.Equal(t, Default().MarketRegime, cfg.MarketRegime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad decision time", func(c *Config) { c.Meta.DecisionTimeLocal = "4pm" }, "meta.decision_time_local"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"no market symbol", func(c *Config) { c.Screener.MarketSymbol = "" }, "screener.market_symbol"},
		{"no workers", func(c *Config) { c.Screener.Workers = 0 }, "screener.workers"},
		{"lookback too short", func(c *Config) { c.Screener.LookbackDays = 30 }, "screener.lookback_days"},
		{"zero sma", func(c *Config) { c.MarketRegime.SMAPeriod = 0 }, "market_regime.sma_period"},
		{"inverted iv band", func(c *Config) { c.EventVolatility.MinIVRank = 70 }, "event_volatility"},
		{"threshold out of range", func(c *Config) { c.FailureModes.CorrelatedBreakdownThreshold = 1.2 }, "failure_modes.correlated_breakdown_threshold"},
		{"tolerance out of range", func(c *Config) { c.StructuralSafety.ConsolidationTolerance = 0 }, "structural_safety.consolidation_tolerance"},
		{"observations below sma", func(c *Config) { c.FailureModes.MinObservations = 20 }, "failure_modes.min_observations"},
		{"inverted dte window", func(c *Config) { c.Strikes.MinDTE = 50 }, "strikes"},
		{"zero spread width", func(c *Config) { c.Strikes.SpreadWidth = 0 }, "strikes.spread_width"},
		{"call delta band", func(c *Config) { c.Strikes.MaxDelta = 0.2 }, "strikes"},
		{"negative credit floor", func(c *Config) { c.Strikes.MinCredit = -1 }, "strikes"},
		{"no spreads requested", func(c *Config) { c.Strikes.TopN = 0 }, "strikes.top_n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.StructuralSafety.UseATRFilter = false
	cfg.FailureModes.VolSpikePct = 8

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["ATR_FILTER_DISABLED"])
	assert.True(t, codes["DETECTOR_STRICTER_THAN_GATE"])
}

func TestHash(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, _ := Hash(Default())
	assert.Equal(t, a, b, "hash not deterministic")

	changed := Default()
	changed.EventVolatility.MaxIVRank = 55
	c, _ := Hash(changed)
	assert.NotEqual(t, a, c)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, data, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	reparsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, reparsed)
}

func TestNewDecisionSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 2, 20, 30, 0, 0, time.UTC)
	snap, err := NewDecisionSnapshot(Default(), []byte("meta: {}"), now)
	require.NoError(t, err)

	hash, _ := Hash(Default())
	assert.Equal(t, hash, snap.ConfigHash)
	assert.Equal(t, "put_credit_spread", snap.StrategyID)
	assert.Equal(t, now, snap.CreatedAt)
}

func TestScreenerConfig(t *testing.T) {
	cfg := Default()
	cfg.Screener.Workers = 8

	sc := cfg.ScreenerConfig()
	assert.Equal(t, 8, sc.Workers)
	assert.Equal(t, cfg.FailureModes, sc.FailureModes)
	assert.Equal(t, cfg.EventVolatility, sc.EventVolatility)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Screener.Tickers = []string{"AAPL"}

	err := cfg.ApplyEnv(config.ScreenConfig{
		MarketSymbol: "qqq",
		LookbackDays: 250,
		Workers:      8,
	})
	require.NoError(t, err)

	assert.Equal(t, "QQQ", cfg.Screener.MarketSymbol)
	assert.Equal(t, "VIX", cfg.Screener.VolatilitySymbol, "unset values keep the strategy's")
	assert.Equal(t, 250, cfg.Screener.LookbackDays)
	assert.Equal(t, 8, cfg.Screener.Workers)
	assert.Equal(t, []string{"AAPL"}, cfg.Screener.Tickers)

	require.NoError(t, cfg.ApplyEnv(config.ScreenConfig{Tickers: []string{"MSFT", "XOM"}}))
	assert.Equal(t, []string{"MSFT", "XOM"}, cfg.Screener.Tickers)

	err = cfg.ApplyEnv(config.ScreenConfig{LookbackDays: 20})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "screener.lookback_days", verr.Field)
}

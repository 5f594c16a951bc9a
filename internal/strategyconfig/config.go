package strategyconfig

import (
	"time"

	"github.com/wonny/creditgate/internal/failuremode"
	"github.com/wonny/creditgate/internal/gates"
	"github.com/wonny/creditgate/internal/screener"
	"github.com/wonny/creditgate/internal/strikes"
)

// Config is the full credit-spread screening strategy
type Config struct {
	Meta             Meta                         `yaml:"meta" json:"meta"`
	Screener         ScreenerSettings             `yaml:"screener" json:"screener"`
	MarketRegime     gates.MarketRegimeConfig     `yaml:"market_regime" json:"market_regime"`
	RelativeStrength gates.RelativeStrengthConfig `yaml:"relative_strength" json:"relative_strength"`
	StructuralSafety gates.StructuralSafetyConfig `yaml:"structural_safety" json:"structural_safety"`
	EventVolatility  gates.EventVolatilityConfig  `yaml:"event_volatility" json:"event_volatility"`
	FailureModes     failuremode.Config           `yaml:"failure_modes" json:"failure_modes"`
	Strikes          strikes.Config               `yaml:"strikes" json:"strikes"`
}

// Meta identifies the strategy
type Meta struct {
	StrategyID        string `yaml:"strategy_id" json:"strategy_id"`
	Version           string `yaml:"version" json:"version"`
	Timezone          string `yaml:"timezone" json:"timezone"`
	DecisionTimeLocal string `yaml:"decision_time_local" json:"decision_time_local"` // HH:MM, after the close
}

// ScreenerSettings controls what a run fetches and how wide it fans out
type ScreenerSettings struct {
	MarketSymbol     string   `yaml:"market_symbol" json:"market_symbol"`
	VolatilitySymbol string   `yaml:"volatility_symbol" json:"volatility_symbol"`
	LookbackDays     int      `yaml:"lookback_days" json:"lookback_days"`
	Workers          int      `yaml:"workers" json:"workers"`
	Tickers          []string `yaml:"tickers,omitempty" json:"tickers,omitempty"`
}

// Default returns the built-in strategy used when no YAML file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID:        "put_credit_spread",
			Version:           "1",
			Timezone:          "America/New_York",
			DecisionTimeLocal: "16:30",
		},
		Screener: ScreenerSettings{
			MarketSymbol:     "SPY",
			VolatilitySymbol: "VIX",
			LookbackDays:     180,
			Workers:          4,
		},
		MarketRegime:     gates.DefaultMarketRegimeConfig(),
		RelativeStrength: gates.DefaultRelativeStrengthConfig(),
		StructuralSafety: gates.DefaultStructuralSafetyConfig(),
		EventVolatility:  gates.DefaultEventVolatilityConfig(),
		FailureModes:     failuremode.DefaultConfig(),
		Strikes:          strikes.DefaultConfig(),
	}
}

// ScreenerConfig converts the strategy into the screener's thresholds
func (c *Config) ScreenerConfig() screener.Config {
	return screener.Config{
		MarketRegime:     c.MarketRegime,
		RelativeStrength: c.RelativeStrength,
		StructuralSafety: c.StructuralSafety,
		EventVolatility:  c.EventVolatility,
		FailureModes:     c.FailureModes,
		Workers:          c.Screener.Workers,
	}
}

// DecisionSnapshot records which strategy produced a run
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata"
)

// ValidationError is a fatal config problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a non-fatal config concern
type Warning struct {
	Code    string
	Message string
}

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}
	if cfg.Meta.DecisionTimeLocal != "" {
		if err := validateHHMM(cfg.Meta.DecisionTimeLocal); err != nil {
			return ValidationError{"meta.decision_time_local", err.Error()}
		}
	}

	// === Screener ===
	s := cfg.Screener
	if s.MarketSymbol == "" {
		return ValidationError{"screener.market_symbol", "required"}
	}
	if s.VolatilitySymbol == "" {
		return ValidationError{"screener.volatility_symbol", "required"}
	}
	if s.Workers < 1 {
		return ValidationError{"screener.workers", "must be >= 1"}
	}

	// lookback must cover the longest indicator window
	if need := cfg.requiredLookback(); s.LookbackDays < need {
		return ValidationError{"screener.lookback_days", fmt.Sprintf("must be >= %d (longest indicator window)", need)}
	}

	// === Market regime ===
	mr := cfg.MarketRegime
	if err := positive("market_regime.sma_period", mr.SMAPeriod); err != nil {
		return err
	}
	if err := positive("market_regime.lower_low_lookback", mr.LowerLowLookback); err != nil {
		return err
	}
	if err := positive("market_regime.vol_change_period", mr.VolChangePeriod); err != nil {
		return err
	}

	// === Relative strength ===
	if err := positive("relative_strength.return_period", cfg.RelativeStrength.ReturnPeriod); err != nil {
		return err
	}
	if err := positive("relative_strength.sma_period", cfg.RelativeStrength.SMAPeriod); err != nil {
		return err
	}

	// === Structural safety ===
	ss := cfg.StructuralSafety
	if err := positive("structural_safety.sma_period", ss.SMAPeriod); err != nil {
		return err
	}
	if err := positive("structural_safety.atr_period", ss.ATRPeriod); err != nil {
		return err
	}
	if ss.ATRMultiplier <= 0 {
		return ValidationError{"structural_safety.atr_multiplier", "must be > 0"}
	}
	if ss.ConsolidationTolerance <= 0 || ss.ConsolidationTolerance >= 1 {
		return ValidationError{"structural_safety.consolidation_tolerance", "must be in (0, 1)"}
	}
	if ss.ConsolidationMinDays < 2 {
		return ValidationError{"structural_safety.consolidation_min_days", "must be >= 2"}
	}

	// === Event & volatility ===
	ev := cfg.EventVolatility
	if ev.TradeDurationDays < 0 {
		return ValidationError{"event_volatility.trade_duration_days", "must be >= 0"}
	}
	if ev.MinIVRank < 0 || ev.MaxIVRank > 100 || ev.MinIVRank > ev.MaxIVRank {
		return ValidationError{"event_volatility", "iv rank band must satisfy 0 <= min_iv_rank <= max_iv_rank <= 100"}
	}
	if err := positive("event_volatility.iv_change_period", ev.IVChangePeriod); err != nil {
		return err
	}
	if err := positive("event_volatility.volume_avg_period", ev.VolumeAvgPeriod); err != nil {
		return err
	}

	// === Failure modes ===
	fm := cfg.FailureModes
	if fm.CorrelatedBreakdownThreshold <= 0 || fm.CorrelatedBreakdownThreshold >= 1 {
		return ValidationError{"failure_modes.correlated_breakdown_threshold", "must be in (0, 1)"}
	}
	if err := positive("failure_modes.sma_period", fm.SMAPeriod); err != nil {
		return err
	}
	if fm.MinObservations < fm.SMAPeriod {
		return ValidationError{"failure_modes.min_observations", "must be >= failure_modes.sma_period"}
	}
	if fm.RedDayWindow < 2 {
		return ValidationError{"failure_modes.red_day_window", "must be >= 2"}
	}

	// === Strike selection ===
	sk := cfg.Strikes
	if sk.MinDTE < 0 || sk.MinDTE > sk.MaxDTE {
		return ValidationError{"strikes", "dte window must satisfy 0 <= min_dte <= max_dte"}
	}
	if sk.SpreadWidth <= 0 {
		return ValidationError{"strikes.spread_width", "must be > 0"}
	}
	if sk.MinDelta < -1 || sk.MaxDelta > 0 || sk.MinDelta > sk.MaxDelta {
		return ValidationError{"strikes", "put delta band must satisfy -1 <= min_delta <= max_delta <= 0"}
	}
	if sk.MinVolume < 0 || sk.MinOpenInterest < 0 || sk.MinCredit < 0 {
		return ValidationError{"strikes", "liquidity and credit floors must be >= 0"}
	}
	if err := positive("strikes.top_n", sk.TopN); err != nil {
		return err
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.FailureModes.VolSpikePct < cfg.MarketRegime.MaxVolChangePct {
		warnings = append(warnings, Warning{
			Code:    "DETECTOR_STRICTER_THAN_GATE",
			Message: "failure_modes.vol_spike_pct is below market_regime.max_vol_change_pct; the detector will fire before the gate",
		})
	}

	if !cfg.StructuralSafety.UseATRFilter {
		warnings = append(warnings, Warning{
			Code:    "ATR_FILTER_DISABLED",
			Message: "structural_safety.use_atr_filter is off: strikes may sit inside normal daily range",
		})
	}

	if cfg.EventVolatility.TradeDurationDays < 21 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_TRADE_WINDOW",
			Message: "event_volatility.trade_duration_days < 21: earnings checks cover less than one monthly cycle",
		})
	}

	return warnings
}

// requiredLookback returns the longest window any gate or check reads
func (c *Config) requiredLookback() int {
	windows := []int{
		c.MarketRegime.SMAPeriod + 1,
		c.RelativeStrength.SMAPeriod + 1,
		c.RelativeStrength.ReturnPeriod + 1,
		c.StructuralSafety.SMAPeriod,
		c.StructuralSafety.SwingLookback,
		c.StructuralSafety.ConsolidationLookback,
		c.FailureModes.MinObservations,
	}
	longest := 0
	for _, w := range windows {
		if w > longest {
			longest = w
		}
	}
	return longest
}

// === Helper Functions ===

func validateHHMM(s string) error {
	if !hhmm.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

func positive(field string, v int) error {
	if v <= 0 {
		return ValidationError{field, "must be > 0"}
	}
	return nil
}

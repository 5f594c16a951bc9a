package gates

// MarketRegimeConfig holds thresholds for the market regime gate
type MarketRegimeConfig struct {
	SMAPeriod        int     `yaml:"sma_period" json:"sma_period"`
	LowerLowLookback int     `yaml:"lower_low_lookback" json:"lower_low_lookback"`
	VolChangePeriod  int     `yaml:"vol_change_period" json:"vol_change_period"`
	MaxVolChangePct  float64 `yaml:"max_vol_change_pct" json:"max_vol_change_pct"`
}

// DefaultMarketRegimeConfig returns default market regime thresholds
func DefaultMarketRegimeConfig() MarketRegimeConfig {
	return MarketRegimeConfig{
		SMAPeriod:        50,
		LowerLowLookback: 20,
		VolChangePeriod:  5,
		MaxVolChangePct:  10.0,
	}
}

// RelativeStrengthConfig holds thresholds for the relative strength gate
type RelativeStrengthConfig struct {
	ReturnPeriod int `yaml:"return_period" json:"return_period"`
	SMAPeriod    int `yaml:"sma_period" json:"sma_period"`
}

// DefaultRelativeStrengthConfig returns default relative strength thresholds
func DefaultRelativeStrengthConfig() RelativeStrengthConfig {
	return RelativeStrengthConfig{
		ReturnPeriod: 30,
		SMAPeriod:    50,
	}
}

// StructuralSafetyConfig holds support-level parameters
type StructuralSafetyConfig struct {
	SMAPeriod              int     `yaml:"sma_period" json:"sma_period"`
	SwingLookback          int     `yaml:"swing_lookback" json:"swing_lookback"`
	ConsolidationLookback  int     `yaml:"consolidation_lookback" json:"consolidation_lookback"`
	ConsolidationTolerance float64 `yaml:"consolidation_tolerance" json:"consolidation_tolerance"`
	ConsolidationMinDays   int     `yaml:"consolidation_min_days" json:"consolidation_min_days"`
	ATRPeriod              int     `yaml:"atr_period" json:"atr_period"`
	ATRMultiplier          float64 `yaml:"atr_multiplier" json:"atr_multiplier"`
	UseATRFilter           bool    `yaml:"use_atr_filter" json:"use_atr_filter"`
}

// DefaultStructuralSafetyConfig returns default support-level parameters
func DefaultStructuralSafetyConfig() StructuralSafetyConfig {
	return StructuralSafetyConfig{
		SMAPeriod:              50,
		SwingLookback:          60,
		ConsolidationLookback:  60,
		ConsolidationTolerance: 0.02,
		ConsolidationMinDays:   5,
		ATRPeriod:              14,
		ATRMultiplier:          1.5,
		UseATRFilter:           true,
	}
}

// EventVolatilityConfig holds event and implied-volatility thresholds
type EventVolatilityConfig struct {
	TradeDurationDays int     `yaml:"trade_duration_days" json:"trade_duration_days"`
	MinIVRank         float64 `yaml:"min_iv_rank" json:"min_iv_rank"`
	MaxIVRank         float64 `yaml:"max_iv_rank" json:"max_iv_rank"`
	IVChangePeriod    int     `yaml:"iv_change_period" json:"iv_change_period"`
	MaxIVChangePct    float64 `yaml:"max_iv_change_pct" json:"max_iv_change_pct"`
	VolumeAvgPeriod   int     `yaml:"volume_avg_period" json:"volume_avg_period"`
}

// DefaultEventVolatilityConfig returns default event and volatility thresholds
func DefaultEventVolatilityConfig() EventVolatilityConfig {
	return EventVolatilityConfig{
		TradeDurationDays: 45,
		MinIVRank:         20.0,
		MaxIVRank:         60.0,
		IVChangePeriod:    5,
		MaxIVChangePct:    5.0,
		VolumeAvgPeriod:   20,
	}
}

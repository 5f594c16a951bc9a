package contracts

import (
	"strings"
	"time"
)

// GateID identifies one of the four screening gates
type GateID string

const (
	GateMarketRegime     GateID = "MARKET_REGIME"
	GateRelativeStrength GateID = "RELATIVE_STRENGTH"
	GateStructuralSafety GateID = "STRUCTURAL_SAFETY"
	GateEventVolatility  GateID = "EVENT_VOLATILITY"
)

// GateVerdict is the common part of every gate result
// ⭐ SSOT: pass/fail + ordered failure reasons
type GateVerdict struct {
	Gate           GateID   `json:"gate"`
	Passed         bool     `json:"passed"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
}

// Reason joins all failure reasons, empty when the gate passed
func (v GateVerdict) Reason() string {
	return strings.Join(v.FailureReasons, "; ")
}

// NewVerdict builds a verdict from the collected failure reasons
func NewVerdict(gate GateID, reasons []string) GateVerdict {
	return GateVerdict{
		Gate:           gate,
		Passed:         len(reasons) == 0,
		FailureReasons: reasons,
	}
}

// MarketRegimeMetrics holds the market regime checks
type MarketRegimeMetrics struct {
	Close       float64  `json:"close"`
	SMA         *float64 `json:"sma"`
	AboveSMA    bool     `json:"above_sma"`
	SMASlope    float64  `json:"sma_slope"`
	SMARising   bool     `json:"sma_rising"`
	HasLowerLow bool     `json:"has_lower_low"`
	NoLowerLow  bool     `json:"no_lower_low"`
	VolChange   float64  `json:"vol_change"`
	VolStable   bool     `json:"vol_stable"`
}

// MarketRegimeResult is the Market Regime Gate output
type MarketRegimeResult struct {
	GateVerdict
	Metrics MarketRegimeMetrics `json:"metrics"`
}

// RelativeStrengthMetrics holds the relative strength checks
type RelativeStrengthMetrics struct {
	StockReturn      float64  `json:"stock_return"`
	MarketReturn     float64  `json:"market_return"`
	RelativeStrength float64  `json:"relative_strength"`
	Outperforming    bool     `json:"outperforming"`
	Close            float64  `json:"close"`
	SMA              *float64 `json:"sma"`
	AboveSMA         bool     `json:"above_sma"`
	SMASlope         float64  `json:"sma_slope"`
	SMARising        bool     `json:"sma_rising"`
}

// RelativeStrengthResult is the Relative Strength Gate output
type RelativeStrengthResult struct {
	GateVerdict
	Metrics RelativeStrengthMetrics `json:"metrics"`
}

// SupportLevels are the structural levels a short put strike must sit under.
// Nil means unavailable.
type SupportLevels struct {
	MovingAverage     *float64 `json:"moving_average"`
	HigherLow         *float64 `json:"higher_low"`
	Consolidation     *float64 `json:"consolidation"`
	ATR               *float64 `json:"atr"`
	MinStrikeDistance *float64 `json:"min_strike_distance"`
	SafeStrikeCeiling *float64 `json:"safe_strike_ceiling"`
}

// StrikeCheck is the evaluation of one hypothetical short strike
type StrikeCheck struct {
	Strike             float64 `json:"strike"`
	BelowSMA           bool    `json:"below_sma"`
	BelowHigherLow     bool    `json:"below_higher_low"`
	BelowConsolidation bool    `json:"below_consolidation"`
	StrikeDistance     float64 `json:"strike_distance"`
	SufficientDistance bool    `json:"sufficient_distance"`
}

// StructuralSafetyMetrics holds support levels and the optional strike check
type StructuralSafetyMetrics struct {
	CurrentPrice float64       `json:"current_price"`
	Support      SupportLevels `json:"support"`
	Strike       *StrikeCheck  `json:"strike,omitempty"`
}

// StructuralSafetyResult is the Structural Safety Gate output
type StructuralSafetyResult struct {
	GateVerdict
	Metrics StructuralSafetyMetrics `json:"metrics"`
}

// StrikeRange is the safe zone suggestion for one ticker
type StrikeRange struct {
	Ticker        string   `json:"ticker"`
	CurrentPrice  float64  `json:"current_price"`
	MaxSafeStrike *float64 `json:"max_safe_strike"`
	DiscountPct   *float64 `json:"discount_pct"`
}

// EventVolatilityMetrics holds event and volatility checks.
// *Checked=false means the optional input was absent and the check was skipped.
type EventVolatilityMetrics struct {
	AsOf               time.Time  `json:"as_of"`
	EarningsChecked    bool       `json:"earnings_checked"`
	EarningsDate       *time.Time `json:"earnings_date,omitempty"`
	DaysToEarnings     *int       `json:"days_to_earnings,omitempty"`
	NoEarningsConflict bool       `json:"no_earnings_conflict"`

	IVRankChecked bool     `json:"iv_rank_checked"`
	IVRank        *float64 `json:"iv_rank,omitempty"`
	IVRankInRange bool     `json:"iv_rank_in_range"`

	IVChangeChecked bool    `json:"iv_change_checked"`
	IVChange        float64 `json:"iv_change"`
	IVStable        bool    `json:"iv_stable"`

	DownDay       bool     `json:"down_day"`
	VolumeChecked bool     `json:"volume_checked"`
	VolumeToday   float64  `json:"volume_today"`
	AvgVolume     *float64 `json:"avg_volume,omitempty"`
	VolumeOK      bool     `json:"volume_ok"`
}

// EventVolatilityResult is the Event & Volatility Gate output
type EventVolatilityResult struct {
	GateVerdict
	Metrics EventVolatilityMetrics `json:"metrics"`
}

// TickerVerdict collects the per-ticker gate results reached during a run.
// Gates after the first failing one are nil.
type TickerVerdict struct {
	Ticker           string                  `json:"ticker"`
	RelativeStrength *RelativeStrengthResult `json:"relative_strength,omitempty"`
	StructuralSafety *StructuralSafetyResult `json:"structural_safety,omitempty"`
	EventVolatility  *EventVolatilityResult  `json:"event_volatility,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

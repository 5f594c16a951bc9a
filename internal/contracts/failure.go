package contracts

// FailureMode identifies a systemic breakdown condition
type FailureMode string

const (
	ModeRegimeTransition          FailureMode = "REGIME_TRANSITION"
	ModeRelativeStrengthBreakdown FailureMode = "RELATIVE_STRENGTH_BREAKDOWN"
	ModeCorrelatedBreakdown       FailureMode = "CORRELATED_BREAKDOWN"
	ModeVolatilityExpansion       FailureMode = "VOLATILITY_EXPANSION"
)

// Severity of a failure check or alert
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityWarning  Severity = "WARNING"
)

// FailureDetail is the mode-specific payload of a FailureCheck.
// The set of implementations is closed to this package.
type FailureDetail interface {
	Mode() FailureMode
	failureDetail()
}

// RegimeTransitionDetail carries the market conditions behind a regime transition
type RegimeTransitionDetail struct {
	Close        float64  `json:"close"`
	SMA          *float64 `json:"sma"`
	BelowSMA     bool     `json:"below_sma"`
	SMASlope     float64  `json:"sma_slope"`
	SMAFalling   bool     `json:"sma_falling"`
	MadeLowerLow bool     `json:"made_lower_low"`
	VolChange    float64  `json:"vol_change"`
	VolSpiking   bool     `json:"vol_spiking"`
}

// RelativeStrengthBreakdownDetail carries one ticker's short-term weakness
type RelativeStrengthBreakdownDetail struct {
	Ticker          string   `json:"ticker"`
	StockReturn     float64  `json:"stock_return"`
	MarketReturn    float64  `json:"market_return"`
	Underperforming bool     `json:"underperforming"`
	Close           float64  `json:"close"`
	SMA             *float64 `json:"sma"`
	BelowSMA        bool     `json:"below_sma"`
}

// CorrelatedBreakdownDetail carries the cross-sectional breadth measurement
type CorrelatedBreakdownDetail struct {
	Eligible         int      `json:"eligible"`
	BelowSMA         int      `json:"below_sma"`
	Fraction         float64  `json:"fraction"`
	Threshold        float64  `json:"threshold"`
	BreakdownTickers []string `json:"breakdown_tickers"`
}

// VolatilityExpansionDetail carries volatility index level and red-day volume trend
type VolatilityExpansionDetail struct {
	VolClose         float64  `json:"vol_close"`
	VolSMA           *float64 `json:"vol_sma"`
	VolElevated      bool     `json:"vol_elevated"`
	RedDays          int      `json:"red_days"`
	RecentRedVolume  float64  `json:"recent_red_volume"`
	EarlierRedVolume float64  `json:"earlier_red_volume"`
	VolumeIncreasing bool     `json:"volume_increasing"`
}

func (RegimeTransitionDetail) Mode() FailureMode          { return ModeRegimeTransition }
func (RelativeStrengthBreakdownDetail) Mode() FailureMode { return ModeRelativeStrengthBreakdown }
func (CorrelatedBreakdownDetail) Mode() FailureMode       { return ModeCorrelatedBreakdown }
func (VolatilityExpansionDetail) Mode() FailureMode       { return ModeVolatilityExpansion }

func (RegimeTransitionDetail) failureDetail()          {}
func (RelativeStrengthBreakdownDetail) failureDetail() {}
func (CorrelatedBreakdownDetail) failureDetail()       {}
func (VolatilityExpansionDetail) failureDetail()       {}

// FailureCheck is the outcome of one failure-mode check
type FailureCheck struct {
	Mode      FailureMode   `json:"mode"`
	Severity  Severity      `json:"severity"`
	Triggered bool          `json:"triggered"`
	Action    string        `json:"action"`
	Message   string        `json:"message,omitempty"`
	Detail    FailureDetail `json:"detail"`
}

// Ticker returns the ticker a per-ticker check refers to
func (c FailureCheck) Ticker() string {
	if d, ok := c.Detail.(RelativeStrengthBreakdownDetail); ok {
		return d.Ticker
	}
	return ""
}

// Alert converts the check into a reporting alert
func (c FailureCheck) Alert() Alert {
	return Alert{
		Source:   SourceFailureMode,
		Mode:     c.Mode,
		Severity: c.Severity,
		Ticker:   c.Ticker(),
		Action:   c.Action,
		Message:  c.Message,
	}
}

// AlertSource tells where an alert came from
type AlertSource string

const (
	SourceFailureMode      AlertSource = "FAILURE_MODE"
	SourceMarketRegimeGate AlertSource = "MARKET_REGIME_GATE"
)

// Alert is the flat record surfaced to reporting and persistence
type Alert struct {
	Source   AlertSource `json:"source"`
	Mode     FailureMode `json:"mode,omitempty"`
	Severity Severity    `json:"severity"`
	Ticker   string      `json:"ticker,omitempty"`
	Action   string      `json:"action,omitempty"`
	Message  string      `json:"message"`
}

// FailureReport is the detector output for one run
type FailureReport struct {
	SystemState         SystemState   `json:"system_state"`
	AllowNewTrades      bool          `json:"allow_new_trades"`
	RegimeTransition    FailureCheck  `json:"regime_transition"`
	VolatilityExpansion FailureCheck  `json:"volatility_expansion"`
	CorrelatedBreakdown *FailureCheck `json:"correlated_breakdown,omitempty"`
	Alerts              []Alert       `json:"alerts"`
}

// Checks returns the market-wide checks in evaluation order
func (r FailureReport) Checks() []FailureCheck {
	checks := []FailureCheck{r.RegimeTransition, r.VolatilityExpansion}
	if r.CorrelatedBreakdown != nil {
		checks = append(checks, *r.CorrelatedBreakdown)
	}
	return checks
}

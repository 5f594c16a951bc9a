package contracts

import "time"

// SystemState is the global risk posture of a run
type SystemState string

const (
	StateRiskOn      SystemState = "RISK_ON"
	StateReducedRisk SystemState = "REDUCED_RISK"
	StateRiskOff     SystemState = "RISK_OFF"
	StateUnknown     SystemState = "UNKNOWN"
)

// Failure reason strings shared by the screener and reporting
const (
	ReasonNoData           = "no data available"
	ReasonSystemOverride   = "[SYSTEM] Market regime RISK-OFF (would qualify otherwise)"
	PrefixRelativeStrength = "[RS] "
	PrefixEventVolatility  = "[EV] "
)

// TickerFailure is one entry of the failed set
type TickerFailure struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ScreeningRun is the orchestrator's only output
// ⭐ SSOT: screener → reporting/persistence contract
type ScreeningRun struct {
	AsOf             time.Time          `json:"as_of"`
	TickersEvaluated []string           `json:"tickers_evaluated"`
	Verdicts         []TickerVerdict    `json:"verdicts"`
	Qualified        []string           `json:"qualified"`
	Failed           []TickerFailure    `json:"failed"`
	SystemState      SystemState        `json:"system_state"`
	AllowNewTrades   bool               `json:"allow_new_trades"`
	Alerts           []Alert            `json:"alerts"`
	MarketRegime     MarketRegimeResult `json:"market_regime"`
	FailureModes     FailureReport      `json:"failure_modes"`
}

// IsQualified reports whether ticker is in the qualified set
func (r *ScreeningRun) IsQualified(ticker string) bool {
	for _, t := range r.Qualified {
		if t == ticker {
			return true
		}
	}
	return false
}

// FailureReason returns the recorded failure reason for ticker
func (r *ScreeningRun) FailureReason(ticker string) (string, bool) {
	for _, f := range r.Failed {
		if f.Ticker == ticker {
			return f.Reason, true
		}
	}
	return "", false
}

// Verdict returns the gate diagnostics for ticker, nil when it never reached a gate
func (r *ScreeningRun) Verdict(ticker string) *TickerVerdict {
	for i := range r.Verdicts {
		if r.Verdicts[i].Ticker == ticker {
			return &r.Verdicts[i]
		}
	}
	return nil
}

// QualificationRate returns qualified / evaluated
func (r *ScreeningRun) QualificationRate() float64 {
	if len(r.TickersEvaluated) == 0 {
		return 0.0
	}
	return float64(len(r.Qualified)) / float64(len(r.TickersEvaluated))
}

// SystemStatus answers the out-of-band "current system state" query
type SystemStatus struct {
	State               SystemState          `json:"state"`
	AllowNewTrades      bool                 `json:"allow_new_trades"`
	MarketRegimeHealthy bool                 `json:"market_regime_healthy"`
	Alerts              []Alert              `json:"alerts"`
	Regime              *MarketRegimeMetrics `json:"regime,omitempty"`
	AsOf                *time.Time           `json:"as_of,omitempty"`
	Message             string               `json:"message,omitempty"`
}

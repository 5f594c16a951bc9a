package failuremode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/indicators"
)

// Actions attached to each failure mode
const (
	ActionRegimeTransition    = "DISABLE NEW ENTRIES - RISK-OFF"
	ActionCorrelatedBreakdown = "REDUCE GLOBAL RISK - INSTITUTIONAL LIQUIDATION DETECTED"
	ActionVolatilityExpansion = "WARN - THETA DECAY UNRELIABLE"
)

// Config holds failure-mode thresholds
type Config struct {
	SMAPeriod                    int     `yaml:"sma_period" json:"sma_period"`
	LowerLowLookback             int     `yaml:"lower_low_lookback" json:"lower_low_lookback"`
	VolChangePeriod              int     `yaml:"vol_change_period" json:"vol_change_period"`
	VolSpikePct                  float64 `yaml:"vol_spike_pct" json:"vol_spike_pct"`
	RSReturnPeriod               int     `yaml:"rs_return_period" json:"rs_return_period"`
	CorrelatedBreakdownThreshold float64 `yaml:"correlated_breakdown_threshold" json:"correlated_breakdown_threshold"`
	MinObservations              int     `yaml:"min_observations" json:"min_observations"`
	VolSMAPeriod                 int     `yaml:"vol_sma_period" json:"vol_sma_period"`
	RedDayWindow                 int     `yaml:"red_day_window" json:"red_day_window"`
	MinMarketBars                int     `yaml:"min_market_bars" json:"min_market_bars"`
}

// DefaultConfig returns default failure-mode thresholds
func DefaultConfig() Config {
	return Config{
		SMAPeriod:                    50,
		LowerLowLookback:             20,
		VolChangePeriod:              5,
		VolSpikePct:                  15.0,
		RSReturnPeriod:               10,
		CorrelatedBreakdownThreshold: 0.40,
		MinObservations:              50,
		VolSMAPeriod:                 20,
		RedDayWindow:                 5,
		MinMarketBars:                10,
	}
}

// Detector watches for systemic breakdowns that invalidate individual gate results
// ⭐ SSOT: system risk posture (RISK_ON / REDUCED_RISK / RISK_OFF) is derived only here
type Detector struct {
	config Config
}

// NewDetector creates a new failure-mode detector
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// CheckRegimeTransition triggers when any one regime condition breaks
func (d *Detector) CheckRegimeTransition(market, volatility *contracts.PriceSeries) contracts.FailureCheck {
	closes := market.Closes()
	detail := contracts.RegimeTransitionDetail{
		Close: market.Last().Close,
	}

	if sma, ok := indicators.LastMovingAverage(closes, d.config.SMAPeriod); ok {
		detail.SMA = contracts.Float(sma)
		detail.BelowSMA = detail.Close < sma
	}
	detail.SMASlope = indicators.MovingAverageSlope(indicators.MovingAverage(closes, d.config.SMAPeriod), 1)
	detail.SMAFalling = detail.SMASlope < 0
	detail.MadeLowerLow = indicators.HasLowerLow(market.Lows(), d.config.LowerLowLookback)
	detail.VolChange = indicators.PercentChange(volatility.Closes(), d.config.VolChangePeriod)
	detail.VolSpiking = detail.VolChange > d.config.VolSpikePct

	check := contracts.FailureCheck{
		Mode:      contracts.ModeRegimeTransition,
		Severity:  contracts.SeverityCritical,
		Triggered: detail.BelowSMA || detail.SMAFalling || detail.MadeLowerLow || detail.VolSpiking,
		Action:    ActionRegimeTransition,
		Detail:    detail,
	}

	if check.Triggered {
		mkt := symbolOf(market, "Market")
		var triggers []string
		if detail.BelowSMA {
			triggers = append(triggers, fmt.Sprintf("%s below %d-SMA (%.2f < %.2f)", mkt, d.config.SMAPeriod, detail.Close, *detail.SMA))
		}
		if detail.SMAFalling {
			triggers = append(triggers, fmt.Sprintf("%d-SMA turning down (slope: %.2f)", d.config.SMAPeriod, detail.SMASlope))
		}
		if detail.MadeLowerLow {
			triggers = append(triggers, fmt.Sprintf("%s made a lower low", mkt))
		}
		if detail.VolSpiking {
			triggers = append(triggers, fmt.Sprintf("%s spiking (%+.1f%% in %d days)",
				symbolOf(volatility, "Volatility index"), detail.VolChange, d.config.VolChangePeriod))
		}
		check.Message = "REGIME TRANSITION: " + strings.Join(triggers, "; ")
	}

	return check
}

// CheckRelativeStrengthBreakdown triggers when a ticker both lags the market
// over the short window and closes below its own SMA
func (d *Detector) CheckRelativeStrengthBreakdown(ticker string, stock, market *contracts.PriceSeries) contracts.FailureCheck {
	closes := stock.Closes()
	detail := contracts.RelativeStrengthBreakdownDetail{
		Ticker:       ticker,
		StockReturn:  indicators.PeriodReturn(closes, d.config.RSReturnPeriod),
		MarketReturn: indicators.PeriodReturn(market.Closes(), d.config.RSReturnPeriod),
		Close:        stock.Last().Close,
	}
	detail.Underperforming = detail.StockReturn < detail.MarketReturn

	if sma, ok := indicators.LastMovingAverage(closes, d.config.SMAPeriod); ok {
		detail.SMA = contracts.Float(sma)
		detail.BelowSMA = detail.Close < sma
	}

	check := contracts.FailureCheck{
		Mode:      contracts.ModeRelativeStrengthBreakdown,
		Severity:  contracts.SeverityWarning,
		Triggered: detail.Underperforming && detail.BelowSMA,
		Action:    fmt.Sprintf("REMOVE %s FROM CANDIDATES", ticker),
		Detail:    detail,
	}

	if check.Triggered {
		check.Message = fmt.Sprintf("RS BREAKDOWN: %s underperforming %s (%.1f%% vs %.1f%%) and below %d-SMA (%.2f < %.2f)",
			ticker, symbolOf(market, "market"), detail.StockReturn, detail.MarketReturn,
			d.config.SMAPeriod, detail.Close, *detail.SMA)
	}

	return check
}

// BreadthSample is one ticker's contribution to the correlated-breakdown ratio
type BreadthSample struct {
	Ticker   string
	Eligible bool
	BelowSMA bool
}

// Breadth computes a ticker's breadth sample. Tickers with fewer than
// MinObservations bars are not eligible.
func (d *Detector) Breadth(ticker string, stock *contracts.PriceSeries) BreadthSample {
	sample := BreadthSample{Ticker: ticker}
	if stock.Len() < d.config.MinObservations {
		return sample
	}
	sample.Eligible = true
	if sma, ok := indicators.LastMovingAverage(stock.Closes(), d.config.SMAPeriod); ok {
		sample.BelowSMA = stock.Last().Close < sma
	}
	return sample
}

// CorrelatedBreakdown reduces breadth samples into the cross-sectional check.
// Callers must pass every ticker's sample; this is the barrier of a run.
func (d *Detector) CorrelatedBreakdown(samples []BreadthSample) contracts.FailureCheck {
	detail := contracts.CorrelatedBreakdownDetail{
		Threshold:        d.config.CorrelatedBreakdownThreshold,
		BreakdownTickers: []string{},
	}
	for _, s := range samples {
		if !s.Eligible {
			continue
		}
		detail.Eligible++
		if s.BelowSMA {
			detail.BelowSMA++
			detail.BreakdownTickers = append(detail.BreakdownTickers, s.Ticker)
		}
	}
	sort.Strings(detail.BreakdownTickers)

	if detail.Eligible > 0 {
		detail.Fraction = float64(detail.BelowSMA) / float64(detail.Eligible)
	}

	check := contracts.FailureCheck{
		Mode:      contracts.ModeCorrelatedBreakdown,
		Severity:  contracts.SeverityHigh,
		Triggered: detail.Eligible > 0 && detail.Fraction > d.config.CorrelatedBreakdownThreshold,
		Action:    ActionCorrelatedBreakdown,
		Detail:    detail,
	}

	if check.Triggered {
		check.Message = fmt.Sprintf("CORRELATED BREAKDOWN: %d/%d stocks (%.1f%%) below %d-SMA (threshold: %.0f%%)",
			detail.BelowSMA, detail.Eligible, detail.Fraction*100, d.config.SMAPeriod,
			d.config.CorrelatedBreakdownThreshold*100)
	}

	return check
}

// CheckCorrelatedBreakdown computes breadth for every series and reduces it
func (d *Detector) CheckCorrelatedBreakdown(stocks map[string]*contracts.PriceSeries) contracts.FailureCheck {
	return d.CorrelatedBreakdown(d.breadthAll(stocks))
}

func (d *Detector) breadthAll(stocks map[string]*contracts.PriceSeries) []BreadthSample {
	if len(stocks) == 0 {
		return nil
	}
	tickers := make([]string, 0, len(stocks))
	for ticker := range stocks {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	samples := make([]BreadthSample, len(tickers))
	for i, ticker := range tickers {
		samples[i] = d.Breadth(ticker, stocks[ticker])
	}
	return samples
}

// CheckVolatilityExpansion triggers when the volatility index sits above its
// SMA while selling volume on market red days is rising
func (d *Detector) CheckVolatilityExpansion(market, volatility *contracts.PriceSeries) contracts.FailureCheck {
	detail := contracts.VolatilityExpansionDetail{
		VolClose: volatility.Last().Close,
	}

	if sma, ok := indicators.LastMovingAverage(volatility.Closes(), d.config.VolSMAPeriod); ok {
		detail.VolSMA = contracts.Float(sma)
		detail.VolElevated = detail.VolClose > sma
	}

	closes := market.Closes()
	if len(closes) >= d.config.MinMarketBars {
		volumes := market.Volumes()
		var red []float64
		for i := 1; i < len(closes); i++ {
			if closes[i] < closes[i-1] {
				red = append(red, volumes[i])
			}
		}
		if len(red) > d.config.RedDayWindow {
			red = red[len(red)-d.config.RedDayWindow:]
		}
		detail.RedDays = len(red)

		if len(red) >= 2 {
			detail.RecentRedVolume = indicators.Mean(red[len(red)-2:])
			if len(red) > 2 {
				detail.EarlierRedVolume = indicators.Mean(red[:len(red)-2])
			} else {
				detail.EarlierRedVolume = red[0]
			}
			detail.VolumeIncreasing = detail.RecentRedVolume > detail.EarlierRedVolume
		}
	}

	check := contracts.FailureCheck{
		Mode:      contracts.ModeVolatilityExpansion,
		Severity:  contracts.SeverityWarning,
		Triggered: detail.VolElevated && detail.VolumeIncreasing,
		Action:    ActionVolatilityExpansion,
		Detail:    detail,
	}

	if check.Triggered {
		check.Message = fmt.Sprintf("VOLATILITY EXPANSION: %s elevated (%.2f > %.2f) with increasing volume on %s red days",
			symbolOf(volatility, "Volatility index"), detail.VolClose, *detail.VolSMA, symbolOf(market, "market"))
	}

	return check
}

// Evaluate runs the market-wide checks and, when samples is non-nil, the
// correlated-breakdown reduction, then derives the system state.
func (d *Detector) Evaluate(market, volatility *contracts.PriceSeries, samples []BreadthSample) contracts.FailureReport {
	report := contracts.FailureReport{
		RegimeTransition:    d.CheckRegimeTransition(market, volatility),
		VolatilityExpansion: d.CheckVolatilityExpansion(market, volatility),
		Alerts:              []contracts.Alert{},
	}
	if len(samples) > 0 {
		check := d.CorrelatedBreakdown(samples)
		report.CorrelatedBreakdown = &check
	}

	switch {
	case report.RegimeTransition.Triggered:
		report.SystemState = contracts.StateRiskOff
	case report.CorrelatedBreakdown != nil && report.CorrelatedBreakdown.Triggered:
		report.SystemState = contracts.StateReducedRisk
	default:
		report.SystemState = contracts.StateRiskOn
	}
	report.AllowNewTrades = report.SystemState == contracts.StateRiskOn

	for _, check := range report.Checks() {
		if check.Triggered {
			report.Alerts = append(report.Alerts, check.Alert())
		}
	}

	return report
}

// RunAll runs every market-wide and cross-sectional check
func (d *Detector) RunAll(market, volatility *contracts.PriceSeries, stocks map[string]*contracts.PriceSeries) contracts.FailureReport {
	return d.Evaluate(market, volatility, d.breadthAll(stocks))
}

func symbolOf(s *contracts.PriceSeries, fallback string) string {
	if s == nil || s.Symbol == "" {
		return fallback
	}
	return s.Symbol
}

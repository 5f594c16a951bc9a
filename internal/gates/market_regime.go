package gates

import (
	"fmt"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/indicators"
)

// MarketRegimeGate decides whether the broad market supports premium selling
// ⭐ SSOT: market-wide pass/fail, evaluated once per run
type MarketRegimeGate struct {
	config MarketRegimeConfig
}

// NewMarketRegimeGate creates a new market regime gate
func NewMarketRegimeGate(config MarketRegimeConfig) *MarketRegimeGate {
	return &MarketRegimeGate{config: config}
}

// Evaluate runs all four regime checks. Every failing check is reported.
func (g *MarketRegimeGate) Evaluate(market, volatility *contracts.PriceSeries) contracts.MarketRegimeResult {
	closes := market.Closes()
	m := contracts.MarketRegimeMetrics{
		Close: market.Last().Close,
	}

	// 1. Close above SMA (unavailable SMA cannot confirm an uptrend)
	if sma, ok := indicators.LastMovingAverage(closes, g.config.SMAPeriod); ok {
		m.SMA = contracts.Float(sma)
		m.AboveSMA = m.Close > sma
	}

	// 2. SMA not falling
	m.SMASlope = indicators.MovingAverageSlope(indicators.MovingAverage(closes, g.config.SMAPeriod), 1)
	m.SMARising = m.SMASlope >= 0

	// 3. No lower low
	m.HasLowerLow = indicators.HasLowerLow(market.Lows(), g.config.LowerLowLookback)
	m.NoLowerLow = !m.HasLowerLow

	// 4. Volatility index not spiking
	m.VolChange = indicators.PercentChange(volatility.Closes(), g.config.VolChangePeriod)
	m.VolStable = m.VolChange <= g.config.MaxVolChangePct

	var reasons []string
	if !m.AboveSMA {
		reasons = append(reasons, belowSMAReason(symbolOf(market, "Market"), g.config.SMAPeriod, m.Close, m.SMA))
	}
	if !m.SMARising {
		reasons = append(reasons, fmt.Sprintf("%d-SMA falling (slope: %.2f)", g.config.SMAPeriod, m.SMASlope))
	}
	if m.HasLowerLow {
		reasons = append(reasons, fmt.Sprintf("Lower low detected in last %d days", g.config.LowerLowLookback))
	}
	if !m.VolStable {
		reasons = append(reasons, fmt.Sprintf("%s spiking (%+.1f%% in %d days)",
			symbolOf(volatility, "Volatility index"), m.VolChange, g.config.VolChangePeriod))
	}

	return contracts.MarketRegimeResult{
		GateVerdict: contracts.NewVerdict(contracts.GateMarketRegime, reasons),
		Metrics:     m,
	}
}

func symbolOf(s *contracts.PriceSeries, fallback string) string {
	if s == nil || s.Symbol == "" {
		return fallback
	}
	return s.Symbol
}

func belowSMAReason(subject string, period int, price float64, sma *float64) string {
	if sma == nil {
		return fmt.Sprintf("%s %d-SMA unavailable (insufficient history)", subject, period)
	}
	return fmt.Sprintf("%s below %d-SMA (%.2f <= %.2f)", subject, period, price, *sma)
}

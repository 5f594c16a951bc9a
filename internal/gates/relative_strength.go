package gates

import (
	"fmt"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/indicators"
)

// RelativeStrengthGate checks that a candidate outperforms the market and trends up
type RelativeStrengthGate struct {
	config RelativeStrengthConfig
}

// NewRelativeStrengthGate creates a new relative strength gate
func NewRelativeStrengthGate(config RelativeStrengthConfig) *RelativeStrengthGate {
	return &RelativeStrengthGate{config: config}
}

// Evaluate compares the candidate against the market.
// RelativeStrength is populated whether or not the gate passes.
func (g *RelativeStrengthGate) Evaluate(stock, market *contracts.PriceSeries) contracts.RelativeStrengthResult {
	closes := stock.Closes()
	m := contracts.RelativeStrengthMetrics{
		StockReturn:  indicators.PeriodReturn(closes, g.config.ReturnPeriod),
		MarketReturn: indicators.PeriodReturn(market.Closes(), g.config.ReturnPeriod),
		Close:        stock.Last().Close,
	}
	m.RelativeStrength = m.StockReturn - m.MarketReturn
	m.Outperforming = m.StockReturn > m.MarketReturn

	if sma, ok := indicators.LastMovingAverage(closes, g.config.SMAPeriod); ok {
		m.SMA = contracts.Float(sma)
		m.AboveSMA = m.Close > sma
	}

	m.SMASlope = indicators.MovingAverageSlope(indicators.MovingAverage(closes, g.config.SMAPeriod), 1)
	m.SMARising = m.SMASlope >= 0

	var reasons []string
	if !m.Outperforming {
		reasons = append(reasons, fmt.Sprintf("Underperforming %s (%.1f%% vs %.1f%%)",
			symbolOf(market, "market"), m.StockReturn, m.MarketReturn))
	}
	if !m.AboveSMA {
		reasons = append(reasons, belowSMAReason("Close", g.config.SMAPeriod, m.Close, m.SMA))
	}
	if !m.SMARising {
		reasons = append(reasons, fmt.Sprintf("%d-SMA falling (slope: %.2f)", g.config.SMAPeriod, m.SMASlope))
	}

	return contracts.RelativeStrengthResult{
		GateVerdict: contracts.NewVerdict(contracts.GateRelativeStrength, reasons),
		Metrics:     m,
	}
}

package gates

import (
	"fmt"
	"math"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/indicators"
)

// StructuralSafetyGate locates support levels and the highest safe short-put strike
type StructuralSafetyGate struct {
	config StructuralSafetyConfig
}

// NewStructuralSafetyGate creates a new structural safety gate
func NewStructuralSafetyGate(config StructuralSafetyConfig) *StructuralSafetyGate {
	return &StructuralSafetyGate{config: config}
}

// Evaluate computes support levels and, when strike is non-nil, validates it.
// Without a strike the gate always passes.
func (g *StructuralSafetyGate) Evaluate(stock *contracts.PriceSeries, strike *float64) contracts.StructuralSafetyResult {
	m := contracts.StructuralSafetyMetrics{
		CurrentPrice: stock.Last().Close,
		Support:      g.SupportLevels(stock),
	}

	var reasons []string
	if strike != nil {
		check := g.checkStrike(m.CurrentPrice, m.Support, *strike)
		m.Strike = &check
		reasons = g.strikeReasons(check, m.Support)
	}

	return contracts.StructuralSafetyResult{
		GateVerdict: contracts.NewVerdict(contracts.GateStructuralSafety, reasons),
		Metrics:     m,
	}
}

// SupportLevels computes moving-average, higher-low and consolidation levels
// plus the safe strike ceiling below all of them.
func (g *StructuralSafetyGate) SupportLevels(stock *contracts.PriceSeries) contracts.SupportLevels {
	var levels contracts.SupportLevels
	closes := stock.Closes()
	lows := stock.Lows()

	if sma, ok := indicators.LastMovingAverage(closes, g.config.SMAPeriod); ok {
		levels.MovingAverage = contracts.Float(sma)
	}
	if hl, ok := indicators.MostRecentHigherLow(lows, g.config.SwingLookback); ok {
		levels.HigherLow = contracts.Float(hl)
	}
	if base, ok := indicators.ConsolidationBase(lows, g.config.ConsolidationLookback,
		g.config.ConsolidationTolerance, g.config.ConsolidationMinDays); ok {
		levels.Consolidation = contracts.Float(base)
	}
	if atr, ok := indicators.LastAverageTrueRange(stock.Highs(), lows, closes, g.config.ATRPeriod); ok {
		levels.ATR = contracts.Float(atr)
		levels.MinStrikeDistance = contracts.Float(g.config.ATRMultiplier * atr)
	}

	ceiling := math.Inf(1)
	for _, level := range []*float64{levels.MovingAverage, levels.HigherLow, levels.Consolidation} {
		if level != nil {
			ceiling = math.Min(ceiling, *level)
		}
	}
	if g.config.UseATRFilter && levels.MinStrikeDistance != nil && !stock.Empty() {
		ceiling = math.Min(ceiling, stock.Last().Close-*levels.MinStrikeDistance)
	}
	if !math.IsInf(ceiling, 1) {
		levels.SafeStrikeCeiling = contracts.Float(ceiling)
	}

	return levels
}

// SuggestStrikeRange reports the safe zone for a ticker
func (g *StructuralSafetyGate) SuggestStrikeRange(stock *contracts.PriceSeries) contracts.StrikeRange {
	result := g.Evaluate(stock, nil)
	out := contracts.StrikeRange{
		Ticker:        stock.Symbol,
		CurrentPrice:  result.Metrics.CurrentPrice,
		MaxSafeStrike: result.Metrics.Support.SafeStrikeCeiling,
	}
	if out.MaxSafeStrike != nil && out.CurrentPrice > 0 {
		out.DiscountPct = contracts.Float((out.CurrentPrice - *out.MaxSafeStrike) / out.CurrentPrice * 100)
	}
	return out
}

func (g *StructuralSafetyGate) checkStrike(price float64, levels contracts.SupportLevels, strike float64) contracts.StrikeCheck {
	check := contracts.StrikeCheck{
		Strike:             strike,
		BelowHigherLow:     true,
		BelowConsolidation: true,
		StrikeDistance:     price - strike,
		SufficientDistance: true,
	}

	if levels.MovingAverage != nil {
		check.BelowSMA = strike < *levels.MovingAverage
	}
	if levels.HigherLow != nil {
		check.BelowHigherLow = strike < *levels.HigherLow
	}
	if levels.Consolidation != nil {
		check.BelowConsolidation = strike < *levels.Consolidation
	}
	if g.config.UseATRFilter && levels.MinStrikeDistance != nil {
		check.SufficientDistance = check.StrikeDistance >= *levels.MinStrikeDistance
	}

	return check
}

func (g *StructuralSafetyGate) strikeReasons(check contracts.StrikeCheck, levels contracts.SupportLevels) []string {
	var reasons []string
	if !check.BelowSMA {
		if levels.MovingAverage == nil {
			reasons = append(reasons, fmt.Sprintf("%d-SMA unavailable (insufficient history)", g.config.SMAPeriod))
		} else {
			reasons = append(reasons, fmt.Sprintf("Strike above %d-SMA (%.2f >= %.2f)",
				g.config.SMAPeriod, check.Strike, *levels.MovingAverage))
		}
	}
	if !check.BelowHigherLow {
		reasons = append(reasons, fmt.Sprintf("Strike above higher low (%.2f >= %.2f)", check.Strike, *levels.HigherLow))
	}
	if !check.BelowConsolidation {
		reasons = append(reasons, fmt.Sprintf("Strike above consolidation (%.2f >= %.2f)", check.Strike, *levels.Consolidation))
	}
	if !check.SufficientDistance {
		reasons = append(reasons, fmt.Sprintf("Insufficient distance (%.2f < %.2f)", check.StrikeDistance, *levels.MinStrikeDistance))
	}
	return reasons
}

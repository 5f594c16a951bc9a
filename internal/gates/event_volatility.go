package gates

import (
	"fmt"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/indicators"
)

// EventInputs are the optional per-ticker inputs of the event gate.
// A nil/empty field skips the check that depends on it.
type EventInputs struct {
	IVRank       *float64
	IVSeries     []float64
	EarningsDate *time.Time
	AsOf         *time.Time // defaults to the series' last date
}

// EventVolatilityGate checks earnings proximity, IV regime and down-day volume
type EventVolatilityGate struct {
	config EventVolatilityConfig
}

// NewEventVolatilityGate creates a new event & volatility gate
func NewEventVolatilityGate(config EventVolatilityConfig) *EventVolatilityGate {
	return &EventVolatilityGate{config: config}
}

// Evaluate runs all event and volatility checks
func (g *EventVolatilityGate) Evaluate(stock *contracts.PriceSeries, in EventInputs) contracts.EventVolatilityResult {
	m := contracts.EventVolatilityMetrics{
		AsOf:               stock.LastDate(),
		NoEarningsConflict: true,
		IVRankInRange:      true,
		IVStable:           true,
		VolumeOK:           true,
	}
	if in.AsOf != nil {
		m.AsOf = *in.AsOf
	}

	// 1. Earnings outside the trade window
	if in.EarningsDate != nil {
		days := DaysBetween(m.AsOf, *in.EarningsDate)
		m.EarningsChecked = true
		m.EarningsDate = in.EarningsDate
		m.DaysToEarnings = &days
		m.NoEarningsConflict = days > g.config.TradeDurationDays || days < 0
	}

	// 2. IV rank inside the band
	if in.IVRank != nil {
		m.IVRankChecked = true
		m.IVRank = in.IVRank
		m.IVRankInRange = *in.IVRank >= g.config.MinIVRank && *in.IVRank <= g.config.MaxIVRank
	}

	// 3. IV not expanding
	if len(in.IVSeries) >= g.config.IVChangePeriod+1 {
		m.IVChangeChecked = true
		m.IVChange = indicators.PercentChange(in.IVSeries, g.config.IVChangePeriod)
		m.IVStable = m.IVChange <= g.config.MaxIVChangePct
	}

	// 4. No heavy selling on a down day
	closes := stock.Closes()
	volumes := stock.Volumes()
	n := len(closes)
	if n >= 2 {
		m.DownDay = closes[n-1] < closes[n-2]
		m.VolumeToday = volumes[n-1]
	}
	if m.DownDay && n >= g.config.VolumeAvgPeriod+1 {
		avg := indicators.Mean(volumes[n-1-g.config.VolumeAvgPeriod : n-1])
		m.VolumeChecked = true
		m.AvgVolume = &avg
		m.VolumeOK = m.VolumeToday <= avg
	}

	var reasons []string
	if !m.NoEarningsConflict {
		reasons = append(reasons, fmt.Sprintf("Earnings in %d days (inside %d-day window)",
			*m.DaysToEarnings, g.config.TradeDurationDays))
	}
	if !m.IVRankInRange {
		if *m.IVRank < g.config.MinIVRank {
			reasons = append(reasons, fmt.Sprintf("IV Rank too low (%.1f < %.0f)", *m.IVRank, g.config.MinIVRank))
		} else {
			reasons = append(reasons, fmt.Sprintf("IV Rank too high (%.1f > %.0f)", *m.IVRank, g.config.MaxIVRank))
		}
	}
	if !m.IVStable {
		reasons = append(reasons, fmt.Sprintf("IV expanding (%+.1f%% in %d days)", m.IVChange, g.config.IVChangePeriod))
	}
	if !m.VolumeOK {
		reasons = append(reasons, fmt.Sprintf("High volume on down day (%.0f vs %.0f avg)", m.VolumeToday, *m.AvgVolume))
	}

	return contracts.EventVolatilityResult{
		GateVerdict: contracts.NewVerdict(contracts.GateEventVolatility, reasons),
		Metrics:     m,
	}
}

// DaysBetween returns whole calendar days from one date to another, ignoring time of day
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

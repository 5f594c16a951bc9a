package screener

import (
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/failuremode"
	"github.com/wonny/creditgate/internal/gates"
)

// Config bundles every gate and detector threshold used by a run
type Config struct {
	MarketRegime     gates.MarketRegimeConfig
	RelativeStrength gates.RelativeStrengthConfig
	StructuralSafety gates.StructuralSafetyConfig
	EventVolatility  gates.EventVolatilityConfig
	FailureModes     failuremode.Config

	// Workers bounds per-ticker parallelism (<= 1 runs sequentially)
	Workers int
}

// DefaultConfig returns the default screening thresholds
func DefaultConfig() Config {
	return Config{
		MarketRegime:     gates.DefaultMarketRegimeConfig(),
		RelativeStrength: gates.DefaultRelativeStrengthConfig(),
		StructuralSafety: gates.DefaultStructuralSafetyConfig(),
		EventVolatility:  gates.DefaultEventVolatilityConfig(),
		FailureModes:     failuremode.DefaultConfig(),
		Workers:          1,
	}
}

// Input is one end-of-day snapshot to screen.
// Only Tickers, Stocks, Market and Volatility are required.
type Input struct {
	Tickers    []string
	Stocks     map[string]*contracts.PriceSeries
	Market     *contracts.PriceSeries
	Volatility *contracts.PriceSeries

	IVRanks  map[string]float64
	IVSeries map[string][]float64
	Earnings map[string]time.Time

	// AsOf defaults to the market series' last date
	AsOf *time.Time
}

func (in Input) stock(ticker string) (*contracts.PriceSeries, bool) {
	s, ok := in.Stocks[ticker]
	if !ok || s.Empty() {
		return nil, false
	}
	return s, true
}

func (in Input) eventInputs(ticker string) gates.EventInputs {
	ev := gates.EventInputs{AsOf: in.AsOf}
	if rank, ok := in.IVRanks[ticker]; ok {
		ev.IVRank = contracts.Float(rank)
	}
	if series, ok := in.IVSeries[ticker]; ok {
		ev.IVSeries = series
	}
	if date, ok := in.Earnings[ticker]; ok {
		d := date
		ev.EarningsDate = &d
	}
	return ev
}

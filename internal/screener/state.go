package screener

import (
	"sync"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
)

const messageNoMarketData = "no market data loaded yet"

// MarketContext is the market snapshot a run was screened against.
// The zero value is the unknown state.
type MarketContext struct {
	Market     *contracts.PriceSeries
	Volatility *contracts.PriceSeries
}

// Known reports whether both snapshots are loaded
func (c MarketContext) Known() bool {
	return !c.Market.Empty() && !c.Volatility.Empty()
}

// SystemStatus re-derives the current risk posture from a market snapshot
// without screening any tickers
func (s *Screener) SystemStatus(mc MarketContext) contracts.SystemStatus {
	if !mc.Known() {
		return contracts.SystemStatus{
			State:   contracts.StateUnknown,
			Alerts:  []contracts.Alert{},
			Message: messageNoMarketData,
		}
	}

	report := s.detector.Evaluate(mc.Market, mc.Volatility, nil)
	regime := s.regime.Evaluate(mc.Market, mc.Volatility)
	asOf := mc.Market.LastDate()

	status := contracts.SystemStatus{
		State:               report.SystemState,
		AllowNewTrades:      report.AllowNewTrades && regime.Passed,
		MarketRegimeHealthy: regime.Passed,
		Alerts:              report.Alerts,
		Regime:              &regime.Metrics,
		AsOf:                &asOf,
	}
	if !regime.Passed {
		status.Message = regime.Reason()
	}
	return status
}

// Tracker holds the most recent market context for out-of-band status queries.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	ctx       MarketContext
	updatedAt time.Time
}

// NewTracker creates an empty tracker in the unknown state
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set overwrites the cached context
func (t *Tracker) Set(mc MarketContext, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx = mc
	t.updatedAt = at
}

// Get returns the cached context and when it was stored
func (t *Tracker) Get() (MarketContext, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctx, t.updatedAt
}

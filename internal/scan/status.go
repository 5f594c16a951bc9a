package scan

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/screener"
	"github.com/wonny/creditgate/internal/strikes"
)

// Status answers the current system state. It uses the market context of
// the last scan when there is one, and fetches fresh market data otherwise.
func (s *Service) Status(ctx context.Context, refresh bool) (contracts.SystemStatus, error) {
	if s.deps.Tracker != nil && !refresh {
		if mc, _ := s.deps.Tracker.Get(); mc.Known() {
			return s.deps.Screener.SystemStatus(mc), nil
		}
	}

	mc, err := s.fetchMarketContext(ctx)
	if err != nil {
		return contracts.SystemStatus{}, err
	}
	if s.deps.Tracker != nil && mc.Known() {
		s.deps.Tracker.Set(mc, s.now().UTC())
	}

	status := s.deps.Screener.SystemStatus(mc)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordState(status.State)
	}
	return status, nil
}

func (s *Service) fetchMarketContext(ctx context.Context) (screener.MarketContext, error) {
	from, to := s.window(s.now().UTC())

	market, err := s.deps.Provider.GetSeries(ctx, s.settings.MarketSymbol, from, to)
	if err != nil {
		return screener.MarketContext{}, fmt.Errorf("fetch %s: %w", s.settings.MarketSymbol, err)
	}
	vol, err := s.deps.Provider.GetSeries(ctx, s.settings.VolatilitySymbol, from, to)
	if err != nil {
		return screener.MarketContext{}, fmt.Errorf("fetch %s: %w", s.settings.VolatilitySymbol, err)
	}

	return screener.MarketContext{
		Market:     market.Tail(s.settings.LookbackDays),
		Volatility: vol.Tail(s.settings.LookbackDays),
	}, nil
}

// Strikes suggests the safe short-put strike zone for ticker. With a
// positive strike it also checks that strike against the support levels.
func (s *Service) Strikes(ctx context.Context, ticker string, strike float64) (contracts.StrikeRange, *contracts.StructuralSafetyResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if math.IsNaN(strike) || math.IsInf(strike, 0) {
		return contracts.StrikeRange{Ticker: ticker}, nil, fmt.Errorf("%s strike %v: %w", ticker, strike, ErrInvalidStrike)
	}
	from, to := s.window(s.now().UTC())

	series, err := s.deps.Provider.GetSeries(ctx, ticker, from, to)
	if err != nil {
		return contracts.StrikeRange{}, nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if series.Empty() {
		return contracts.StrikeRange{Ticker: ticker}, nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	series = series.Tail(s.settings.LookbackDays)

	rng := s.deps.Screener.StrikeRange(series)
	rng.Ticker = ticker

	if strike <= 0 {
		return rng, nil, nil
	}
	check := s.deps.Screener.CheckStrike(series, strike)
	return rng, &check, nil
}

// Spreads ranks put credit spreads for ticker with the short strike at or
// below the structural safety ceiling. Zero top or width uses the
// selector's configured value.
func (s *Service) Spreads(ctx context.Context, ticker string, top int, width float64) (*strikes.Suggestion, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if s.deps.Spreads == nil {
		return nil, ErrSpreadsUnavailable
	}
	from, to := s.window(s.now().UTC())

	series, err := s.deps.Provider.GetSeries(ctx, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if series.Empty() {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	series = series.Tail(s.settings.LookbackDays)

	levels := s.deps.Screener.SupportLevels(series)
	if levels.SafeStrikeCeiling == nil {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoSafeStrike)
	}

	return s.deps.Spreads.Suggest(ctx, strikes.Request{
		Ticker:        ticker,
		CurrentPrice:  series.Last().Close,
		MaxSafeStrike: *levels.SafeStrikeCeiling,
		SupportLevel:  supportLevel(levels),
		TopN:          top,
		Width:         width,
	})
}

// supportLevel is the key level spreads are measured against: the moving
// average, else the higher low, else the ceiling itself
func supportLevel(levels contracts.SupportLevels) float64 {
	switch {
	case levels.MovingAverage != nil:
		return *levels.MovingAverage
	case levels.HigherLow != nil:
		return *levels.HigherLow
	default:
		return *levels.SafeStrikeCeiling
	}
}

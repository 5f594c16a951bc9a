package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/pkg/httputil"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/redis"
)

// Store is a persistent bar store that can also serve series
type Store interface {
	contracts.MarketDataProvider
	SaveSeries(ctx context.Context, series *contracts.PriceSeries) error
}

// Provider serves series from the cache, then the upstream API, then the
// store. Upstream results are written through to the store and the cache.
// ⭐ SSOT: the market data provider chain used by scans
type Provider struct {
	upstream contracts.MarketDataProvider // nil when no API is configured
	store    Store                        // nil when no database is configured
	cache    *redis.Cache
	logger   *logger.Logger
	now      func() time.Time
}

var _ contracts.MarketDataProvider = (*Provider)(nil)

// NewProvider creates the provider chain. Either upstream or store may be nil,
// not both.
func NewProvider(upstream contracts.MarketDataProvider, store Store, cache *redis.Cache, log *logger.Logger) *Provider {
	return &Provider{
		upstream: upstream,
		store:    store,
		cache:    cache,
		logger:   log.WithField("module", "marketdata"),
		now:      time.Now,
	}
}

// GetSeries implements contracts.MarketDataProvider
func (p *Provider) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	key := redis.SeriesKey(symbol, from, to)

	var cached contracts.PriceSeries
	if found, err := p.cache.Get(ctx, key, &cached); err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Series cache read failed")
	} else if found {
		return &cached, nil
	}

	series, err := p.fetch(ctx, symbol, from, to)
	if err != nil || series.Empty() {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, series, p.ttl(to)); err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Series cache write failed")
	}
	return series, nil
}

func (p *Provider) fetch(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	if p.upstream == nil {
		if p.store == nil {
			return nil, fmt.Errorf("no market data source configured")
		}
		return p.store.GetSeries(ctx, symbol, from, to)
	}

	series, err := p.upstream.GetSeries(ctx, symbol, from, to)
	if err != nil {
		if p.store == nil {
			return nil, err
		}
		log := p.logger.WithError(err).WithField("symbol", symbol)
		if httputil.IsCircuitOpen(err) {
			log.Debug("Upstream circuit open, reading stored bars")
		} else {
			log.Warn("Upstream fetch failed, reading stored bars")
		}
		return p.store.GetSeries(ctx, symbol, from, to)
	}

	if p.store != nil && !series.Empty() {
		if err := p.store.SaveSeries(ctx, series); err != nil {
			p.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to store bars")
		}
	}
	return series, nil
}

// ttl keeps closed history for a day and ranges touching today for an hour
func (p *Provider) ttl(to time.Time) time.Duration {
	y, m, d := p.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if to.Before(today) {
		return redis.TTLDaily
	}
	return redis.TTLLong
}

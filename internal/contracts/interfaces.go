package contracts

import (
	"context"
	"time"
)

// MarketDataProvider supplies daily bars for a symbol
// ⭐ SSOT: market data provider contract
//
// A symbol with no data returns (nil, nil); errors are reserved for transport
// or storage failures.
type MarketDataProvider interface {
	GetSeries(ctx context.Context, symbol string, from, to time.Time) (*PriceSeries, error)
}

// OptionsDataProvider supplies implied-volatility and event data per symbol
// ⭐ SSOT: options data provider contract
//
// A nil value with a nil error means the data is absent, which is a valid result.
type OptionsDataProvider interface {
	GetIVRank(ctx context.Context, symbol string) (*float64, error)
	GetEarningsDate(ctx context.Context, symbol string) (*time.Time, error)
	GetCurrentIV(ctx context.Context, symbol string) (*float64, error)
	IsAvailable(ctx context.Context) bool
}

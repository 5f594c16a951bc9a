package options

import (
	"context"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/pkg/redis"
)

// Cached memoizes another provider's answers in Redis for a day's snapshot.
// Absent values are cached too.
type Cached struct {
	inner contracts.OptionsDataProvider
	cache *redis.Cache
	ttl   time.Duration
	now   func() time.Time
}

var _ contracts.OptionsDataProvider = (*Cached)(nil)

// NewCached wraps inner with a Redis cache
func NewCached(inner contracts.OptionsDataProvider, cache *redis.Cache) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: redis.TTLMedium, now: time.Now}
}

type cachedFloat struct {
	Value *float64 `json:"value"`
}

type cachedTime struct {
	Value *time.Time `json:"value"`
}

func (c *Cached) GetIVRank(ctx context.Context, symbol string) (*float64, error) {
	return c.float(ctx, symbol, "iv_rank", c.inner.GetIVRank)
}

func (c *Cached) GetCurrentIV(ctx context.Context, symbol string) (*float64, error) {
	return c.float(ctx, symbol, "current_iv", c.inner.GetCurrentIV)
}

func (c *Cached) GetEarningsDate(ctx context.Context, symbol string) (*time.Time, error) {
	var out cachedTime
	err := c.cache.GetOrSet(ctx, redis.OptionsKey(symbol, "earnings", c.now()), &out, c.ttl, func() (interface{}, error) {
		v, err := c.inner.GetEarningsDate(ctx, symbol)
		return cachedTime{Value: v}, err
	})
	return out.Value, err
}

func (c *Cached) IsAvailable(ctx context.Context) bool {
	return c.inner.IsAvailable(ctx)
}

func (c *Cached) float(ctx context.Context, symbol, field string, fetch func(context.Context, string) (*float64, error)) (*float64, error) {
	var out cachedFloat
	err := c.cache.GetOrSet(ctx, redis.OptionsKey(symbol, field, c.now()), &out, c.ttl, func() (interface{}, error) {
		v, err := fetch(ctx, symbol)
		return cachedFloat{Value: v}, err
	})
	return out.Value, err
}

package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/redis"
)

var (
	from = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
)

func series(symbol string, closes ...float64) *contracts.PriceSeries {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Date:  from.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return contracts.NewPriceSeries(symbol, bars)
}

// fakeSource is an in-memory provider and store
type fakeSource struct {
	mu     sync.Mutex
	data   map[string]*contracts.PriceSeries
	errs   map[string]error
	calls  map[string]int
	stored map[string]*contracts.PriceSeries
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		data:   map[string]*contracts.PriceSeries{},
		errs:   map[string]error{},
		calls:  map[string]int{},
		stored: map[string]*contracts.PriceSeries{},
	}
}

func (f *fakeSource) GetSeries(_ context.Context, symbol string, _, _ time.Time) (*contracts.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.data[symbol], nil
}

func (f *fakeSource) SaveSeries(_ context.Context, s *contracts.PriceSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[s.Symbol] = s
	return nil
}

func newProvider(upstream contracts.MarketDataProvider, store Store) *Provider {
	return NewProvider(upstream, store, redis.NewCache(redis.Disabled(), "test"), logger.Nop())
}

func TestProvider_WritesThroughToStore(t *testing.T) {
	upstream := newFakeSource()
	upstream.data["SPY"] = series("SPY", 500, 501, 502)
	store := newFakeSource()

	p := newProvider(upstream, store)

	got, err := p.GetSeries(context.Background(), "spy", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, 1, upstream.calls["SPY"], "symbol is upper-cased")
	assert.Same(t, upstream.data["SPY"], store.stored["SPY"])
}

func TestProvider_FallsBackToStoreOnUpstreamError(t *testing.T) {
	upstream := newFakeSource()
	upstream.errs["AAPL"] = errors.New("503 from upstream")
	store := newFakeSource()
	store.data["AAPL"] = series("AAPL", 190, 191)

	p := newProvider(upstream, store)

	got, err := p.GetSeries(context.Background(), "AAPL", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestProvider_FallsBackWhenCircuitOpen(t *testing.T) {
	upstream := newFakeSource()
	upstream.errs["AAPL"] = fmt.Errorf("tradier history: %w", gobreaker.ErrOpenState)
	store := newFakeSource()
	store.data["AAPL"] = series("AAPL", 190, 191, 192)

	got, err := newProvider(upstream, store).GetSeries(context.Background(), "AAPL", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	assert.Empty(t, store.stored, "stored bars are not written back")
}

func TestProvider_UpstreamErrorWithoutStore(t *testing.T) {
	upstream := newFakeSource()
	upstream.errs["AAPL"] = errors.New("timeout")

	_, err := newProvider(upstream, nil).GetSeries(context.Background(), "AAPL", from, to)
	assert.Error(t, err)
}

func TestProvider_StoreOnly(t *testing.T) {
	store := newFakeSource()
	store.data["MSFT"] = series("MSFT", 400)

	got, err := newProvider(nil, store).GetSeries(context.Background(), "MSFT", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	missing, err := newProvider(nil, store).GetSeries(context.Background(), "NOPE", from, to)
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown symbol is (nil, nil)")

	_, err = newProvider(nil, nil).GetSeries(context.Background(), "MSFT", from, to)
	assert.Error(t, err)
}

func TestProvider_TTL(t *testing.T) {
	p := newProvider(newFakeSource(), nil)
	p.now = func() time.Time { return time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC) }

	assert.Equal(t, redis.TTLDaily, p.ttl(time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, redis.TTLLong, p.ttl(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
}

func TestCollector(t *testing.T) {
	src := newFakeSource()
	src.data["SPY"] = series("SPY", 500, 501)
	src.data["AAPL"] = series("AAPL", 190)
	src.data["EMPTY"] = contracts.NewPriceSeries("EMPTY", nil)
	src.errs["BAD"] = errors.New("boom")

	c := NewCollector(src, logger.Nop())
	snap := c.Collect(context.Background(), []string{"spy", "AAPL", "BAD", "EMPTY", "GONE", "aapl", " "}, from, to, Config{Workers: 3})

	require.Len(t, snap.Results, 5, "deduped and blanks dropped")
	assert.Equal(t, []string{"AAPL", "BAD", "EMPTY", "GONE", "SPY"}, []string{
		snap.Results[0].Symbol, snap.Results[1].Symbol, snap.Results[2].Symbol,
		snap.Results[3].Symbol, snap.Results[4].Symbol,
	})

	assert.Len(t, snap.Series, 2)
	assert.Contains(t, snap.Series, "SPY")
	assert.Contains(t, snap.Series, "AAPL")
	assert.Equal(t, []string{"BAD"}, snap.Failed())
	assert.Equal(t, 1, src.calls["AAPL"])
}

func TestCollector_CancelledContext(t *testing.T) {
	src := newFakeSource()
	src.data["SPY"] = series("SPY", 500)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := NewCollector(src, logger.Nop()).Collect(ctx, []string{"SPY", "QQQ"}, from, to, Config{Workers: 0})
	assert.Empty(t, snap.Series)
	assert.ElementsMatch(t, []string{"QQQ", "SPY"}, snap.Failed())
	assert.Zero(t, src.calls["SPY"])
}

func TestRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool := testPool(t)

	repo := NewRepository(pool, "test")
	ctx := context.Background()
	sym := "ZZTEST"
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM screener.daily_bars WHERE symbol = $1`, sym)
	})

	require.NoError(t, repo.SaveSeries(ctx, series(sym, 10, 11, 12)))
	// upsert overwrites
	require.NoError(t, repo.SaveSeries(ctx, series(sym, 10, 11, 13)))

	got, err := repo.GetSeries(ctx, sym, from, to)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, 13.0, got.Last().Close)

	latest, err := repo.LatestDate(ctx, sym)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.UTC().Equal(from.AddDate(0, 0, 2)))
}

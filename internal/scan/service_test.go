package scan

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/marketdata"
	"github.com/wonny/creditgate/internal/options"
	"github.com/wonny/creditgate/internal/screener"
	"github.com/wonny/creditgate/internal/strikes"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/metrics"
)

var baseDate = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(symbol string, closes []float64) *contracts.PriceSeries {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Date:   baseDate.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return contracts.NewPriceSeries(symbol, bars)
}

func linearCloses(n int, last, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = last - step*float64(n-1-i)
	}
	return out
}

func flatCloses(n int, level float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	return out
}

type fakeProvider struct {
	data map[string]*contracts.PriceSeries
	err  map[string]error
}

func (f *fakeProvider) GetSeries(_ context.Context, symbol string, _, _ time.Time) (*contracts.PriceSeries, error) {
	if err := f.err[symbol]; err != nil {
		return nil, err
	}
	return f.data[symbol], nil
}

type fakeStore struct {
	mu     sync.Mutex
	saved  []uuid.UUID
	hashes []string
	err    error
}

func (f *fakeStore) SaveRun(_ context.Context, id uuid.UUID, _ time.Time, hash string, _ *contracts.ScreeningRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, id)
	f.hashes = append(f.hashes, hash)
	return nil
}

type fakeSnapshots struct {
	saved    []options.Snapshot
	ivSeries map[string][]float64
}

func (f *fakeSnapshots) SaveSnapshots(_ context.Context, snaps []options.Snapshot) error {
	f.saved = append(f.saved, snaps...)
	return nil
}

func (f *fakeSnapshots) GetIVSeries(context.Context, []string, time.Time, time.Time) (map[string][]float64, error) {
	return f.ivSeries, nil
}

type fakeSelector struct {
	last *strikes.Request
	err  error
}

func (f *fakeSelector) Suggest(_ context.Context, req strikes.Request) (*strikes.Suggestion, error) {
	f.last = &req
	if f.err != nil {
		return nil, f.err
	}
	return &strikes.Suggestion{Ticker: req.Ticker, MaxSafeStrike: req.MaxSafeStrike, Spreads: []strikes.Spread{}}, nil
}

type fakePublisher struct {
	events []Event
}

func (f *fakePublisher) Publish(e Event) {
	f.events = append(f.events, e)
}

type fixture struct {
	svc       *Service
	provider  *fakeProvider
	store     *fakeStore
	snapshots *fakeSnapshots
	publisher *fakePublisher
	tracker   *screener.Tracker
}

func newFixture() *fixture {
	log := logger.Nop()
	provider := &fakeProvider{
		data: map[string]*contracts.PriceSeries{
			"SPY": seriesFromCloses("SPY", linearCloses(60, 500, 1)),
			"VIX": seriesFromCloses("VIX", flatCloses(60, 15)),
			"AAA": seriesFromCloses("AAA", linearCloses(60, 100, 0.5)),
			"BBB": seriesFromCloses("BBB", linearCloses(60, 100, 0.01)),
			"CCC": seriesFromCloses("CCC", linearCloses(60, 100, 0.5)),
		},
		err: map[string]error{"ERR": errors.New("upstream 502")},
	}

	static := options.NewStatic()
	static.IVRanks["AAA"] = 35
	static.Earnings["CCC"] = baseDate.AddDate(0, 0, 59+30)

	f := &fixture{
		provider:  provider,
		store:     &fakeStore{},
		snapshots: &fakeSnapshots{},
		publisher: &fakePublisher{},
		tracker:   screener.NewTracker(),
	}

	cfg := screener.DefaultConfig()
	f.svc = NewService(Settings{
		Tickers:          []string{"AAA", "BBB", "CCC", "ZZZ"},
		MarketSymbol:     "SPY",
		VolatilitySymbol: "VIX",
		LookbackDays:     60,
		Workers:          2,
		ConfigHash:       "cfg-hash",
	}, Dependencies{
		Market:    marketdata.NewCollector(provider, log),
		Provider:  provider,
		Options:   options.NewCollector(static, log),
		Snapshots: f.snapshots,
		Screener:  screener.New(cfg, log),
		Tracker:   f.tracker,
		Store:     f.store,
		Metrics:   metrics.New(),
		Publisher: f.publisher,
	}, log)
	return f
}

func TestRun_SavesAndPublishes(t *testing.T) {
	f := newFixture()
	date := baseDate.AddDate(0, 0, 59)
	f.svc.now = func() time.Time { return date.Add(21 * time.Hour) }

	res, err := f.svc.Run(context.Background(), Request{Date: &date, Save: true})
	require.NoError(t, err)

	run := res.Run
	assert.Equal(t, contracts.StateRiskOn, run.SystemState)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "ZZZ"}, run.TickersEvaluated)
	assert.Equal(t, []string{"AAA"}, run.Qualified)
	reason, _ := run.FailureReason("CCC")
	assert.Contains(t, reason, contracts.PrefixEventVolatility)
	reason, _ = run.FailureReason("ZZZ")
	assert.Equal(t, contracts.ReasonNoData, reason)

	assert.True(t, res.Saved)
	assert.Equal(t, date, res.Date)
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, res.ScanID, f.store.saved[0])
	assert.Equal(t, "cfg-hash", f.store.hashes[0])

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, res.ScanID, f.publisher.events[0].ScanID)
	assert.True(t, f.publisher.events[0].Saved)

	assert.Len(t, f.snapshots.saved, 4, "one options snapshot per ticker")

	mc, at := f.tracker.Get()
	assert.True(t, mc.Known())
	assert.Equal(t, date, at)
}

func TestRun_HistoricalDateSkipsLiveOptions(t *testing.T) {
	f := newFixture()
	date := baseDate.AddDate(0, 0, 59)
	f.svc.now = func() time.Time { return date.AddDate(0, 0, 30) }
	f.snapshots.ivSeries = map[string][]float64{"AAA": {20, 20, 20, 20, 20, 30}}

	res, err := f.svc.Run(context.Background(), Request{Date: &date, Save: true})
	require.NoError(t, err)

	run := res.Run
	assert.Equal(t, date, run.AsOf)
	assert.Empty(t, f.snapshots.saved, "today's quotes are not stored under a past date")

	// CCC's earnings come from the live calendar, so they are not applied
	assert.Equal(t, []string{"CCC"}, run.Qualified)
	ccc := run.Verdict("CCC")
	require.NotNil(t, ccc)
	assert.False(t, ccc.EventVolatility.Metrics.EarningsChecked)
	assert.False(t, ccc.EventVolatility.Metrics.IVRankChecked)

	// stored IV history still applies
	reason, failed := run.FailureReason("AAA")
	require.True(t, failed)
	assert.Contains(t, reason, "IV expanding")

	mc, _ := f.tracker.Get()
	assert.False(t, mc.Known(), "a past scan does not replace the live market context")
}

func TestRun_RequestTickersOverrideDefaults(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Run(context.Background(), Request{Tickers: []string{" aaa ", "err"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "ERR"}, res.Run.TickersEvaluated)
	assert.Equal(t, []string{"ERR"}, res.FetchFailures)
	reason, _ := res.Run.FailureReason("ERR")
	assert.Equal(t, contracts.ReasonNoData, reason, "fetch error downgrades to no data")
	assert.False(t, res.Saved)
	assert.Empty(t, f.store.saved)
}

func TestRun_MissingMarketData(t *testing.T) {
	f := newFixture()
	delete(f.provider.data, "VIX")

	_, err := f.svc.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingMarketData)
	assert.Empty(t, f.publisher.events)
}

func TestRun_SaveFailure(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("connection refused")

	_, err := f.svc.Run(context.Background(), Request{Save: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save run")
	assert.Empty(t, f.publisher.events)
}

func TestStatus(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time { return baseDate.AddDate(0, 0, 59) }

	status, err := f.svc.Status(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, contracts.StateRiskOn, status.State)
	assert.True(t, status.AllowNewTrades)

	// later calls use the tracked context
	delete(f.provider.data, "SPY")
	status, err = f.svc.Status(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, contracts.StateRiskOn, status.State)

	status, err = f.svc.Status(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, contracts.StateUnknown, status.State)
}

func TestStrikes(t *testing.T) {
	f := newFixture()

	rng, check, err := f.svc.Strikes(context.Background(), "aaa", 0)
	require.NoError(t, err)
	assert.Equal(t, "AAA", rng.Ticker)
	assert.Equal(t, 100.0, rng.CurrentPrice)
	require.NotNil(t, rng.MaxSafeStrike)
	assert.Less(t, *rng.MaxSafeStrike, 100.0)
	assert.Nil(t, check)

	_, check, err = f.svc.Strikes(context.Background(), "AAA", 80)
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.Equal(t, 80.0, check.Metrics.Strike.Strike)

	_, _, err = f.svc.Strikes(context.Background(), "ZZZ", 0)
	assert.ErrorIs(t, err, ErrNoData)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, check, err = f.svc.Strikes(context.Background(), "AAA", bad)
		assert.ErrorIs(t, err, ErrInvalidStrike)
		assert.Nil(t, check)
	}
}

func TestSpreads(t *testing.T) {
	f := newFixture()
	sel := &fakeSelector{}
	f.svc.deps.Spreads = sel

	rng, _, err := f.svc.Strikes(context.Background(), "AAA", 0)
	require.NoError(t, err)

	got, err := f.svc.Spreads(context.Background(), " aaa", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, "AAA", got.Ticker)

	require.NotNil(t, sel.last)
	req := sel.last
	assert.Equal(t, "AAA", req.Ticker)
	assert.Equal(t, 100.0, req.CurrentPrice)
	assert.Equal(t, *rng.MaxSafeStrike, req.MaxSafeStrike)
	assert.GreaterOrEqual(t, req.SupportLevel, req.MaxSafeStrike)
	assert.Equal(t, 3, req.TopN)
	assert.Equal(t, 10.0, req.Width)
}

func TestSpreads_Errors(t *testing.T) {
	upstream := errors.New("tradier: 502")

	tests := []struct {
		name     string
		ticker   string
		selector SpreadSelector
		wantErr  error
	}{
		{"no chain source", "AAA", nil, ErrSpreadsUnavailable},
		{"no history", "ZZZ", &fakeSelector{}, ErrNoData},
		{"too little history for a ceiling", "NEW", &fakeSelector{}, ErrNoSafeStrike},
		{"selector error passes through", "AAA", &fakeSelector{err: upstream}, upstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.provider.data["NEW"] = seriesFromCloses("NEW", flatCloses(3, 50))
			f.svc.deps.Spreads = tt.selector

			_, err := f.svc.Spreads(context.Background(), tt.ticker, 0, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSupportLevel(t *testing.T) {
	sma, hl, ceiling := 100.0, 95.0, 90.0

	tests := []struct {
		name   string
		levels contracts.SupportLevels
		want   float64
	}{
		{"moving average first", contracts.SupportLevels{MovingAverage: &sma, HigherLow: &hl, SafeStrikeCeiling: &ceiling}, 100},
		{"higher low without SMA", contracts.SupportLevels{HigherLow: &hl, SafeStrikeCeiling: &ceiling}, 95},
		{"ceiling as last resort", contracts.SupportLevels{SafeStrikeCeiling: &ceiling}, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, supportLevel(tt.levels))
		})
	}
}

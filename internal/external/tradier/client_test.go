package tradier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/httputil"
	"github.com/wonny/creditgate/pkg/logger"
)

var fixedNow = time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{Env: "test", LogLevel: "error"}
	log := logger.New(cfg)

	c := NewClient(config.TradierConfig{
		APIKey:  "test-token",
		BaseURL: srv.URL + "/v1",
	}, httputil.New(cfg, log).DisableRetry(), log)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestGetSeries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/history", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "daily", r.URL.Query().Get("interval"))
		assert.Equal(t, "2025-05-01", r.URL.Query().Get("start"))

		w.Write([]byte(`{"history":{"day":[
			{"date":"2025-05-02","open":560,"high":566,"low":558,"close":565.1,"volume":70000000},
			{"date":"2025-05-01","open":555,"high":561,"low":553,"close":558.5,"volume":65000000}
		]}}`))
	})

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	series, err := c.GetSeries(context.Background(), "spy", from, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, series)

	assert.Equal(t, "SPY", series.Symbol)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 558.5, series.Bars[0].Close, "bars are sorted oldest first")
	assert.Equal(t, int64(70000000), series.Last().Volume)
}

func TestGetSeries_SingleDayAndEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "ONE":
			w.Write([]byte(`{"history":{"day":{"date":"2025-05-02","open":1,"high":2,"low":0.5,"close":1.5,"volume":10}}}`))
		default:
			w.Write([]byte(`{"history":null}`))
		}
	})

	one, err := c.GetSeries(context.Background(), "ONE", fixedNow, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, one.Len())

	none, err := c.GetSeries(context.Background(), "NONE", fixedNow, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, none, "no history is (nil, nil)")
}

func TestGetSeries_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	_, err := c.GetSeries(context.Background(), "SPY", fixedNow, fixedNow)
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestDisabledClient(t *testing.T) {
	cfg := &config.Config{Env: "test", LogLevel: "error"}
	log := logger.New(cfg)
	c := NewClient(config.TradierConfig{BaseURL: "http://localhost"}, httputil.New(cfg, log), log)

	_, err := c.GetSeries(context.Background(), "SPY", fixedNow, fixedNow)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, NewOptionsProvider(c).IsAvailable(context.Background()))
}

func optionsHandler(t *testing.T, chainCalls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/markets/quotes":
			w.Write([]byte(`{"quotes":{"quote":{"symbol":"AAPL","last":200.0}}}`))
		case "/v1/markets/options/expirations":
			// 11, 32, 39 and 60 days out
			w.Write([]byte(`{"expirations":{"date":["2025-06-13","2025-07-04","2025-07-11","2025-08-01"]}}`))
		case "/v1/markets/options/chains":
			*chainCalls++
			assert.Equal(t, "2025-07-11", r.URL.Query().Get("expiration"))
			assert.Equal(t, "true", r.URL.Query().Get("greeks"))
			w.Write([]byte(`{"options":{"option":[
				{"symbol":"AAPL250711P00195000","option_type":"put","strike":195,"greeks":{"mid_iv":0.30}},
				{"symbol":"AAPL250711C00205000","option_type":"call","strike":205,"greeks":{"mid_iv":0.34}},
				{"symbol":"AAPL250711P00150000","option_type":"put","strike":150,"greeks":{"mid_iv":0.90}},
				{"symbol":"AAPL250711C00200000","option_type":"call","strike":200,"greeks":null}
			]}}`))
		case "/beta/markets/fundamentals/calendars":
			w.Write([]byte(`[{"request":"AAPL","type":"Symbol","results":[{"type":"Company","tables":{"corporate_calendars":[
				{"begin_date_time":"2025-05-01","event":"Q2 2025 Earnings Release","event_type":14},
				{"begin_date_time":"2025-06-09","event":"Annual Shareholder Meeting","event_type":8},
				{"begin_date_time":"2025-07-31","event":"Q3 2025 Earnings Release","event_type":14},
				{"begin_date_time":"2025-10-30","event":"Q4 2025 Earnings Release","event_type":14}
			]}}]}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestOptionsProvider(t *testing.T) {
	chainCalls := 0
	p := NewOptionsProvider(newTestClient(t, optionsHandler(t, &chainCalls)))
	ctx := context.Background()

	assert.True(t, p.IsAvailable(ctx))

	iv, err := p.GetCurrentIV(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, iv)
	assert.InDelta(t, 32.0, *iv, 1e-9, "mean of near-the-money mid IVs")

	rank, err := p.GetIVRank(ctx, "aapl")
	require.NoError(t, err)
	require.NotNil(t, rank)
	assert.InDelta(t, (32.0-15)/45*100, *rank, 1e-9)
	assert.Equal(t, 1, chainCalls, "current IV is memoized per day")

	earnings, err := p.GetEarningsDate(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, earnings)
	assert.Equal(t, time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), *earnings)
}

func TestIVRankFromIV(t *testing.T) {
	tests := []struct {
		iv   float64
		want float64
	}{
		{10, 0},
		{15, 0},
		{37.5, 50},
		{60, 100},
		{85, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, IVRankFromIV(tt.iv), 1e-9, "iv %.1f", tt.iv)
	}
}

func TestPickExpiration(t *testing.T) {
	d := func(s string) time.Time {
		v, _ := time.Parse(dateLayout, s)
		return v
	}

	got, ok := pickExpiration([]time.Time{d("2025-06-06"), d("2025-06-20")}, fixedNow)
	require.True(t, ok)
	assert.Equal(t, d("2025-06-06"), got, "falls back to first expiration")

	got, ok = pickExpiration([]time.Time{d("2025-07-03"), d("2025-07-10"), d("2025-07-17")}, fixedNow)
	require.True(t, ok)
	assert.Equal(t, d("2025-07-10"), got, "38 days is nearest to target")

	_, ok = pickExpiration(nil, fixedNow)
	assert.False(t, ok)
}

func TestNextEarnings_NoneUpcoming(t *testing.T) {
	events := []CalendarEvent{{BeginDate: "2025-01-30", Event: "Q1 Earnings Release"}}
	assert.Nil(t, nextEarnings(events, fixedNow))
}

func TestGetChain_Liquidity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/options/chains", r.URL.Path)
		w.Write([]byte(`{"options":{"option":{"symbol":"SPY250711P00500000","option_type":"put","strike":500,
			"bid":4.1,"ask":4.3,"volume":1250,"open_interest":8800,"greeks":{"delta":-0.22,"mid_iv":0.18}}}}`))
	})

	chain, err := c.GetChain(context.Background(), "SPY", time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, chain, 1)

	o := chain[0]
	assert.Equal(t, "put", o.OptionType)
	assert.Equal(t, int64(1250), o.Volume)
	assert.Equal(t, int64(8800), o.OpenInterest)
	require.NotNil(t, o.Greeks)
	assert.InDelta(t, -0.22, o.Greeks.Delta, 1e-12)
}

package options

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/redis"
)

var asOf = time.Date(2025, 6, 2, 20, 30, 0, 0, time.UTC)

func TestStatic(t *testing.T) {
	s := NewStatic()
	s.IVRanks["AAPL"] = 35
	s.CurrentIVs["AAPL"] = 28.5
	s.Earnings["AAPL"] = time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	rank, err := s.GetIVRank(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, 35.0, *rank)

	iv, err := s.GetCurrentIV(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 28.5, *iv)

	missing, err := s.GetIVRank(ctx, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent is a valid result")

	assert.True(t, s.IsAvailable(ctx))
}

// flaky fails every earnings lookup and counts IV rank calls
type flaky struct {
	*Static
	rankCalls int32
}

func (f *flaky) GetIVRank(ctx context.Context, symbol string) (*float64, error) {
	atomic.AddInt32(&f.rankCalls, 1)
	return f.Static.GetIVRank(ctx, symbol)
}

func (f *flaky) GetEarningsDate(context.Context, string) (*time.Time, error) {
	return nil, errors.New("calendar endpoint down")
}

func TestCollector(t *testing.T) {
	s := NewStatic()
	s.IVRanks["AAPL"] = 35
	s.IVRanks["MSFT"] = 70
	s.CurrentIVs["AAPL"] = 28
	s.Earnings["MSFT"] = time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)

	data := NewCollector(s, logger.Nop()).Collect(context.Background(), []string{"msft", "AAPL", "XOM"}, asOf, 2)

	assert.True(t, data.Available)
	assert.Equal(t, map[string]float64{"AAPL": 35, "MSFT": 70}, data.IVRanks)
	assert.Len(t, data.Earnings, 1)

	require.Len(t, data.Snapshots, 3)
	assert.Equal(t, "AAPL", data.Snapshots[0].Symbol, "snapshots sorted by symbol")
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), data.Snapshots[0].Date)
	assert.Nil(t, data.Snapshots[2].IVRank)
}

func TestCollector_FieldErrorsAreSkipped(t *testing.T) {
	f := &flaky{Static: NewStatic()}
	f.IVRanks["AAPL"] = 40

	data := NewCollector(f, logger.Nop()).Collect(context.Background(), []string{"AAPL"}, asOf, 1)
	assert.Equal(t, 40.0, data.IVRanks["AAPL"])
	assert.Empty(t, data.Earnings)
}

func TestCollector_Unavailable(t *testing.T) {
	s := NewStatic()
	s.Available = false
	s.IVRanks["AAPL"] = 35

	data := NewCollector(s, logger.Nop()).Collect(context.Background(), []string{"AAPL"}, asOf, 1)
	assert.False(t, data.Available)
	assert.Empty(t, data.IVRanks)
	assert.Empty(t, data.Snapshots)

	assert.False(t, NewCollector(nil, logger.Nop()).Collect(context.Background(), nil, asOf, 1).Available)
}

func TestCached_DisabledRedisPassesThrough(t *testing.T) {
	f := &flaky{Static: NewStatic()}
	f.IVRanks["AAPL"] = 42

	c := NewCached(f, redis.NewCache(redis.Disabled(), "test"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := c.GetIVRank(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, 42.0, *v)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.rankCalls))

	none, err := c.GetCurrentIV(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = c.GetEarningsDate(ctx, "AAPL")
	assert.Error(t, err)
	assert.True(t, c.IsAvailable(ctx))
}

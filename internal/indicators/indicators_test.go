package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverage(t *testing.T) {
	ma := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, ma, 5)

	assert.True(t, math.IsNaN(ma[0]))
	assert.True(t, math.IsNaN(ma[1]))
	assert.InDelta(t, 2.0, ma[2], 1e-9)
	assert.InDelta(t, 3.0, ma[3], 1e-9)
	assert.InDelta(t, 4.0, ma[4], 1e-9)

	last, ok := LastMovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, last, 1e-9)

	_, ok = LastMovingAverage([]float64{1, 2}, 3)
	assert.False(t, ok)
}

func TestMovingAverageSlope(t *testing.T) {
	tests := []struct {
		name     string
		ma       []float64
		lookback int
		want     float64
	}{
		{"rising", []float64{1, 2, 3}, 1, 1.0},
		{"falling over two", []float64{5, 4, 3}, 2, -2.0},
		{"insufficient history", []float64{5}, 1, 0.0},
		{"unavailable start", []float64{math.NaN(), 3}, 1, 0.0},
		{"empty", nil, 1, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MovingAverageSlope(tt.ma, tt.lookback), 1e-9)
		})
	}
}

func TestAverageTrueRange(t *testing.T) {
	high := []float64{10, 11, 12}
	low := []float64{9, 10, 11}
	closes := []float64{9.5, 10.5, 11.5}

	tr := TrueRange(high, low, closes)
	assert.Equal(t, []float64{1, 1.5, 1.5}, tr)

	atr, ok := LastAverageTrueRange(high, low, closes, 2)
	require.True(t, ok)
	assert.InDelta(t, 1.5, atr, 1e-9)

	atr, ok = LastAverageTrueRange(high, low, closes, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0/3.0, atr, 1e-9)

	_, ok = LastAverageTrueRange(high, low, closes, 14)
	assert.False(t, ok)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   float64
	}{
		{"ten percent", []float64{100, 105, 110}, 2, 10.0},
		{"five period", []float64{20, 21, 22, 23, 24, 21}, 5, 5.0},
		{"negative", []float64{100, 90}, 1, -10.0},
		{"insufficient history", []float64{100}, 5, 0.0},
		{"exactly period points", []float64{1, 2, 3, 4, 5}, 5, 0.0},
		{"zero base", []float64{0, 5}, 1, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentChange(tt.values, tt.period), 1e-9)
			assert.InDelta(t, tt.want, PeriodReturn(tt.values, tt.period), 1e-9)
		})
	}
}

func TestShortSeriesNeutralDefaults(t *testing.T) {
	short := []float64{100, 101, 102}

	assert.Equal(t, 0.0, MovingAverageSlope(MovingAverage(short, 50), 1))
	assert.Equal(t, 0.0, PeriodReturn(short, 30))
	assert.Equal(t, 0.0, PercentChange(short, 5))
	assert.False(t, HasLowerLow(short, 20))

	_, ok := MostRecentHigherLow(short, 60)
	assert.False(t, ok)
	_, ok = ConsolidationBase(short, 60, 0.02, 5)
	assert.False(t, ok)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
}

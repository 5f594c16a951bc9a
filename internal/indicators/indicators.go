package indicators

import "math"

// ⭐ SSOT: all technical indicator math lives in this package.
// Inputs are ordered oldest → newest. Insufficient history never panics:
// series-valued functions mark missing points with NaN, scalar functions
// return a neutral 0.0 or ok=false.

// MovingAverage returns the trailing arithmetic mean over period points.
// Entries before period observations exist are NaN.
func MovingAverage(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-period+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(period)
	}
	return out
}

// LastMovingAverage returns the most recent moving average value
func LastMovingAverage(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// MovingAverageSlope returns ma[t] - ma[t-lookback], 0.0 when either end is unavailable
func MovingAverageSlope(ma []float64, lookback int) float64 {
	if lookback <= 0 || len(ma) < lookback+1 {
		return 0.0
	}
	curr := ma[len(ma)-1]
	prev := ma[len(ma)-1-lookback]
	if math.IsNaN(curr) || math.IsNaN(prev) {
		return 0.0
	}
	return curr - prev
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low.
func TrueRange(high, low, close []float64) []float64 {
	n := minLen(high, low, close)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := high[i] - low[i]
		if i > 0 {
			prev := close[i-1]
			tr = math.Max(tr, math.Abs(high[i]-prev))
			tr = math.Max(tr, math.Abs(low[i]-prev))
		}
		out[i] = tr
	}
	return out
}

// AverageTrueRange returns the simple trailing mean of the true range
func AverageTrueRange(high, low, close []float64, period int) []float64 {
	return MovingAverage(TrueRange(high, low, close), period)
}

// LastAverageTrueRange returns the most recent ATR value
func LastAverageTrueRange(high, low, close []float64, period int) (float64, bool) {
	return LastMovingAverage(TrueRange(high, low, close), period)
}

// PeriodReturn returns the percent return over period points
func PeriodReturn(values []float64, period int) float64 {
	return PercentChange(values, period)
}

// PercentChange returns (last - value period back) / value period back × 100.
// 0.0 when history is insufficient or the base value is zero.
func PercentChange(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 0.0
	}
	base := values[len(values)-1-period]
	if base == 0 {
		return 0.0
	}
	return (values[len(values)-1] - base) / base * 100
}

// Mean returns the arithmetic mean, 0.0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minLen(series ...[]float64) int {
	n := math.MaxInt
	for _, s := range series {
		if len(s) < n {
			n = len(s)
		}
	}
	if n == math.MaxInt {
		return 0
	}
	return n
}

// tail returns the last lookback values, or all of them when lookback is out of range
func tail(values []float64, lookback int) []float64 {
	if lookback <= 0 || lookback >= len(values) {
		return values
	}
	return values[len(values)-lookback:]
}

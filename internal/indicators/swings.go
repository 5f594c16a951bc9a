package indicators

// minHigherLowPoints is the shortest series MostRecentHigherLow will scan
const minHigherLowPoints = 5

// HasLowerLow reports whether, inside the trailing lookback window, a local
// minimum undercuts an earlier local minimum. Local minima are strictly lower
// than both neighbours. Returns false when the series is shorter than lookback.
func HasLowerLow(lows []float64, lookback int) bool {
	if lookback <= 0 || len(lows) < lookback {
		return false
	}

	window := lows[len(lows)-lookback:]
	for i := 1; i < len(window)-1; i++ {
		if !isStrictLocalMin(window, i) {
			continue
		}
		for j := 1; j < i; j++ {
			if isStrictLocalMin(window, j) && window[i] < window[j] {
				return true
			}
		}
	}
	return false
}

// MostRecentHigherLow walks swing lows (points ≤ both neighbours) from newest
// to oldest and returns the first one above its preceding swing low.
func MostRecentHigherLow(lows []float64, lookback int) (float64, bool) {
	if len(lows) < minHigherLowPoints {
		return 0, false
	}

	swings := SwingLows(tail(lows, lookback))
	if len(swings) < 2 {
		return 0, false
	}

	for i := len(swings) - 1; i >= 1; i-- {
		if swings[i] > swings[i-1] {
			return swings[i], true
		}
	}
	return 0, false
}

// SwingLows returns the values of all points that are ≤ both neighbours
func SwingLows(values []float64) []float64 {
	var swings []float64
	for i := 1; i < len(values)-1; i++ {
		if values[i] <= values[i-1] && values[i] <= values[i+1] {
			swings = append(swings, values[i])
		}
	}
	return swings
}

// ConsolidationBase scans the trailing window back-to-front for the most
// recent run of minDays lows whose (max-min)/min ≤ tolerance and returns the
// run's minimum. Needs at least 2×minDays points. The window's first point
// never starts a run: a base needs a prior bar to have formed from.
func ConsolidationBase(lows []float64, lookback int, tolerance float64, minDays int) (float64, bool) {
	if minDays <= 0 || len(lows) < 2*minDays {
		return 0, false
	}

	window := tail(lows, lookback)
	for start := len(window) - minDays; start >= 1; start-- {
		lo, hi := minMax(window[start : start+minDays])
		if lo <= 0 {
			continue
		}
		if (hi-lo)/lo <= tolerance {
			return lo, true
		}
	}
	return 0, false
}

func isStrictLocalMin(values []float64, i int) bool {
	return values[i] < values[i-1] && values[i] < values[i+1]
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

package gates

import (
	"time"

	"github.com/wonny/creditgate/internal/contracts"
)

var baseDate = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

// seriesFromCloses builds daily bars with a ±1% high/low band around each close
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

// linearCloses returns n closes ending at last and rising by step per bar
func linearCloses(n int, last, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = last - step*float64(n-1-i)
	}
	return out
}

// zigzagDecline falls one point per bar with a bounce on odd bars, so every
// even bar is a swing low below the previous one.
func zigzagDecline(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - float64(i)
		if i%2 == 1 {
			out[i] += 1.5
		}
	}
	return out
}

func flatThen(n int, level, last float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	out[n-1] = last
	return out
}

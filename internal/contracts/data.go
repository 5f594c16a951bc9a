package contracts

import "time"

// Bar is one daily OHLCV record
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a daily series for one symbol, ordered oldest → newest
// ⭐ SSOT: every indicator and gate reads prices through this type
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// NewPriceSeries creates a series; bars must already be in date order
func NewPriceSeries(symbol string, bars []Bar) *PriceSeries {
	return &PriceSeries{Symbol: symbol, Bars: bars}
}

// Len returns the number of bars (nil-safe)
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series carries no bars
func (s *PriceSeries) Empty() bool {
	return s.Len() == 0
}

// Last returns the most recent bar, or a zero Bar for an empty series
func (s *PriceSeries) Last() Bar {
	if s.Empty() {
		return Bar{}
	}
	return s.Bars[len(s.Bars)-1]
}

// LastDate returns the date of the most recent bar
func (s *PriceSeries) LastDate() time.Time {
	return s.Last().Date
}

// Closes returns the close column
func (s *PriceSeries) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

// Highs returns the high column
func (s *PriceSeries) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

// Lows returns the low column
func (s *PriceSeries) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

// Volumes returns the volume column as float64
func (s *PriceSeries) Volumes() []float64 {
	return s.column(func(b Bar) float64 { return float64(b.Volume) })
}

func (s *PriceSeries) column(pick func(Bar) float64) []float64 {
	n := s.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = pick(s.Bars[i])
	}
	return out
}

// Tail returns a series holding at most the last n bars
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if s == nil {
		return nil
	}
	if n >= len(s.Bars) || n < 0 {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

package options

import (
	"context"
	"strings"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
)

// Static serves options data from fixed maps, keyed by upper-case symbol.
// Used offline and in tests.
type Static struct {
	IVRanks    map[string]float64
	CurrentIVs map[string]float64
	Earnings   map[string]time.Time
	Available  bool
}

var _ contracts.OptionsDataProvider = (*Static)(nil)

// NewStatic creates an empty, available provider
func NewStatic() *Static {
	return &Static{
		IVRanks:    map[string]float64{},
		CurrentIVs: map[string]float64{},
		Earnings:   map[string]time.Time{},
		Available:  true,
	}
}

func (s *Static) GetIVRank(_ context.Context, symbol string) (*float64, error) {
	if v, ok := s.IVRanks[strings.ToUpper(symbol)]; ok {
		return &v, nil
	}
	return nil, nil
}

func (s *Static) GetCurrentIV(_ context.Context, symbol string) (*float64, error) {
	if v, ok := s.CurrentIVs[strings.ToUpper(symbol)]; ok {
		return &v, nil
	}
	return nil, nil
}

func (s *Static) GetEarningsDate(_ context.Context, symbol string) (*time.Time, error) {
	if v, ok := s.Earnings[strings.ToUpper(symbol)]; ok {
		return &v, nil
	}
	return nil, nil
}

func (s *Static) IsAvailable(context.Context) bool {
	return s.Available
}

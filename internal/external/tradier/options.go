package tradier

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
)

// Chain selection and IV-rank approximation
const (
	MinTargetDTE = 30
	MaxTargetDTE = 45
	TargetDTE    = 37

	// ATMBand is the max |strike-spot|/spot for an at-the-money contract
	ATMBand = 0.05

	// IV rank is approximated by placing current IV in a 15%..60% range
	IVFloor   = 15.0
	IVCeiling = 60.0
)

// OptionsProvider implements contracts.OptionsDataProvider on top of Tradier
type OptionsProvider struct {
	client *Client

	mu     sync.Mutex
	ivMemo map[string]ivEntry
}

type ivEntry struct {
	day string
	iv  *float64
}

var _ contracts.OptionsDataProvider = (*OptionsProvider)(nil)

// NewOptionsProvider creates a Tradier-backed options provider
func NewOptionsProvider(client *Client) *OptionsProvider {
	return &OptionsProvider{
		client: client,
		ivMemo: make(map[string]ivEntry),
	}
}

// IsAvailable reports whether Tradier answers a quote request
func (p *OptionsProvider) IsAvailable(ctx context.Context) bool {
	if !p.client.Enabled() {
		return false
	}
	return p.client.Ping(ctx) == nil
}

// GetCurrentIV averages the mid IV (in percent) of near-the-money contracts
// from the expiration closest to TargetDTE inside the 30..45 day window,
// falling back to the first listed expiration
func (p *OptionsProvider) GetCurrentIV(ctx context.Context, symbol string) (*float64, error) {
	symbol = strings.ToUpper(symbol)
	today := p.client.now().UTC().Format(dateLayout)

	p.mu.Lock()
	if e, ok := p.ivMemo[symbol]; ok && e.day == today {
		p.mu.Unlock()
		return e.iv, nil
	}
	p.mu.Unlock()

	iv, err := p.fetchCurrentIV(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.ivMemo[symbol] = ivEntry{day: today, iv: iv}
	p.mu.Unlock()
	return iv, nil
}

func (p *OptionsProvider) fetchCurrentIV(ctx context.Context, symbol string) (*float64, error) {
	quote, err := p.client.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.Last == nil || *quote.Last <= 0 {
		return nil, nil
	}
	spot := *quote.Last

	expirations, err := p.client.GetExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	expiration, ok := pickExpiration(expirations, p.client.now())
	if !ok {
		return nil, nil
	}

	chain, err := p.client.GetChain(ctx, symbol, expiration)
	if err != nil {
		return nil, err
	}

	return atmIV(chain, spot), nil
}

// GetIVRank approximates IV rank from current IV; see IVRankFromIV
func (p *OptionsProvider) GetIVRank(ctx context.Context, symbol string) (*float64, error) {
	iv, err := p.GetCurrentIV(ctx, symbol)
	if err != nil || iv == nil {
		return nil, err
	}

	rank := IVRankFromIV(*iv)
	p.client.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"current_iv": *iv,
		"iv_rank":    rank,
	}).Debug("IV rank approximated from current IV")
	return &rank, nil
}

// GetEarningsDate returns the next earnings event on or after today
func (p *OptionsProvider) GetEarningsDate(ctx context.Context, symbol string) (*time.Time, error) {
	events, err := p.client.GetCorporateCalendar(ctx, strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	return nextEarnings(events, p.client.now()), nil
}

// IVRankFromIV maps an IV percentage onto 0..100 across IVFloor..IVCeiling.
// Tradier has no IV history, so this is an approximation.
func IVRankFromIV(iv float64) float64 {
	rank := (iv - IVFloor) / (IVCeiling - IVFloor) * 100
	return math.Max(0, math.Min(100, rank))
}

// pickExpiration chooses the expiration nearest TargetDTE within the
// 30..45 day window, else the first listed one
func pickExpiration(expirations []time.Time, now time.Time) (time.Time, bool) {
	if len(expirations) == 0 {
		return time.Time{}, false
	}

	today := civilDate(now)
	best, bestDist := time.Time{}, -1
	for _, exp := range expirations {
		dte := int(civilDate(exp).Sub(today).Hours() / 24)
		if dte < MinTargetDTE || dte > MaxTargetDTE {
			continue
		}
		dist := dte - TargetDTE
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = exp, dist
		}
	}

	if bestDist < 0 {
		return expirations[0], true
	}
	return best, true
}

// atmIV averages mid IV (as a percentage) over contracts within ATMBand of spot
func atmIV(chain []Option, spot float64) *float64 {
	var sum float64
	var n int
	for _, o := range chain {
		if o.Strike <= 0 || o.Greeks == nil || o.Greeks.MidIV <= 0 {
			continue
		}
		if math.Abs(o.Strike-spot)/spot > ATMBand {
			continue
		}
		sum += o.Greeks.MidIV * 100
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// nextEarnings finds the earliest earnings event dated today or later
func nextEarnings(events []CalendarEvent, now time.Time) *time.Time {
	today := civilDate(now)

	var next *time.Time
	for _, e := range events {
		if !strings.Contains(strings.ToLower(e.Event), "earnings") {
			continue
		}
		begin := e.BeginDate
		if len(begin) > len(dateLayout) {
			begin = begin[:len(dateLayout)]
		}
		d, err := time.Parse(dateLayout, begin)
		if err != nil || d.Before(today) {
			continue
		}
		if next == nil || d.Before(*next) {
			date := d
			next = &date
		}
	}
	return next
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

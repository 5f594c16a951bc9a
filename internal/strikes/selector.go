package strikes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wonny/creditgate/internal/external/tradier"
	"github.com/wonny/creditgate/pkg/logger"
)

var (
	// ErrNoExpirations is returned when no expiration falls in the DTE window
	ErrNoExpirations = errors.New("no option expirations in the target DTE range")
	// ErrNoCandidates is returned when every put fails the spread filters
	ErrNoCandidates = errors.New("no spread candidates passed the filters")
	// ErrInvalidRequest is returned for a non-finite or negative width or price
	ErrInvalidRequest = errors.New("invalid spread request")
)

// ChainSource lists expirations and option chains (satisfied by *tradier.Client)
type ChainSource interface {
	GetExpirations(ctx context.Context, symbol string) ([]time.Time, error)
	GetChain(ctx context.Context, symbol string, expiration time.Time) ([]tradier.Option, error)
}

// Request is the ticker-level input of one suggestion.
// Zero TopN or Width falls back to the configured value.
type Request struct {
	Ticker        string
	CurrentPrice  float64
	MaxSafeStrike float64
	SupportLevel  float64
	TopN          int
	Width         float64
}

// Leg is one side of a spread
type Leg struct {
	Symbol       string  `json:"symbol"`
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Mid          float64 `json:"mid"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
}

// Spread is one ranked put credit spread. Prices are per share; the
// *Dollars fields are per contract.
type Spread struct {
	Expiration           time.Time `json:"expiration"`
	DTE                  int       `json:"dte"`
	Sell                 Leg       `json:"sell"`
	Buy                  Leg       `json:"buy"`
	Credit               float64   `json:"credit"`
	Width                float64   `json:"width"`
	MaxProfit            float64   `json:"max_profit"`
	MaxLoss              float64   `json:"max_loss"`
	MaxProfitDollars     float64   `json:"max_profit_dollars"`
	MaxLossDollars       float64   `json:"max_loss_dollars"`
	ROI                  float64   `json:"roi"`
	Breakeven            float64   `json:"breakeven"`
	DistanceBelowSupport float64   `json:"distance_below_support"`
	Delta                float64   `json:"delta"`
	PoP                  *float64  `json:"pop"`
	SafetyScore          float64   `json:"safety_score"`
	ROIScore             float64   `json:"roi_score"`
	LiquidityScore       float64   `json:"liquidity_score"`
	CompositeScore       float64   `json:"composite_score"`
}

// Suggestion is the ranked result for one ticker
type Suggestion struct {
	Ticker             string   `json:"ticker"`
	CurrentPrice       float64  `json:"current_price"`
	MaxSafeStrike      float64  `json:"max_safe_strike"`
	SupportLevel       float64  `json:"support_level"`
	ExpirationsScanned int      `json:"expirations_scanned"`
	TotalCandidates    int      `json:"total_candidates"`
	Spreads            []Spread `json:"spreads"`
}

// Selector ranks put credit spreads whose short strike sits below the
// structural safety ceiling
// ⭐ SSOT: spread selection and scoring live here only
type Selector struct {
	source ChainSource
	config Config
	logger *logger.Logger
	now    func() time.Time
}

// NewSelector creates a new spread selector
func NewSelector(source ChainSource, cfg Config, log *logger.Logger) *Selector {
	return &Selector{
		source: source,
		config: cfg,
		logger: log.WithField("module", "strikes"),
		now:    time.Now,
	}
}

type expiration struct {
	date time.Time
	dte  int
}

// Suggest scans every expiration in the DTE window and returns the top
// spreads by composite score. A failed chain fetch skips that expiration.
func (s *Selector) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.config.TopN
	}
	width := req.Width
	if width == 0 {
		width = s.config.SpreadWidth
	}

	dates, err := s.source.GetExpirations(ctx, req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("get expirations %s: %w", req.Ticker, err)
	}
	targets := s.targetExpirations(dates, s.now())
	if len(targets) == 0 {
		return nil, fmt.Errorf("%s %d-%d DTE: %w", req.Ticker, s.config.MinDTE, s.config.MaxDTE, ErrNoExpirations)
	}

	out := &Suggestion{
		Ticker:        req.Ticker,
		CurrentPrice:  req.CurrentPrice,
		MaxSafeStrike: req.MaxSafeStrike,
		SupportLevel:  req.SupportLevel,
		Spreads:       []Spread{},
	}

	var spreads []Spread
	var lastErr error
	for _, exp := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chain, err := s.source.GetChain(ctx, req.Ticker, exp.date)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"ticker":     req.Ticker,
				"expiration": exp.date.Format("2006-01-02"),
			}).Warn("Failed to fetch option chain")
			continue
		}
		out.ExpirationsScanned++
		spreads = append(spreads, s.candidates(puts(chain), req, exp, width)...)
	}

	if len(spreads) == 0 {
		if out.ExpirationsScanned == 0 && lastErr != nil {
			return nil, fmt.Errorf("get chain %s: %w", req.Ticker, lastErr)
		}
		return nil, fmt.Errorf("%s: %w", req.Ticker, ErrNoCandidates)
	}

	rank(spreads)
	out.TotalCandidates = len(spreads)
	if len(spreads) > topN {
		spreads = spreads[:topN]
	}
	out.Spreads = spreads

	s.logger.WithFields(map[string]interface{}{
		"ticker":      req.Ticker,
		"expirations": out.ExpirationsScanned,
		"candidates":  out.TotalCandidates,
		"best_sell":   spreads[0].Sell.Strike,
	}).Info("Spreads ranked")

	return out, nil
}

func validateRequest(req Request) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"width", req.Width},
		{"current price", req.CurrentPrice},
		{"max safe strike", req.MaxSafeStrike},
		{"support level", req.SupportLevel},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s %s %v: %w", req.Ticker, f.name, f.value, ErrInvalidRequest)
		}
	}
	return nil
}

// targetExpirations keeps expirations inside [MinDTE, MaxDTE] calendar days,
// nearest first
func (s *Selector) targetExpirations(dates []time.Time, now time.Time) []expiration {
	today := civilDate(now)
	out := make([]expiration, 0, len(dates))
	for _, d := range dates {
		dte := int(math.Round(civilDate(d).Sub(today).Hours() / 24))
		if dte >= s.config.MinDTE && dte <= s.config.MaxDTE {
			out = append(out, expiration{date: d, dte: dte})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dte < out[j].dte })
	return out
}

func (s *Selector) candidates(chain []tradier.Option, req Request, exp expiration, width float64) []Spread {
	var out []Spread
	for _, sell := range chain {
		if !s.safe(sell, req) || !s.inDeltaBand(sell) || !s.liquid(sell) {
			continue
		}
		buy, ok := protectionPut(chain, sell.Strike-width)
		if !ok || buy.Strike >= sell.Strike {
			continue
		}

		spread := price(sell, buy, req.SupportLevel)
		if spread.Credit <= s.config.MinCredit {
			continue
		}
		spread.Expiration = exp.date
		spread.DTE = exp.dte
		out = append(out, spread)
	}
	return out
}

func (s *Selector) safe(o tradier.Option, req Request) bool {
	return o.Strike > 0 && o.Strike <= req.MaxSafeStrike && o.Strike < req.CurrentPrice
}

func (s *Selector) inDeltaBand(o tradier.Option) bool {
	if o.Greeks == nil {
		return false
	}
	return o.Greeks.Delta >= s.config.MinDelta && o.Greeks.Delta <= s.config.MaxDelta
}

func (s *Selector) liquid(o tradier.Option) bool {
	return o.Volume >= s.config.MinVolume || o.OpenInterest >= s.config.MinOpenInterest
}

// protectionPut returns the put whose strike is closest to target
func protectionPut(chain []tradier.Option, target float64) (tradier.Option, bool) {
	var best tradier.Option
	found := false
	minDiff := math.Inf(1)
	for _, o := range chain {
		if o.Strike <= 0 {
			continue
		}
		if diff := math.Abs(o.Strike - target); diff < minDiff {
			minDiff = diff
			best = o
			found = true
		}
	}
	return best, found
}

func price(sell, buy tradier.Option, support float64) Spread {
	sp := Spread{
		Sell: leg(sell),
		Buy:  leg(buy),
	}
	sp.Credit = sp.Sell.Mid - sp.Buy.Mid
	sp.Width = sell.Strike - buy.Strike
	sp.MaxProfit = sp.Credit
	sp.MaxLoss = sp.Width - sp.Credit
	sp.MaxProfitDollars = sp.MaxProfit * 100
	sp.MaxLossDollars = sp.MaxLoss * 100
	if sp.MaxLoss > 0 {
		sp.ROI = sp.MaxProfit / sp.MaxLoss * 100
	}
	sp.Breakeven = sell.Strike - sp.Credit
	sp.DistanceBelowSupport = support - sell.Strike

	if sell.Greeks != nil {
		sp.Delta = sell.Greeks.Delta
		if sp.Delta != 0 {
			pop := (1 + sp.Delta) * 100
			sp.PoP = &pop
		}
	}
	return sp
}

func leg(o tradier.Option) Leg {
	return Leg{
		Symbol:       o.Symbol,
		Strike:       o.Strike,
		Bid:          o.Bid,
		Ask:          o.Ask,
		Mid:          mid(o.Bid, o.Ask),
		Volume:       o.Volume,
		OpenInterest: o.OpenInterest,
	}
}

// mid is zero unless both sides are quoted
func mid(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}

// rank scores every spread and sorts best first. Safety weighs 50%,
// ROI 30% and liquidity 20%.
func rank(spreads []Spread) {
	for i := range spreads {
		sp := &spreads[i]
		sp.SafetyScore = clamp(sp.DistanceBelowSupport/10*100, 0, 100) // $10 below support scores 100
		sp.ROIScore = clamp(sp.ROI/50*100, 0, 100)                     // 50% ROI scores 100
		sp.LiquidityScore = liquidityScore(sp.Sell, sp.Buy)
		sp.CompositeScore = 0.5*sp.SafetyScore + 0.3*sp.ROIScore + 0.2*sp.LiquidityScore
	}
	sort.SliceStable(spreads, func(i, j int) bool {
		return spreads[i].CompositeScore > spreads[j].CompositeScore
	})
}

// liquidityScore averages both legs: 100 contracts of volume and 500 of
// open interest each saturate their part
func liquidityScore(sell, buy Leg) float64 {
	avgVolume := float64(sell.Volume+buy.Volume) / 2
	avgOI := float64(sell.OpenInterest+buy.OpenInterest) / 2
	return math.Min(100, avgVolume)*0.4 + math.Min(100, avgOI/500*100)*0.6
}

func puts(chain []tradier.Option) []tradier.Option {
	out := make([]tradier.Option, 0, len(chain))
	for _, o := range chain {
		if o.OptionType == "put" {
			out = append(out, o)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/marketdata"
	"github.com/wonny/creditgate/internal/options"
	"github.com/wonny/creditgate/internal/screener"
	"github.com/wonny/creditgate/internal/strikes"
	"github.com/wonny/creditgate/pkg/logger"
	"github.com/wonny/creditgate/pkg/metrics"
)

// ErrMissingMarketData is returned when the market or volatility series is
// unavailable; the regime gate cannot run without both
var ErrMissingMarketData = errors.New("market or volatility series unavailable")

// ErrNoData is returned when a ticker has no price history
var ErrNoData = errors.New(contracts.ReasonNoData)

// ErrInvalidStrike is returned for a NaN or infinite strike
var ErrInvalidStrike = errors.New("strike must be a finite number")

// ErrNoSafeStrike is returned when no support level yields a strike ceiling
var ErrNoSafeStrike = errors.New("no safe strike ceiling (insufficient history)")

// ErrSpreadsUnavailable is returned when no option chain source is configured
var ErrSpreadsUnavailable = errors.New("spread selection requires a Tradier API token")

// Settings controls what a scan fetches
type Settings struct {
	Tickers          []string
	MarketSymbol     string
	VolatilitySymbol string
	LookbackDays     int // trading days of history per symbol
	Workers          int
	IVHistoryDays    int // calendar days of stored IV used for the IV change check
	ConfigHash       string
}

// RunSaver persists a screening run
type RunSaver interface {
	SaveRun(ctx context.Context, scanID uuid.UUID, date time.Time, configHash string, run *contracts.ScreeningRun) error
}

// SnapshotStore persists options snapshots and serves IV history
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, snaps []options.Snapshot) error
	GetIVSeries(ctx context.Context, symbols []string, from, to time.Time) (map[string][]float64, error)
}

// Publisher receives completed runs
type Publisher interface {
	Publish(event Event)
}

// Event summarizes a completed run for subscribers
type Event struct {
	ScanID         uuid.UUID                 `json:"scan_id"`
	Date           time.Time                 `json:"date"`
	SystemState    contracts.SystemState     `json:"system_state"`
	AllowNewTrades bool                      `json:"allow_new_trades"`
	Qualified      []string                  `json:"qualified"`
	Failed         []contracts.TickerFailure `json:"failed"`
	Alerts         []contracts.Alert         `json:"alerts"`
	Saved          bool                      `json:"saved"`
}

// Request is one scan invocation
type Request struct {
	Tickers []string   // defaults to Settings.Tickers
	Date    *time.Time // defaults to now
	Save    bool
}

// Result is the outcome of a scan
type Result struct {
	ScanID        uuid.UUID               `json:"scan_id"`
	Date          time.Time               `json:"date"`
	Run           *contracts.ScreeningRun `json:"run"`
	Saved         bool                    `json:"saved"`
	FetchFailures []string                `json:"fetch_failures,omitempty"`
	Duration      time.Duration           `json:"duration"`
}

// SpreadSelector ranks put credit spreads from a live option chain
// (satisfied by *strikes.Selector)
type SpreadSelector interface {
	Suggest(ctx context.Context, req strikes.Request) (*strikes.Suggestion, error)
}

// Dependencies are the collaborators of a Service; Options, Snapshots,
// Spreads, Store, Metrics and Publisher may be nil
type Dependencies struct {
	Market    *marketdata.Collector
	Provider  contracts.MarketDataProvider
	Options   *options.Collector
	Snapshots SnapshotStore
	Spreads   SpreadSelector
	Screener  *screener.Screener
	Tracker   *screener.Tracker
	Store     RunSaver
	Metrics   *metrics.Recorder
	Publisher Publisher
}

// Service runs the daily scan pipeline: collect, screen, persist, publish
// ⭐ SSOT: the only place a scan is assembled end to end
type Service struct {
	settings Settings
	deps     Dependencies
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a scan service
func NewService(settings Settings, deps Dependencies, log *logger.Logger) *Service {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.IVHistoryDays <= 0 {
		settings.IVHistoryDays = 30
	}
	return &Service{
		settings: settings,
		deps:     deps,
		logger:   log.WithField("module", "scan"),
		now:      time.Now,
	}
}

// Settings returns the scan settings
func (s *Service) Settings() Settings {
	return s.settings
}

// Run executes one scan
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := s.now()

	asOf := start.UTC()
	if req.Date != nil {
		asOf = req.Date.UTC()
	}
	// a past date has no live quotes; only stored IV history applies
	historical := civilDate(asOf).Before(civilDate(start.UTC()))
	tickers := normalizeTickers(req.Tickers)
	if len(tickers) == 0 {
		tickers = normalizeTickers(s.settings.Tickers)
	}
	from, to := s.window(asOf)

	s.logger.WithFields(map[string]interface{}{
		"date":       asOf.Format("2006-01-02"),
		"tickers":    len(tickers),
		"save":       req.Save,
		"historical": historical,
	}).Info("Scan started")

	// 1. Price history
	symbols := append([]string{s.settings.MarketSymbol, s.settings.VolatilitySymbol}, tickers...)
	snap := s.deps.Market.Collect(ctx, symbols, from, to, marketdata.Config{Workers: s.settings.Workers})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for range snap.Failed() {
		s.recordFetchError("market_data")
	}

	market := snap.Series[strings.ToUpper(s.settings.MarketSymbol)]
	vol := snap.Series[strings.ToUpper(s.settings.VolatilitySymbol)]
	if market.Empty() || vol.Empty() {
		return nil, fmt.Errorf("%w: %s/%s", ErrMissingMarketData, s.settings.MarketSymbol, s.settings.VolatilitySymbol)
	}

	in := screener.Input{
		Tickers:    tickers,
		Stocks:     make(map[string]*contracts.PriceSeries, len(tickers)),
		Market:     market.Tail(s.settings.LookbackDays),
		Volatility: vol.Tail(s.settings.LookbackDays),
	}
	for _, t := range tickers {
		if series, ok := snap.Series[t]; ok {
			in.Stocks[t] = series.Tail(s.settings.LookbackDays)
		}
	}
	if req.Date != nil {
		day := civilDate(asOf)
		in.AsOf = &day
	}

	// 2. Options data
	s.attachOptions(ctx, &in, tickers, asOf, historical)

	// 3. Screen
	run, mc := s.deps.Screener.Screen(in)
	if s.deps.Tracker != nil && !historical {
		s.deps.Tracker.Set(mc, asOf)
	}

	res := &Result{
		ScanID:        uuid.New(),
		Date:          civilDate(asOf),
		Run:           run,
		FetchFailures: snap.Failed(),
	}

	// 4. Persist
	if req.Save && s.deps.Store != nil {
		if err := s.deps.Store.SaveRun(ctx, res.ScanID, res.Date, s.settings.ConfigHash, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		res.Saved = true
	}

	res.Duration = s.now().Sub(start)

	// 5. Publish
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRun(run, res.Duration)
	}
	if s.deps.Publisher != nil {
		s.deps.Publisher.Publish(Event{
			ScanID:         res.ScanID,
			Date:           res.Date,
			SystemState:    run.SystemState,
			AllowNewTrades: run.AllowNewTrades,
			Qualified:      run.Qualified,
			Failed:         run.Failed,
			Alerts:         run.Alerts,
			Saved:          res.Saved,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"scan_id":        res.ScanID.String(),
		"system_state":   run.SystemState,
		"allow_trades":   run.AllowNewTrades,
		"qualified":      len(run.Qualified),
		"failed":         len(run.Failed),
		"alerts":         len(run.Alerts),
		"fetch_failures": len(res.FetchFailures),
		"saved":          res.Saved,
		"duration":       res.Duration,
	}).Info("Scan completed")

	return res, nil
}

// attachOptions fills IV ranks, earnings and stored IV history; every part
// is optional and failures only skip the corresponding checks
func (s *Service) attachOptions(ctx context.Context, in *screener.Input, tickers []string, asOf time.Time, historical bool) {
	if s.deps.Options != nil && historical {
		s.logger.WithField("date", asOf.Format("2006-01-02")).
			Warn("Historical scan: skipping live IV rank and earnings, using stored IV history only")
	}
	if s.deps.Options != nil && !historical {
		data := s.deps.Options.Collect(ctx, tickers, asOf, s.settings.Workers)
		in.IVRanks = data.IVRanks
		in.Earnings = data.Earnings

		if s.deps.Snapshots != nil && len(data.Snapshots) > 0 {
			if err := s.deps.Snapshots.SaveSnapshots(ctx, data.Snapshots); err != nil {
				s.recordFetchError("options_store")
				s.logger.WithError(err).Warn("Failed to store options snapshots")
			}
		}
	}

	if s.deps.Snapshots != nil && len(tickers) > 0 {
		day := civilDate(asOf)
		series, err := s.deps.Snapshots.GetIVSeries(ctx, tickers, day.AddDate(0, 0, -s.settings.IVHistoryDays), day)
		if err != nil {
			s.recordFetchError("options_store")
			s.logger.WithError(err).Warn("Failed to load IV history")
			return
		}
		in.IVSeries = series
	}
}

// window converts the trading-day lookback into a calendar range ending at asOf
func (s *Service) window(asOf time.Time) (time.Time, time.Time) {
	to := civilDate(asOf)
	calendarDays := s.settings.LookbackDays*7/5 + 10
	return to.AddDate(0, 0, -calendarDays), to
}

func (s *Service) recordFetchError(source string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordFetchError(source)
	}
}

func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

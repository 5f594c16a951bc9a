package options

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/pkg/logger"
)

// Snapshot is one symbol's options data on a date
type Snapshot struct {
	Symbol       string     `json:"symbol"`
	Date         time.Time  `json:"date"`
	IVRank       *float64   `json:"iv_rank,omitempty"`
	CurrentIV    *float64   `json:"current_iv,omitempty"`
	EarningsDate *time.Time `json:"earnings_date,omitempty"`
}

// Data is the options input of one scan, keyed by upper-case symbol
type Data struct {
	Available bool
	IVRanks   map[string]float64
	Earnings  map[string]time.Time
	Snapshots []Snapshot
}

// Collector gathers options data with a bounded worker pool
type Collector struct {
	provider contracts.OptionsDataProvider
	logger   *logger.Logger
}

// NewCollector creates a new options collector
func NewCollector(provider contracts.OptionsDataProvider, log *logger.Logger) *Collector {
	return &Collector{
		provider: provider,
		logger:   log.WithField("module", "options"),
	}
}

// Collect fetches IV rank, current IV and earnings for every symbol.
// An unavailable provider yields empty data so the checks are skipped;
// a failed field for one symbol is logged and left absent.
func (c *Collector) Collect(ctx context.Context, symbols []string, asOf time.Time, workers int) *Data {
	data := &Data{
		IVRanks:  map[string]float64{},
		Earnings: map[string]time.Time{},
	}

	if c.provider == nil || !c.provider.IsAvailable(ctx) {
		c.logger.Warn("Options data provider unavailable, IV and earnings checks will be skipped")
		return data
	}
	data.Available = true

	if workers < 1 {
		workers = 1
	}

	date := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	symbolCh := make(chan string, len(symbols))
	snapCh := make(chan Snapshot, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolCh {
				if ctx.Err() != nil {
					continue
				}
				snapCh <- c.snapshot(ctx, symbol, date)
			}
		}()
	}

	for _, s := range symbols {
		symbolCh <- strings.ToUpper(s)
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(snapCh)
	}()

	for snap := range snapCh {
		data.Snapshots = append(data.Snapshots, snap)
		if snap.IVRank != nil {
			data.IVRanks[snap.Symbol] = *snap.IVRank
		}
		if snap.EarningsDate != nil {
			data.Earnings[snap.Symbol] = *snap.EarningsDate
		}
	}

	sort.Slice(data.Snapshots, func(i, j int) bool {
		return data.Snapshots[i].Symbol < data.Snapshots[j].Symbol
	})

	c.logger.WithFields(map[string]interface{}{
		"symbols":       len(symbols),
		"with_iv_rank":  len(data.IVRanks),
		"with_earnings": len(data.Earnings),
	}).Info("Options collection completed")

	return data
}

func (c *Collector) snapshot(ctx context.Context, symbol string, date time.Time) Snapshot {
	snap := Snapshot{Symbol: symbol, Date: date}
	log := c.logger.WithField("symbol", symbol)

	if v, err := c.provider.GetIVRank(ctx, symbol); err != nil {
		log.WithError(err).Warn("IV rank unavailable")
	} else {
		snap.IVRank = v
	}

	if v, err := c.provider.GetCurrentIV(ctx, symbol); err != nil {
		log.WithError(err).Warn("Current IV unavailable")
	} else {
		snap.CurrentIV = v
	}

	if v, err := c.provider.GetEarningsDate(ctx, symbol); err != nil {
		log.WithError(err).Warn("Earnings date unavailable")
	} else {
		snap.EarningsDate = v
	}

	return snap
}

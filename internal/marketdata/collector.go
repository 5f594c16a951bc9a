package marketdata

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/pkg/logger"
)

// Collector fetches the series a scan needs with a bounded worker pool
type Collector struct {
	provider contracts.MarketDataProvider
	logger   *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// FetchResult is the outcome for one symbol
type FetchResult struct {
	Symbol string
	Bars   int
	Error  error
}

// Snapshot is the set of series fetched for one scan.
// Symbols that failed or returned nothing are absent from Series.
type Snapshot struct {
	Series  map[string]*contracts.PriceSeries
	Results []FetchResult
}

// Failed lists symbols whose fetch returned an error
func (s *Snapshot) Failed() []string {
	var failed []string
	for _, r := range s.Results {
		if r.Error != nil {
			failed = append(failed, r.Symbol)
		}
	}
	return failed
}

// NewCollector creates a new Collector
func NewCollector(provider contracts.MarketDataProvider, log *logger.Logger) *Collector {
	return &Collector{
		provider: provider,
		logger:   log.WithField("module", "collector"),
	}
}

// Collect fetches every symbol between from and to. A failure for one
// symbol is logged and recorded in Results; it never aborts the others.
func (c *Collector) Collect(ctx context.Context, symbols []string, from, to time.Time, cfg Config) *Snapshot {
	symbols = normalize(symbols)
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol_count": len(symbols),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      workers,
	}).Info("Starting series collection")

	type fetched struct {
		result FetchResult
		series *contracts.PriceSeries
	}

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan fetched, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for symbol := range symbolCh {
				if err := ctx.Err(); err != nil {
					resultCh <- fetched{result: FetchResult{Symbol: symbol, Error: err}}
					continue
				}

				series, err := c.provider.GetSeries(ctx, symbol, from, to)
				if err != nil {
					c.logger.WithError(err).WithFields(map[string]interface{}{
						"worker": workerID,
						"symbol": symbol,
					}).Error("Failed to fetch series")
					resultCh <- fetched{result: FetchResult{Symbol: symbol, Error: err}}
					continue
				}

				resultCh <- fetched{
					result: FetchResult{Symbol: symbol, Bars: series.Len()},
					series: series,
				}
			}
		}(i)
	}

	for _, s := range symbols {
		symbolCh <- s
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	snap := &Snapshot{
		Series:  make(map[string]*contracts.PriceSeries, len(symbols)),
		Results: make([]FetchResult, 0, len(symbols)),
	}
	failCount := 0
	for f := range resultCh {
		snap.Results = append(snap.Results, f.result)
		if f.result.Error != nil {
			failCount++
			continue
		}
		if !f.series.Empty() {
			snap.Series[f.result.Symbol] = f.series
		}
	}

	// results arrive in completion order
	sort.Slice(snap.Results, func(i, j int) bool {
		return snap.Results[i].Symbol < snap.Results[j].Symbol
	})

	c.logger.WithFields(map[string]interface{}{
		"success": len(snap.Results) - failCount,
		"failed":  failCount,
		"empty":   len(snap.Results) - failCount - len(snap.Series),
		"total":   len(snap.Results),
	}).Info("Series collection completed")

	return snap
}

func normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

package screener

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/failuremode"
	"github.com/wonny/creditgate/internal/gates"
	"github.com/wonny/creditgate/pkg/logger"
)

// Screener composes the four gates and the failure-mode detector into one run
// ⭐ SSOT: qualification and system-level override are decided only here
type Screener struct {
	regime   *gates.MarketRegimeGate
	rs       *gates.RelativeStrengthGate
	safety   *gates.StructuralSafetyGate
	event    *gates.EventVolatilityGate
	detector *failuremode.Detector
	workers  int
	logger   *logger.Logger
}

// New creates a new Screener
func New(cfg Config, log *logger.Logger) *Screener {
	return &Screener{
		regime:   gates.NewMarketRegimeGate(cfg.MarketRegime),
		rs:       gates.NewRelativeStrengthGate(cfg.RelativeStrength),
		safety:   gates.NewStructuralSafetyGate(cfg.StructuralSafety),
		event:    gates.NewEventVolatilityGate(cfg.EventVolatility),
		detector: failuremode.NewDetector(cfg.FailureModes),
		workers:  cfg.Workers,
		logger:   log.WithField("module", "screener"),
	}
}

// tickerOutcome is the per-ticker result before reconciliation
type tickerOutcome struct {
	verdict   *contracts.TickerVerdict
	reason    string
	qualified bool
}

// Screen runs one screening pass over a pre-fetched snapshot.
// The returned MarketContext answers later SystemStatus queries.
func (s *Screener) Screen(in Input) (*contracts.ScreeningRun, MarketContext) {
	mc := MarketContext{Market: in.Market, Volatility: in.Volatility}
	in.Tickers = uniqueTickers(in.Tickers)

	// 1. Market regime (market-wide)
	regime := s.regime.Evaluate(in.Market, in.Volatility)

	// 2. Failure modes; breadth samples are a barrier before the reduction
	report := s.detector.Evaluate(in.Market, in.Volatility, s.breadth(in.Stocks))

	systemFailure := !regime.Passed || !report.AllowNewTrades

	// 3. Per-ticker gates
	outcomes := make([]tickerOutcome, len(in.Tickers))
	s.parallel(len(in.Tickers), func(i int) {
		outcomes[i] = s.evaluateTicker(in.Tickers[i], in)
	})

	run := &contracts.ScreeningRun{
		AsOf:             in.Market.LastDate(),
		TickersEvaluated: append([]string{}, in.Tickers...),
		Verdicts:         []contracts.TickerVerdict{},
		Qualified:        []string{},
		Failed:           []contracts.TickerFailure{},
		MarketRegime:     regime,
		FailureModes:     report,
	}
	if in.AsOf != nil {
		run.AsOf = *in.AsOf
	}

	failed := make(map[string]string)
	var provisional []string
	for i, ticker := range in.Tickers {
		o := outcomes[i]
		if o.verdict != nil {
			run.Verdicts = append(run.Verdicts, *o.verdict)
		}
		if o.qualified {
			provisional = append(provisional, ticker)
		} else {
			failed[ticker] = o.reason
		}
	}

	// 4. Late relative-strength breakdown recheck (collect, then filter)
	alerts := append([]contracts.Alert{}, report.Alerts...)
	qualified := make([]string, 0, len(provisional))
	for _, ticker := range provisional {
		check := s.detector.CheckRelativeStrengthBreakdown(ticker, in.Stocks[ticker], in.Market)
		if check.Triggered {
			failed[ticker] = check.Message
			alerts = append(alerts, check.Alert())
			continue
		}
		qualified = append(qualified, ticker)
	}

	if systemFailure {
		// 5. System-level override
		if !regime.Passed {
			alerts = append([]contracts.Alert{{
				Source:   contracts.SourceMarketRegimeGate,
				Mode:     contracts.ModeRegimeTransition,
				Severity: contracts.SeverityCritical,
				Action:   failuremode.ActionRegimeTransition,
				Message:  regime.Reason(),
			}}, alerts...)
			run.SystemState = contracts.StateRiskOff
		} else {
			run.SystemState = report.SystemState
		}
		run.AllowNewTrades = false

		// every other ticker already carries its own gate reason
		for _, ticker := range qualified {
			failed[ticker] = contracts.ReasonSystemOverride
		}
	} else {
		// 6. Healthy system
		run.Qualified = qualified
		run.SystemState = report.SystemState
		run.AllowNewTrades = report.AllowNewTrades
	}

	run.Alerts = alerts
	for _, ticker := range in.Tickers {
		if reason, ok := failed[ticker]; ok {
			run.Failed = append(run.Failed, contracts.TickerFailure{Ticker: ticker, Reason: reason})
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"as_of":        run.AsOf.Format("2006-01-02"),
		"evaluated":    len(run.TickersEvaluated),
		"qualified":    len(run.Qualified),
		"failed":       len(run.Failed),
		"demoted":      len(provisional) - len(qualified),
		"system_state": run.SystemState,
		"alerts":       len(run.Alerts),
	}).Info("Screening completed")

	return run, mc
}

// evaluateTicker runs RS → structural safety → event/volatility for one ticker.
// A panic inside any gate becomes a failure reason for this ticker only.
func (s *Screener) evaluateTicker(ticker string, in Input) (out tickerOutcome) {
	stock, ok := in.stock(ticker)
	if !ok {
		return tickerOutcome{reason: contracts.ReasonNoData}
	}

	verdict := &contracts.TickerVerdict{Ticker: ticker}
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"panic":  fmt.Sprint(r),
			}).Error("Ticker evaluation failed")
			out = tickerOutcome{verdict: verdict, reason: fmt.Sprintf("evaluation error: %v", r)}
		}
	}()

	rs := s.rs.Evaluate(stock, in.Market)
	verdict.RelativeStrength = &rs
	if !rs.Passed {
		return tickerOutcome{verdict: verdict, reason: contracts.PrefixRelativeStrength + rs.Reason()}
	}

	// informational only: no strike means the gate always passes
	safety := s.safety.Evaluate(stock, nil)
	verdict.StructuralSafety = &safety

	ev := s.event.Evaluate(stock, in.eventInputs(ticker))
	verdict.EventVolatility = &ev
	if !ev.Passed {
		return tickerOutcome{verdict: verdict, reason: contracts.PrefixEventVolatility + ev.Reason()}
	}

	return tickerOutcome{verdict: verdict, qualified: true}
}

// breadth computes every series' correlated-breakdown sample. All samples
// are complete when it returns.
func (s *Screener) breadth(stocks map[string]*contracts.PriceSeries) []failuremode.BreadthSample {
	if len(stocks) == 0 {
		return nil
	}
	tickers := make([]string, 0, len(stocks))
	for ticker := range stocks {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	samples := make([]failuremode.BreadthSample, len(tickers))
	s.parallel(len(tickers), func(i int) {
		samples[i] = s.detector.Breadth(tickers[i], stocks[tickers[i]])
	})
	return samples
}

// parallel calls fn for every index in [0, n) on a bounded worker pool and
// waits for all of them. Each fn must write only its own slot.
func (s *Screener) parallel(n int, fn func(i int)) {
	if s.workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	indexCh := make(chan int, n)
	for i := 0; i < n; i++ {
		indexCh <- i
	}
	close(indexCh)

	workers := s.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				fn(i)
			}
		}()
	}
	wg.Wait()
}

// uniqueTickers drops repeated tickers, keeping first-seen order
func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// StrikeRange reports the safe strike zone for one ticker
func (s *Screener) StrikeRange(stock *contracts.PriceSeries) contracts.StrikeRange {
	return s.safety.SuggestStrikeRange(stock)
}

// CheckStrike validates a hypothetical short strike against the support levels
func (s *Screener) CheckStrike(stock *contracts.PriceSeries, strike float64) contracts.StructuralSafetyResult {
	return s.safety.Evaluate(stock, &strike)
}

// SupportLevels reports the support levels and safe strike ceiling for one ticker
func (s *Screener) SupportLevels(stock *contracts.PriceSeries) contracts.SupportLevels {
	return s.safety.SupportLevels(stock)
}

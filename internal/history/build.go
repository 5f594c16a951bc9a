package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/creditgate/internal/contracts"
)

// buildRecord flattens a run into its daily_scans row
func buildRecord(scanID uuid.UUID, date time.Time, configHash string, run *contracts.ScreeningRun) (ScanRecord, error) {
	regime, err := json.Marshal(run.MarketRegime)
	if err != nil {
		return ScanRecord{}, fmt.Errorf("encode market regime: %w", err)
	}
	modes, err := json.Marshal(run.FailureModes)
	if err != nil {
		return ScanRecord{}, fmt.Errorf("encode failure modes: %w", err)
	}

	return ScanRecord{
		ScanID:         scanID,
		ScanDate:       civilDate(date),
		SystemState:    run.SystemState,
		AllowNewTrades: run.AllowNewTrades,
		MarketRegimeOK: run.MarketRegime.Passed,
		TickersTotal:   len(run.TickersEvaluated),
		QualifiedCount: len(run.Qualified),
		ConfigHash:     configHash,
		MarketRegime:   regime,
		FailureModes:   modes,
	}, nil
}

// buildResults produces one result per evaluated ticker, in evaluation order
func buildResults(date time.Time, run *contracts.ScreeningRun) ([]TickerResult, error) {
	date = civilDate(date)
	results := make([]TickerResult, 0, len(run.TickersEvaluated))

	for _, ticker := range run.TickersEvaluated {
		res := TickerResult{
			ScanDate:  date,
			Ticker:    ticker,
			Qualified: run.IsQualified(ticker),
		}
		if !res.Qualified {
			res.FailureReason, _ = run.FailureReason(ticker)
		}
		if v := run.Verdict(ticker); v != nil {
			gates, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode gates for %s: %w", ticker, err)
			}
			res.Gates = gates
		}
		results = append(results, res)
	}
	return results, nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

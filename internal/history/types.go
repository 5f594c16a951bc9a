package history

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/creditgate/internal/contracts"
)

// ErrRunNotFound is returned when no scan is stored for the requested date
var ErrRunNotFound = errors.New("screening run not found")

// ScanRecord is one row of screener.daily_scans
type ScanRecord struct {
	ScanID         uuid.UUID             `json:"scan_id"`
	ScanDate       time.Time             `json:"scan_date"`
	SystemState    contracts.SystemState `json:"system_state"`
	AllowNewTrades bool                  `json:"allow_new_trades"`
	MarketRegimeOK bool                  `json:"market_regime_ok"`
	TickersTotal   int                   `json:"tickers_total"`
	QualifiedCount int                   `json:"qualified_count"`
	ConfigHash     string                `json:"config_hash"`
	MarketRegime   json.RawMessage       `json:"market_regime"`
	FailureModes   json.RawMessage       `json:"failure_modes"`
	CreatedAt      time.Time             `json:"created_at"`
}

// TickerResult is one row of screener.screening_results
type TickerResult struct {
	ScanDate      time.Time       `json:"scan_date"`
	Ticker        string          `json:"ticker"`
	Qualified     bool            `json:"qualified"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Gates         json.RawMessage `json:"gates,omitempty"`
}

// StoredRun is a persisted scan with its per-ticker results and alerts
type StoredRun struct {
	ScanRecord
	Results []TickerResult    `json:"results"`
	Alerts  []contracts.Alert `json:"alerts"`
}

// Qualified lists the tickers that qualified in the stored run
func (r *StoredRun) Qualified() []string {
	out := []string{}
	for _, res := range r.Results {
		if res.Qualified {
			out = append(out, res.Ticker)
		}
	}
	return out
}

// QualificationStat summarizes how often a ticker qualified
type QualificationStat struct {
	Ticker            string     `json:"ticker"`
	TimesScreened     int        `json:"times_screened"`
	TimesQualified    int        `json:"times_qualified"`
	QualificationRate float64    `json:"qualification_rate"` // percent
	LastQualified     *time.Time `json:"last_qualified,omitempty"`
}

// StateEntry is one day of system state history
type StateEntry struct {
	ScanDate       time.Time             `json:"scan_date"`
	SystemState    contracts.SystemState `json:"system_state"`
	AllowNewTrades bool                  `json:"allow_new_trades"`
	TickersTotal   int                   `json:"tickers_total"`
	QualifiedCount int                   `json:"qualified_count"`
}

// ExportRow is one line of the CSV export
type ExportRow struct {
	ScanDate      time.Time
	Ticker        string
	Qualified     bool
	FailureReason string
	SystemState   contracts.SystemState
}

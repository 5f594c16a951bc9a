package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/creditgate/internal/contracts"
)

// Repository persists screening runs
// ⭐ SSOT: run history storage lives here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores run as the scan for date, replacing any earlier scan on
// that date together with its results and alerts
func (r *Repository) SaveRun(ctx context.Context, scanID uuid.UUID, date time.Time, configHash string, run *contracts.ScreeningRun) error {
	rec, err := buildRecord(scanID, date, configHash, run)
	if err != nil {
		return err
	}
	results, err := buildResults(date, run)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// results and alerts cascade
	if _, err := tx.Exec(ctx, `DELETE FROM screener.daily_scans WHERE scan_date = $1`, rec.ScanDate); err != nil {
		return fmt.Errorf("delete previous scan: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO screener.daily_scans (
			scan_id, scan_date, system_state, allow_new_trades, market_regime_ok,
			tickers_total, qualified_count, config_hash, market_regime, failure_modes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ScanID, rec.ScanDate, string(rec.SystemState), rec.AllowNewTrades, rec.MarketRegimeOK,
		rec.TickersTotal, rec.QualifiedCount, rec.ConfigHash, []byte(rec.MarketRegime), []byte(rec.FailureModes),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`
			INSERT INTO screener.screening_results (scan_date, ticker, qualified, failure_reason, gates)
			VALUES ($1, $2, $3, $4, $5)`,
			res.ScanDate, res.Ticker, res.Qualified, res.FailureReason, nullableJSON(res.Gates),
		)
	}
	for i, a := range run.Alerts {
		batch.Queue(`
			INSERT INTO screener.failure_mode_alerts (scan_date, position, source, mode, severity, ticker, action, message)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ScanDate, i, string(a.Source), string(a.Mode), string(a.Severity), a.Ticker, a.Action, a.Message,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const scanColumns = `
	scan_id, scan_date, system_state, allow_new_trades, market_regime_ok,
	tickers_total, qualified_count, config_hash, market_regime, failure_modes, created_at`

func scanRecord(row pgx.Row) (ScanRecord, error) {
	var rec ScanRecord
	var state string
	var regime, modes []byte
	err := row.Scan(
		&rec.ScanID, &rec.ScanDate, &state, &rec.AllowNewTrades, &rec.MarketRegimeOK,
		&rec.TickersTotal, &rec.QualifiedCount, &rec.ConfigHash, &regime, &modes, &rec.CreatedAt,
	)
	rec.SystemState = contracts.SystemState(state)
	rec.MarketRegime = regime
	rec.FailureModes = modes
	return rec, err
}

// GetRunByDate loads the scan stored for date
func (r *Repository) GetRunByDate(ctx context.Context, date time.Time) (*StoredRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scanColumns+` FROM screener.daily_scans WHERE scan_date = $1`, civilDate(date))
	return r.loadRun(ctx, row)
}

// GetLatestRun loads the most recent scan
func (r *Repository) GetLatestRun(ctx context.Context) (*StoredRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scanColumns+` FROM screener.daily_scans ORDER BY scan_date DESC LIMIT 1`)
	return r.loadRun(ctx, row)
}

func (r *Repository) loadRun(ctx context.Context, row pgx.Row) (*StoredRun, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}

	run := &StoredRun{ScanRecord: rec}

	rows, err := r.pool.Query(ctx, `
		SELECT scan_date, ticker, qualified, failure_reason, gates
		FROM screener.screening_results
		WHERE scan_date = $1
		ORDER BY ticker`, rec.ScanDate)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	run.Results, err = pgx.CollectRows(rows, scanTickerResult)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}

	run.Alerts, err = r.GetAlertsForDate(ctx, rec.ScanDate)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func scanTickerResult(row pgx.CollectableRow) (TickerResult, error) {
	var res TickerResult
	var gates []byte
	err := row.Scan(&res.ScanDate, &res.Ticker, &res.Qualified, &res.FailureReason, &gates)
	if len(gates) > 0 {
		res.Gates = gates
	}
	return res, err
}

// GetTickerHistory returns a ticker's results since the given date, newest first
func (r *Repository) GetTickerHistory(ctx context.Context, ticker string, since time.Time) ([]TickerResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scan_date, ticker, qualified, failure_reason, gates
		FROM screener.screening_results
		WHERE ticker = $1 AND scan_date >= $2
		ORDER BY scan_date DESC`, strings.ToUpper(ticker), civilDate(since))
	if err != nil {
		return nil, fmt.Errorf("query ticker history: %w", err)
	}
	return pgx.CollectRows(rows, scanTickerResult)
}

// GetQualifiedTickers lists the tickers that qualified on date
func (r *Repository) GetQualifiedTickers(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker FROM screener.screening_results
		WHERE scan_date = $1 AND qualified
		ORDER BY ticker`, civilDate(date))
	if err != nil {
		return nil, fmt.Errorf("query qualified tickers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetQualificationSummary ranks tickers by how often they qualified since the given date
func (r *Repository) GetQualificationSummary(ctx context.Context, since time.Time) ([]QualificationStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			ticker,
			COUNT(*) AS times_screened,
			COUNT(*) FILTER (WHERE qualified) AS times_qualified,
			MAX(scan_date) FILTER (WHERE qualified) AS last_qualified
		FROM screener.screening_results
		WHERE scan_date >= $1
		GROUP BY ticker`, civilDate(since))
	if err != nil {
		return nil, fmt.Errorf("query qualification summary: %w", err)
	}

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (QualificationStat, error) {
		var s QualificationStat
		err := row.Scan(&s.Ticker, &s.TimesScreened, &s.TimesQualified, &s.LastQualified)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan qualification summary: %w", err)
	}
	return rankStats(stats), nil
}

// GetSystemStateHistory returns one entry per scan since the given date, newest first
func (r *Repository) GetSystemStateHistory(ctx context.Context, since time.Time) ([]StateEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scan_date, system_state, allow_new_trades, tickers_total, qualified_count
		FROM screener.daily_scans
		WHERE scan_date >= $1
		ORDER BY scan_date DESC`, civilDate(since))
	if err != nil {
		return nil, fmt.Errorf("query state history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StateEntry, error) {
		var e StateEntry
		var state string
		err := row.Scan(&e.ScanDate, &state, &e.AllowNewTrades, &e.TickersTotal, &e.QualifiedCount)
		e.SystemState = contracts.SystemState(state)
		return e, err
	})
}

// GetAlertsForDate returns the alerts of the scan on date in raised order
func (r *Repository) GetAlertsForDate(ctx context.Context, date time.Time) ([]contracts.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source, mode, severity, ticker, action, message
		FROM screener.failure_mode_alerts
		WHERE scan_date = $1
		ORDER BY position`, civilDate(date))
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	alerts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.Alert, error) {
		var a contracts.Alert
		var source, mode, severity string
		err := row.Scan(&source, &mode, &severity, &a.Ticker, &a.Action, &a.Message)
		a.Source = contracts.AlertSource(source)
		a.Mode = contracts.FailureMode(mode)
		a.Severity = contracts.Severity(severity)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan alerts: %w", err)
	}
	if alerts == nil {
		alerts = []contracts.Alert{}
	}
	return alerts, nil
}

// GetExportRows returns every ticker result since the given date, oldest scan first
func (r *Repository) GetExportRows(ctx context.Context, since time.Time) ([]ExportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.scan_date, r.ticker, r.qualified, r.failure_reason, s.system_state
		FROM screener.screening_results r
		JOIN screener.daily_scans s ON s.scan_date = r.scan_date
		WHERE s.scan_date >= $1
		ORDER BY s.scan_date, r.ticker`, civilDate(since))
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExportRow, error) {
		var e ExportRow
		var state string
		err := row.Scan(&e.ScanDate, &e.Ticker, &e.Qualified, &e.FailureReason, &state)
		e.SystemState = contracts.SystemState(state)
		return e, err
	})
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

package database

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS screener`,

	`CREATE TABLE IF NOT EXISTS screener.daily_bars (
		symbol      TEXT        NOT NULL,
		trade_date  DATE        NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT      NOT NULL DEFAULT 0,
		source      TEXT        NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.options_snapshots (
		symbol        TEXT        NOT NULL,
		snapshot_date DATE        NOT NULL,
		iv_rank       DOUBLE PRECISION,
		current_iv    DOUBLE PRECISION,
		earnings_date DATE,
		source        TEXT        NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol, snapshot_date)
	)`,

	`CREATE TABLE IF NOT EXISTS screener.daily_scans (
		scan_id          UUID        NOT NULL UNIQUE,
		scan_date        DATE        PRIMARY KEY,
		system_state     TEXT        NOT NULL,
		allow_new_trades BOOLEAN     NOT NULL,
		market_regime_ok BOOLEAN     NOT NULL,
		tickers_total    INT         NOT NULL,
		qualified_count  INT         NOT NULL,
		config_hash      TEXT        NOT NULL DEFAULT '',
		market_regime    JSONB       NOT NULL,
		failure_modes    JSONB       NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS screener.screening_results (
		scan_date      DATE    NOT NULL REFERENCES screener.daily_scans (scan_date) ON DELETE CASCADE,
		ticker         TEXT    NOT NULL,
		qualified      BOOLEAN NOT NULL,
		failure_reason TEXT    NOT NULL DEFAULT '',
		gates          JSONB,
		PRIMARY KEY (scan_date, ticker)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_screening_results_ticker ON screener.screening_results (ticker, scan_date DESC)`,

	`CREATE TABLE IF NOT EXISTS screener.failure_mode_alerts (
		id        BIGSERIAL PRIMARY KEY,
		scan_date DATE NOT NULL REFERENCES screener.daily_scans (scan_date) ON DELETE CASCADE,
		position  INT  NOT NULL,
		source    TEXT NOT NULL,
		mode      TEXT NOT NULL DEFAULT '',
		severity  TEXT NOT NULL,
		ticker    TEXT NOT NULL DEFAULT '',
		action    TEXT NOT NULL DEFAULT '',
		message   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failure_mode_alerts_date ON screener.failure_mode_alerts (scan_date, position)`,
}

// Migrate creates the screener schema and tables when missing
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

// Tables lists the tables Migrate manages, in creation order
func Tables() []string {
	return []string{
		"screener.daily_bars",
		"screener.options_snapshots",
		"screener.daily_scans",
		"screener.screening_results",
		"screener.failure_mode_alerts",
	}
}

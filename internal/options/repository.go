package options

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores daily options snapshots in screener.options_snapshots
type Repository struct {
	pool   *pgxpool.Pool
	source string
}

// NewRepository creates a snapshot repository
func NewRepository(pool *pgxpool.Pool, source string) *Repository {
	return &Repository{pool: pool, source: source}
}

// SaveSnapshots upserts one row per snapshot
func (r *Repository) SaveSnapshots(ctx context.Context, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	query := `
		INSERT INTO screener.options_snapshots (symbol, snapshot_date, iv_rank, current_iv, earnings_date, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, snapshot_date) DO UPDATE SET
			iv_rank = EXCLUDED.iv_rank,
			current_iv = EXCLUDED.current_iv,
			earnings_date = EXCLUDED.earnings_date,
			source = EXCLUDED.source,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, s := range snaps {
		batch.Queue(query, strings.ToUpper(s.Symbol), s.Date, s.IVRank, s.CurrentIV, s.EarningsDate, r.source)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save options snapshots: %w", err)
	}
	return nil
}

// GetIVSeries returns each symbol's recorded current IV, oldest first, over
// snapshots dated from..to. Symbols without any IV are absent.
func (r *Repository) GetIVSeries(ctx context.Context, symbols []string, from, to time.Time) (map[string][]float64, error) {
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	query := `
		SELECT symbol, current_iv
		FROM screener.options_snapshots
		WHERE symbol = ANY($1) AND snapshot_date BETWEEN $2 AND $3 AND current_iv IS NOT NULL
		ORDER BY symbol, snapshot_date ASC
	`

	rows, err := r.pool.Query(ctx, query, upper, from, to)
	if err != nil {
		return nil, fmt.Errorf("query iv series: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var symbol string
		var iv float64
		if err := rows.Scan(&symbol, &iv); err != nil {
			return nil, fmt.Errorf("scan iv series: %w", err)
		}
		out[symbol] = append(out[symbol], iv)
	}
	return out, rows.Err()
}

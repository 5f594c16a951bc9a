package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/creditgate/internal/contracts"
)

// Repository stores daily bars in screener.daily_bars
// ⭐ SSOT: bar storage lives here only
type Repository struct {
	pool   *pgxpool.Pool
	source string
}

// NewRepository creates a bar repository; source tags rows it writes
func NewRepository(pool *pgxpool.Pool, source string) *Repository {
	return &Repository{pool: pool, source: source}
}

var _ Store = (*Repository)(nil)

// GetSeries loads bars for symbol between from and to (inclusive).
// A symbol with no stored bars returns (nil, nil).
func (r *Repository) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM screener.daily_bars
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return nil, nil
	}
	return contracts.NewPriceSeries(symbol, bars), nil
}

// SaveSeries upserts every bar of the series in one batch
func (r *Repository) SaveSeries(ctx context.Context, series *contracts.PriceSeries) error {
	if series.Empty() {
		return nil
	}

	query := `
		INSERT INTO screener.daily_bars (symbol, trade_date, open_price, high_price, low_price, close_price, volume, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			source = EXCLUDED.source,
			updated_at = now()
	`

	symbol := strings.ToUpper(series.Symbol)
	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, r.source)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save bars %s: %w", symbol, err)
	}
	return nil
}

// LatestDate returns the most recent stored trade date for symbol
func (r *Repository) LatestDate(ctx context.Context, symbol string) (*time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM screener.daily_bars WHERE symbol = $1`,
		strings.ToUpper(symbol),
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest bar date: %w", err)
	}
	return latest, nil
}

// Symbols lists every symbol with stored bars
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM screener.daily_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

package tradier

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
)

// GetSeries fetches daily bars for symbol between from and to (inclusive).
// A symbol without history returns (nil, nil).
func (c *Client) GetSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	params := url.Values{
		"symbol":   {symbol},
		"interval": {"daily"},
		"start":    {from.Format(dateLayout)},
		"end":      {to.Format(dateLayout)},
	}

	var resp historyResponse
	if err := c.get(ctx, "/markets/history", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	if resp.History == nil || len(resp.History.Day) == 0 {
		c.logger.WithField("symbol", symbol).Debug("No history returned")
		return nil, nil
	}

	bars, err := toBars(resp.History.Day)
	if err != nil {
		return nil, fmt.Errorf("parse history %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched history")

	return contracts.NewPriceSeries(symbol, bars), nil
}

// toBars converts history days to bars ordered oldest first
func toBars(days []HistoryDay) ([]contracts.Bar, error) {
	bars := make([]contracts.Bar, 0, len(days))
	for _, d := range days {
		date, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d.Date, err)
		}
		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, nil
}

package strategyconfig

import (
	"strings"

	"github.com/wonny/creditgate/pkg/config"
)

// ApplyEnv overlays deployment settings from the environment onto the
// strategy's screener section and revalidates. Env tickers replace the
// strategy watchlist only when set.
func (c *Config) ApplyEnv(sc config.ScreenConfig) error {
	if sc.MarketSymbol != "" {
		c.Screener.MarketSymbol = strings.ToUpper(sc.MarketSymbol)
	}
	if sc.VolatilitySymbol != "" {
		c.Screener.VolatilitySymbol = strings.ToUpper(sc.VolatilitySymbol)
	}
	if sc.LookbackDays > 0 {
		c.Screener.LookbackDays = sc.LookbackDays
	}
	if sc.Workers > 0 {
		c.Screener.Workers = sc.Workers
	}
	if len(sc.Tickers) > 0 {
		c.Screener.Tickers = append([]string(nil), sc.Tickers...)
	}
	return Validate(c)
}

package tradier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/httputil"
	"github.com/wonny/creditgate/pkg/logger"
)

// ErrUnavailable is returned when no API token is configured
var ErrUnavailable = errors.New("tradier: api token not configured")

const dateLayout = "2006-01-02"

// Client handles communication with the Tradier brokerage API
// ⭐ SSOT: Tradier API calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	enabled    bool
	now        func() time.Time
}

// NewClient creates a new Tradier client. The token and JSON accept header
// are installed on httpClient.
func NewClient(cfg config.TradierConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	if cfg.Enabled() {
		httpClient.
			WithHeader("Authorization", "Bearer "+cfg.APIKey).
			WithHeader("Accept", "application/json")
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "tradier"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		enabled:    cfg.Enabled(),
		now:        time.Now,
	}
}

// Enabled reports whether the client has a token
func (c *Client) Enabled() bool {
	return c.enabled
}

// get performs a GET on a v1 path and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	return c.getURL(ctx, c.baseURL+path, params, dest)
}

// getBeta performs a GET on a beta path (fundamentals live outside /v1)
func (c *Client) getBeta(ctx context.Context, path string, params url.Values, dest interface{}) error {
	return c.getURL(ctx, strings.TrimSuffix(c.baseURL, "/v1")+"/beta"+path, params, dest)
}

func (c *Client) getURL(ctx context.Context, fullURL string, params url.Values, dest interface{}) error {
	if !c.enabled {
		return ErrUnavailable
	}
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	if err := c.httpClient.GetJSON(ctx, fullURL, dest); err != nil {
		return fmt.Errorf("tradier request failed: %w", err)
	}
	return nil
}

// GetQuote fetches the current quote for symbol, nil when the symbol is unknown
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var resp quotesResponse
	if err := c.get(ctx, "/markets/quotes", url.Values{"symbols": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if resp.Quotes == nil || len(resp.Quotes.Quote) == 0 {
		return nil, nil
	}
	q := resp.Quotes.Quote[0]
	return &q, nil
}

// GetExpirations lists option expiration dates for symbol, oldest first
func (c *Client) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	var resp expirationsResponse
	if err := c.get(ctx, "/markets/options/expirations", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if resp.Expirations == nil {
		return nil, nil
	}

	dates := make([]time.Time, 0, len(resp.Expirations.Date))
	for _, s := range resp.Expirations.Date {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parse expiration %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// GetChain fetches the option chain with greeks for one expiration
func (c *Client) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]Option, error) {
	params := url.Values{
		"symbol":     {symbol},
		"expiration": {expiration.Format(dateLayout)},
		"greeks":     {"true"},
	}

	var resp chainResponse
	if err := c.get(ctx, "/markets/options/chains", params, &resp); err != nil {
		return nil, err
	}
	if resp.Options == nil {
		return nil, nil
	}
	return resp.Options.Option, nil
}

// GetCorporateCalendar fetches corporate calendar events for symbol
func (c *Client) GetCorporateCalendar(ctx context.Context, symbol string) ([]CalendarEvent, error) {
	var resp []calendarResponse
	if err := c.getBeta(ctx, "/markets/fundamentals/calendars", url.Values{"symbols": {symbol}}, &resp); err != nil {
		return nil, err
	}

	var events []CalendarEvent
	for _, r := range resp {
		for _, res := range r.Results {
			events = append(events, res.Tables.CorporateCalendars...)
		}
	}
	return events, nil
}

// Ping checks that the API answers a quote request
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetQuote(ctx, "SPY")
	return err
}

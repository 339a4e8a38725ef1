// Package poloniex fetches spot tickers from the Poloniex public REST API.
package poloniex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// DefaultBaseURL is the public Poloniex API root.
const DefaultBaseURL = "https://api.poloniex.com"

// DefaultMinTradeCount keeps only markets with more than this many trades in
// the last 24h.
const DefaultMinTradeCount = 20

// ClientConfig holds the parameters for the Poloniex ticker client.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	MinTradeCount     int64
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
}

// Client is a domain.TickerProvider for Poloniex.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	minTradeCount int64
	logger        *slog.Logger
}

// New creates a Poloniex client. A zero MinTradeCount keeps every market;
// config defaults supply DefaultMinTradeCount.
func New(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		minTradeCount: cfg.MinTradeCount,
		logger:        cfg.Logger.With(slog.String("component", "poloniex_client")),
	}
}

// Exchange returns domain.ExchangePoloniex.
func (c *Client) Exchange() domain.Exchange { return domain.ExchangePoloniex }

// FetchTickers returns every market with more than MinTradeCount trades in
// the last 24h. Malformed symbols are skipped.
func (c *Client) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	body, err := c.doGet(ctx, "/markets/ticker24h")
	if err != nil {
		return nil, fmt.Errorf("poloniex: get tickers: %w", err)
	}

	var raw []APITicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("poloniex: decode tickers: %w", err)
	}

	tickers := make([]domain.Ticker, 0, len(raw))
	skipped := 0
	for _, a := range raw {
		if a.TradeCount <= c.minTradeCount {
			continue
		}
		t, ok := a.ToDomainTicker()
		if !ok {
			skipped++
			continue
		}
		tickers = append(tickers, t)
	}
	if skipped > 0 {
		c.logger.Debug("skipped malformed tickers", slog.Int("count", skipped))
	}
	return tickers, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, body)
	}
}

var _ domain.TickerProvider = (*Client)(nil)

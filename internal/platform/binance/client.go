// Package binance fetches spot tickers from the Binance REST API.
package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// DefaultBaseURL is the public Binance spot API root.
const DefaultBaseURL = "https://api.binance.com"

const statusTrading = "TRADING"

// ClientConfig holds the parameters for the Binance ticker client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// MinTradeCount drops symbols with fewer 24h trades.
	MinTradeCount     int64
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
}

// Client is a domain.TickerProvider backed by the go-binance spot client.
type Client struct {
	api           *gobinance.Client
	limiter       *rate.Limiter
	minTradeCount int64
	logger        *slog.Logger
}

// New creates a Binance ticker client. Keys are not needed for public market
// data.
func New(cfg ClientConfig) *Client {
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

	api := gobinance.NewClient("", "")
	api.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.BaseURL != "" {
		api.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api:           api,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		minTradeCount: cfg.MinTradeCount,
		logger:        cfg.Logger.With(slog.String("component", "binance_client")),
	}
}

// Exchange returns domain.ExchangeBinance.
func (c *Client) Exchange() domain.Exchange { return domain.ExchangeBinance }

// FetchTickers joins the symbols currently TRADING with their 24h bid and
// ask. Symbols without 24h stats, or with fewer trades than the configured
// minimum, are left out.
func (c *Client) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("binance: rate limit: %w", err)
	}
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("binance: rate limit: %w", err)
	}
	stats, err := c.api.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: 24hr stats: %w", err)
	}

	bySymbol := make(map[string]*gobinance.PriceChangeStats, len(stats))
	for _, s := range stats {
		if s == nil || s.Count < c.minTradeCount {
			continue
		}
		bySymbol[s.Symbol] = s
	}

	tickers := make([]domain.Ticker, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != statusTrading {
			continue
		}
		st, ok := bySymbol[sym.Symbol]
		if !ok {
			continue
		}
		bid, err := decimal.NewFromString(st.BidPrice)
		if err != nil {
			c.logger.Debug("skipping symbol with bad bid", slog.String("symbol", sym.Symbol), slog.String("bid", st.BidPrice))
			continue
		}
		ask, err := decimal.NewFromString(st.AskPrice)
		if err != nil {
			c.logger.Debug("skipping symbol with bad ask", slog.String("symbol", sym.Symbol), slog.String("ask", st.AskPrice))
			continue
		}
		tickers = append(tickers, domain.Ticker{
			Symbol:     sym.Symbol,
			Base:       domain.NewCoin(sym.BaseAsset),
			Quote:      domain.NewCoin(sym.QuoteAsset),
			Bid:        bid,
			Ask:        ask,
			Exchange:   domain.ExchangeBinance,
			TradeCount: st.Count,
		})
	}
	return tickers, nil
}

var _ domain.TickerProvider = (*Client)(nil)

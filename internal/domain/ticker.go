package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange tags the venue a ticker was fetched from.
type Exchange string

const (
	ExchangeBinance  Exchange = "binance"
	ExchangePoloniex Exchange = "poloniex"
)

func (e Exchange) String() string { return string(e) }

// Ticker is a live top-of-book quote for one symbol. A single fetch only ever
// returns tickers from one exchange.
type Ticker struct {
	Symbol     string          `json:"symbol"`
	Base       Coin            `json:"base"`
	Quote      Coin            `json:"quote"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Exchange   Exchange        `json:"exchange"`
	TradeCount int64           `json:"trade_count"`
}

// Pair returns the ticker's (base, quote) pair.
func (t Ticker) Pair() Pair {
	return Pair{Base: t.Base, Quote: t.Quote}
}

// TickerProvider fetches the current ticker list from one exchange.
type TickerProvider interface {
	Exchange() Exchange
	FetchTickers(ctx context.Context) ([]Ticker, error)
}

package poloniex

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// APITicker is one entry of the /markets/ticker24h response. Only the fields
// the detector needs are decoded.
type APITicker struct {
	Symbol     string `json:"symbol"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	TradeCount int64  `json:"tradeCount"`
	Timestamp  int64  `json:"ts"`
}

// ToDomainTicker converts the DTO. It reports false when the symbol is not
// of the form BASE_QUOTE or a price does not parse.
func (a APITicker) ToDomainTicker() (domain.Ticker, bool) {
	base, quote, ok := strings.Cut(a.Symbol, "_")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "_") {
		return domain.Ticker{}, false
	}
	bid, err := decimal.NewFromString(a.Bid)
	if err != nil {
		return domain.Ticker{}, false
	}
	ask, err := decimal.NewFromString(a.Ask)
	if err != nil {
		return domain.Ticker{}, false
	}
	return domain.Ticker{
		Symbol:     strings.ToUpper(a.Symbol),
		Base:       domain.NewCoin(base),
		Quote:      domain.NewCoin(quote),
		Bid:        bid,
		Ask:        ask,
		Exchange:   domain.ExchangePoloniex,
		TradeCount: a.TradeCount,
	}, true
}

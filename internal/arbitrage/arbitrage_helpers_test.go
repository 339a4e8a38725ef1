package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func coin(name string) domain.Coin { return domain.NewCoin(name) }

func pair(base, quote string) domain.Pair { return domain.NewPair(base, quote) }

// ticker builds a ticker spelled the way ex spells its symbols.
func ticker(t *testing.T, ex domain.Exchange, base, quote, bid, ask string) domain.Ticker {
	t.Helper()
	p := pair(base, quote)
	sym := p.Symbol()
	if ex == domain.ExchangePoloniex {
		sym = p.String()
	}
	return domain.Ticker{
		Symbol:   sym,
		Base:     p.Base,
		Quote:    p.Quote,
		Bid:      dec(t, bid),
		Ask:      dec(t, ask),
		Exchange: ex,
	}
}

// poloniexTriangle quotes BTC_USDT, ETH_BTC and ETH_USDT.
func poloniexTriangle(t *testing.T) []domain.Ticker {
	return []domain.Ticker{
		ticker(t, domain.ExchangePoloniex, "BTC", "USDT", "100", "101"),
		ticker(t, domain.ExchangePoloniex, "ETH", "BTC", "0.05", "0.051"),
		ticker(t, domain.ExchangePoloniex, "ETH", "USDT", "5.9", "6"),
	}
}

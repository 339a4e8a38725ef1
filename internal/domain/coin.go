package domain

import "strings"

// Coin is a tradable asset identified solely by its ticker name. Coins are
// comparable values, so two independently built coins with the same name are
// equal and hash to the same map key.
type Coin struct {
	Name string `json:"Name"`
}

// NewCoin normalises name (trimmed, upper-case) and returns the Coin.
func NewCoin(name string) Coin {
	return Coin{Name: strings.ToUpper(strings.TrimSpace(name))}
}

func (c Coin) String() string { return c.Name }

// IsZero reports whether the coin has no name.
func (c Coin) IsZero() bool { return c.Name == "" }

// Pair is an ordered (base, quote) coin tuple. The base is priced in units of
// the quote.
type Pair struct {
	Base  Coin `json:"BaseCoin"`
	Quote Coin `json:"QuoteCoin"`
}

// NewPair builds a Pair from two coin names.
func NewPair(base, quote string) Pair {
	return Pair{Base: NewCoin(base), Quote: NewCoin(quote)}
}

// String renders the pair in delimiter-joined form, e.g. "BTC_USDT".
func (p Pair) String() string {
	return p.Base.Name + "_" + p.Quote.Name
}

// Symbol renders the pair in concatenated form, e.g. "BTCUSDT".
func (p Pair) Symbol() string {
	return p.Base.Name + p.Quote.Name
}

// Reverse returns the pair with base and quote swapped.
func (p Pair) Reverse() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

package arbitrage

import "github.com/alanyoungcy/triarb/internal/domain"

// Snapshot is one fetched ticker list, indexed by symbol and bound to the
// cohort detected for it. It is read-only once built and safe to share
// between goroutines.
type Snapshot struct {
	tickers  []domain.Ticker
	bySymbol map[string]domain.Ticker
	cohort   Cohort
}

// NewSnapshot indexes tickers by symbol (the first occurrence of a symbol
// wins) and selects the snapshot's cohort from reg.
func NewSnapshot(tickers []domain.Ticker, reg *Registry) *Snapshot {
	idx := make(map[string]domain.Ticker, len(tickers))
	for _, t := range tickers {
		if _, dup := idx[t.Symbol]; dup {
			continue
		}
		idx[t.Symbol] = t
	}
	return &Snapshot{
		tickers:  tickers,
		bySymbol: idx,
		cohort:   reg.Detect(tickers),
	}
}

// Cohort returns the cohort every cycle on this snapshot resolves under.
func (s *Snapshot) Cohort() Cohort { return s.cohort }

// Len returns the number of tickers.
func (s *Snapshot) Len() int { return len(s.tickers) }

// Tickers returns the underlying ticker list.
func (s *Snapshot) Tickers() []domain.Ticker { return s.tickers }

// Has reports whether symbol is quoted.
func (s *Snapshot) Has(symbol string) bool {
	_, ok := s.bySymbol[symbol]
	return ok
}

// Rates returns the bid and ask quoted for symbol. Unknown symbols yield zero
// rates and false.
func (s *Snapshot) Rates(symbol string) (domain.Rates, bool) {
	t, ok := s.bySymbol[symbol]
	if !ok {
		return domain.Rates{}, false
	}
	return domain.Rates{Bid: t.Bid, Ask: t.Ask}, true
}

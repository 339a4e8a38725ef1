package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// Registry holds cohorts in registration order plus a default used when no
// ticker in a snapshot matches a registered exchange. Register before the
// registry is shared; lookups are read-only.
type Registry struct {
	cohorts  []Cohort
	fallback Cohort
}

// NewRegistry returns a registry whose default cohort is fallback.
func NewRegistry(fallback Cohort) *Registry {
	return &Registry{fallback: fallback}
}

// DefaultRegistry registers Binance ahead of Poloniex and falls back to
// Poloniex, using the given taker fees.
func DefaultRegistry(binanceFee, poloniexFee decimal.Decimal) *Registry {
	polo := NewPoloniexCohort(poloniexFee)
	r := NewRegistry(polo)
	r.Register(NewBinanceCohort(binanceFee))
	r.Register(polo)
	return r
}

// Register appends c. Cohorts registered earlier win detection ties.
func (r *Registry) Register(c Cohort) {
	for i, existing := range r.cohorts {
		if existing.Exchange() == c.Exchange() {
			r.cohorts[i] = c
			return
		}
	}
	r.cohorts = append(r.cohorts, c)
}

// Get returns the cohort for exchange, or an error if none is registered.
func (r *Registry) Get(exchange domain.Exchange) (Cohort, error) {
	for _, c := range r.cohorts {
		if c.Exchange() == exchange {
			return c, nil
		}
	}
	return nil, fmt.Errorf("arbitrage: cohort %q not registered", exchange)
}

// Detect picks the cohort for a whole snapshot: the first registered cohort
// whose exchange tags any ticker, else the default.
func (r *Registry) Detect(tickers []domain.Ticker) Cohort {
	seen := make(map[domain.Exchange]bool, 2)
	for _, t := range tickers {
		seen[t.Exchange] = true
	}
	for _, c := range r.cohorts {
		if seen[c.Exchange()] {
			return c
		}
	}
	return r.fallback
}

package arbitrage

import "github.com/alanyoungcy/triarb/internal/domain"

// Leg is one resolved conversion of a cycle.
type Leg struct {
	Pair      domain.Pair
	Symbol    string
	Direction domain.Direction
	Rates     domain.Rates
	// Priced is false when the snapshot had no ticker for Symbol, in which
	// case Rates is zero.
	Priced bool
}

// TriangularCycle is a scheme resolved against exactly one snapshot. Its legs
// are fixed at construction.
type TriangularCycle struct {
	scheme domain.Scheme
	cohort Cohort
	legs   [3]Leg
}

// NewTriangularCycle resolves every leg of scheme against snap.
func NewTriangularCycle(snap *Snapshot, scheme domain.Scheme) *TriangularCycle {
	c := &TriangularCycle{scheme: scheme, cohort: snap.Cohort()}
	for i, p := range scheme {
		c.legs[i] = resolveLeg(snap, p)
	}
	return c
}

// resolveLeg quotes p as-is when the cohort's spelling of p is listed and
// otherwise falls back to the reversed pair. Rates default to zero when the
// resolved symbol is not listed either.
func resolveLeg(snap *Snapshot, p domain.Pair) Leg {
	leg := Leg{Pair: p}
	cohort := snap.Cohort()
	if sym := cohort.Symbol(p); snap.Has(sym) {
		leg.Symbol = sym
		leg.Direction = domain.LeftToRight
	} else {
		leg.Symbol = cohort.Symbol(p.Reverse())
		leg.Direction = domain.RightToLeft
	}
	leg.Rates, leg.Priced = snap.Rates(leg.Symbol)
	return leg
}

// Scheme returns the coin pairs the cycle was resolved from.
func (c *TriangularCycle) Scheme() domain.Scheme { return c.scheme }

// Cohort returns the cohort of the snapshot the legs were resolved against.
func (c *TriangularCycle) Cohort() Cohort { return c.cohort }

// Legs returns a copy of the resolved legs in trading order.
func (c *TriangularCycle) Legs() [3]Leg { return c.legs }

// Priced reports whether all three legs found a ticker.
func (c *TriangularCycle) Priced() bool {
	return c.legs[0].Priced && c.legs[1].Priced && c.legs[2].Priced
}

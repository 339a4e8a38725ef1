package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// divisionPrecision is the number of fractional digits kept by divisions.
const divisionPrecision = 28

var (
	one = decimal.NewFromInt(1)

	// DefaultBinanceTakerFee is 0.1%.
	DefaultBinanceTakerFee = decimal.RequireFromString("0.001")
	// DefaultPoloniexTakerFee is 0.2%.
	DefaultPoloniexTakerFee = decimal.RequireFromString("0.002")
)

// Cohort is the symbol-spelling and fee convention of one exchange. Every
// leg of a cycle is resolved and converted under the same cohort.
type Cohort interface {
	Exchange() domain.Exchange
	// Symbol renders p the way the exchange spells it in its tickers.
	Symbol(p domain.Pair) string
	TakerFee() decimal.Decimal
	// Convert trades amount through one leg and returns the amount received
	// and the fee charged.
	Convert(amount decimal.Decimal, dir domain.Direction, r domain.Rates) (ending, fee decimal.Decimal, err error)
}

// BinanceCohort charges the taker fee on the input amount before converting.
type BinanceCohort struct {
	fee decimal.Decimal
}

// NewBinanceCohort returns a BinanceCohort charging fee (a fraction, e.g.
// 0.001 for 0.1%).
func NewBinanceCohort(fee decimal.Decimal) *BinanceCohort {
	return &BinanceCohort{fee: fee}
}

func (c *BinanceCohort) Exchange() domain.Exchange { return domain.ExchangeBinance }
func (c *BinanceCohort) Symbol(p domain.Pair) string { return p.Symbol() }
func (c *BinanceCohort) TakerFee() decimal.Decimal { return c.fee }

// Convert applies
//
//	after  = amount × (1 − fee)
//	ending = after × bid   (LeftToRight)
//	ending = after / ask   (RightToLeft)
//
// and reports amount − after as the fee.
func (c *BinanceCohort) Convert(amount decimal.Decimal, dir domain.Direction, r domain.Rates) (decimal.Decimal, decimal.Decimal, error) {
	after := amount.Mul(one.Sub(c.fee))
	var ending decimal.Decimal
	switch dir {
	case domain.LeftToRight:
		ending = after.Mul(r.Bid)
	case domain.RightToLeft:
		if r.Ask.IsZero() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("binance: zero ask: %w", domain.ErrRateUnavailable)
		}
		ending = after.DivRound(r.Ask, divisionPrecision)
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("binance: unknown direction %q", string(dir))
	}
	return ending, amount.Sub(after), nil
}

// PoloniexCohort charges the taker fee on the converted amount.
type PoloniexCohort struct {
	fee decimal.Decimal
}

// NewPoloniexCohort returns a PoloniexCohort charging fee (a fraction, e.g.
// 0.002 for 0.2%).
func NewPoloniexCohort(fee decimal.Decimal) *PoloniexCohort {
	return &PoloniexCohort{fee: fee}
}

func (c *PoloniexCohort) Exchange() domain.Exchange { return domain.ExchangePoloniex }
func (c *PoloniexCohort) Symbol(p domain.Pair) string { return p.String() }
func (c *PoloniexCohort) TakerFee() decimal.Decimal { return c.fee }

// Convert applies
//
//	raw    = amount × ask       (LeftToRight)
//	raw    = amount × (1/bid)   (RightToLeft)
//	ending = raw × (1 − fee)
//
// and reports raw − ending as the fee.
func (c *PoloniexCohort) Convert(amount decimal.Decimal, dir domain.Direction, r domain.Rates) (decimal.Decimal, decimal.Decimal, error) {
	var raw decimal.Decimal
	switch dir {
	case domain.LeftToRight:
		raw = amount.Mul(r.Ask)
	case domain.RightToLeft:
		if r.Bid.IsZero() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("poloniex: zero bid: %w", domain.ErrRateUnavailable)
		}
		raw = amount.Mul(one.DivRound(r.Bid, divisionPrecision))
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("poloniex: unknown direction %q", string(dir))
	}
	ending := raw.Mul(one.Sub(c.fee))
	return ending, raw.Sub(ending), nil
}

var (
	_ Cohort = (*BinanceCohort)(nil)
	_ Cohort = (*PoloniexCohort)(nil)
)

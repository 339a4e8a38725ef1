package arbitrage

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// Simulate converts start through the three legs of cycle in order, feeding
// each leg's ending amount into the next. A leg without a ticker makes the
// whole cycle fail with domain.ErrRateUnavailable.
func Simulate(cycle *TriangularCycle, start decimal.Decimal) (domain.TriangularTrade, error) {
	cohort := cycle.Cohort()
	trade := domain.TriangularTrade{
		Exchange:       cohort.Exchange(),
		Scheme:         cycle.Scheme(),
		StartingAmount: start,
	}

	amount := start
	for i, leg := range cycle.Legs() {
		if !leg.Priced {
			return domain.TriangularTrade{}, fmt.Errorf("arbitrage: leg %d %s: %w", i+1, leg.Symbol, domain.ErrRateUnavailable)
		}
		ending, fee, err := cohort.Convert(amount, leg.Direction, leg.Rates)
		if err != nil {
			return domain.TriangularTrade{}, fmt.Errorf("arbitrage: leg %d %s: %w", i+1, leg.Symbol, err)
		}
		trade.Records[i] = domain.TradingRecord{
			Pair:           leg.Pair,
			Symbol:         leg.Symbol,
			Bid:            leg.Rates.Bid,
			Ask:            leg.Rates.Ask,
			Direction:      leg.Direction,
			StartingCoin:   leg.Pair.Base,
			StartingAmount: amount,
			EndingCoin:     leg.Pair.Quote,
			EndingAmount:   ending,
			Fee:            fee,
		}
		amount = ending
	}

	trade.FinalAmount = amount
	trade.Profit = amount.Sub(start)
	trade.IsProfitable = amount.GreaterThan(start)
	return trade, nil
}

// RankProfitable keeps the profitable trades and orders them by final amount,
// highest first. Ties keep their input order.
func RankProfitable(trades []domain.TriangularTrade) []domain.TriangularTrade {
	out := make([]domain.TriangularTrade, 0, len(trades))
	for _, t := range trades {
		if t.IsProfitable {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalAmount.GreaterThan(out[j].FinalAmount)
	})
	return out
}

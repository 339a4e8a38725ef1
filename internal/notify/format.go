package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// FormatTrade renders a trade as one line per leg plus a result line:
//
//	1. USDT -> BTC via BTCUSDT (right-to-left): 17.68 -> 0.00042
//	...
//	17.68 USDT -> 17.74 USDT (+0.06, 33.9 bps)
func FormatTrade(t domain.TriangularTrade) string {
	var b strings.Builder
	for i, r := range t.Records {
		fmt.Fprintf(&b, "%d. %s -> %s via %s (%s): %s -> %s\n",
			i+1, r.StartingCoin, r.EndingCoin, r.Symbol, r.Direction,
			r.StartingAmount.Round(8), r.EndingAmount.Round(8))
	}
	start := t.Scheme[0].Base
	fmt.Fprintf(&b, "%s %s -> %s %s (%s%s, %s bps)",
		t.StartingAmount.Round(8), start, t.FinalAmount.Round(8), start,
		sign(t.Profit.IsNegative()), t.Profit.Abs().Round(8), t.ProfitBps().Round(1))
	return b.String()
}

func sign(negative bool) string {
	if negative {
		return "-"
	}
	return "+"
}

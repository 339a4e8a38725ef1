package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side a leg is traded on relative to the quoted symbol.
type Direction string

const (
	// LeftToRight means the leg's pair is quoted as-is (base to quote).
	LeftToRight Direction = "LEFT_TO_RIGHT"
	// RightToLeft means only the reversed pair is quoted.
	RightToLeft Direction = "RIGHT_TO_LEFT"
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "left-to-right"
	case RightToLeft:
		return "right-to-left"
	default:
		return "unknown"
	}
}

// Rates holds the bid and ask used to convert one leg.
type Rates struct {
	Bid decimal.Decimal `json:"bid"`
	Ask decimal.Decimal `json:"ask"`
}

// Scheme is an abstract triangular cycle: three pairs that close a loop.
type Scheme [3]Pair

// Closed reports whether each leg's quote is the next leg's base and the last
// leg returns to the first leg's base.
func (s Scheme) Closed() bool {
	return s[0].Quote == s[1].Base &&
		s[1].Quote == s[2].Base &&
		s[2].Quote == s[0].Base
}

// Key renders the visiting order, e.g. "BTC>ETH>USDT".
func (s Scheme) Key() string {
	return s[0].Base.Name + ">" + s[1].Base.Name + ">" + s[2].Base.Name
}

// TradingRecord is the simulated outcome of a single leg.
type TradingRecord struct {
	Pair           Pair            `json:"pair"`
	Symbol         string          `json:"symbol"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	Direction      Direction       `json:"direction"`
	StartingCoin   Coin            `json:"starting_coin"`
	StartingAmount decimal.Decimal `json:"starting_amount"`
	EndingCoin     Coin            `json:"ending_coin"`
	EndingAmount   decimal.Decimal `json:"ending_amount"`
	Fee            decimal.Decimal `json:"fee"`
}

// TriangularTrade is the simulated outcome of a whole cycle.
type TriangularTrade struct {
	ID             string           `json:"id"`
	ReportID       string           `json:"report_id,omitempty"`
	Exchange       Exchange         `json:"exchange"`
	Scheme         Scheme           `json:"scheme"`
	Records        [3]TradingRecord `json:"records"`
	StartingAmount decimal.Decimal  `json:"starting_amount"`
	FinalAmount    decimal.Decimal  `json:"final_amount"`
	Profit         decimal.Decimal  `json:"profit"`
	IsProfitable   bool             `json:"is_profitable"`
	DetectedAt     time.Time        `json:"detected_at"`
}

var tenThousand = decimal.NewFromInt(10_000)

// ProfitBps returns the profit relative to the starting amount in basis
// points. It returns zero when the starting amount is zero.
func (t TriangularTrade) ProfitBps() decimal.Decimal {
	if t.StartingAmount.IsZero() {
		return decimal.Zero
	}
	return t.Profit.Mul(tenThousand).DivRound(t.StartingAmount, 4)
}

// PassReport summarises one detection pass.
type PassReport struct {
	ID         string            `json:"id"`
	Exchange   Exchange          `json:"exchange"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Tickers    int               `json:"tickers"`
	Schemes    int               `json:"schemes"`
	Evaluated  int               `json:"evaluated"`
	Unpriced   int               `json:"unpriced"`
	Profitable []TriangularTrade `json:"profitable"`
}

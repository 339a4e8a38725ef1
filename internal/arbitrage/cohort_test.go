package arbitrage

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/triarb/internal/domain"
)

func TestCohortConvert(t *testing.T) {
	binance := NewBinanceCohort(DefaultBinanceTakerFee)
	poloniex := NewPoloniexCohort(DefaultPoloniexTakerFee)

	tests := []struct {
		name       string
		cohort     Cohort
		dir        domain.Direction
		bid, ask   string
		wantEnding string
		wantFee    string
	}{
		{"binance left to right uses bid", binance, domain.LeftToRight, "2", "3", "199.8", "0.1"},
		{"binance right to left divides by ask", binance, domain.RightToLeft, "3", "4", "24.975", "0.1"},
		{"poloniex left to right uses ask", poloniex, domain.LeftToRight, "1", "1.02", "101.796", "0.204"},
		{"poloniex right to left inverts bid", poloniex, domain.RightToLeft, "4", "5", "24.95", "0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := domain.Rates{Bid: dec(t, tt.bid), Ask: dec(t, tt.ask)}
			ending, fee, err := tt.cohort.Convert(dec(t, "100"), tt.dir, r)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if !ending.Equal(dec(t, tt.wantEnding)) {
				t.Errorf("ending = %s, want %s", ending, tt.wantEnding)
			}
			if !fee.Equal(dec(t, tt.wantFee)) {
				t.Errorf("fee = %s, want %s", fee, tt.wantFee)
			}
		})
	}
}

func TestCohortsDisagreeOnSameInput(t *testing.T) {
	r := domain.Rates{Bid: dec(t, "2"), Ask: dec(t, "2")}
	fee := dec(t, "0.001")
	b, _, err := NewBinanceCohort(fee).Convert(dec(t, "10"), domain.RightToLeft, r)
	if err != nil {
		t.Fatal(err)
	}
	p, _, err := NewPoloniexCohort(fee).Convert(dec(t, "10"), domain.RightToLeft, r)
	if err != nil {
		t.Fatal(err)
	}
	// Fee order does not matter when the leg only divides by one rate.
	if !b.Equal(p) {
		t.Errorf("binance %s != poloniex %s for symmetric rates", b, p)
	}

	r = domain.Rates{Bid: dec(t, "2"), Ask: dec(t, "3")}
	b, _, _ = NewBinanceCohort(fee).Convert(dec(t, "10"), domain.LeftToRight, r)
	p, _, _ = NewPoloniexCohort(fee).Convert(dec(t, "10"), domain.LeftToRight, r)
	if b.Equal(p) {
		t.Errorf("left to right should quote bid on binance and ask on poloniex, both gave %s", b)
	}
}

func TestCohortConvertZeroDivisor(t *testing.T) {
	zero := domain.Rates{}
	if _, _, err := NewBinanceCohort(DefaultBinanceTakerFee).Convert(dec(t, "1"), domain.RightToLeft, zero); !errors.Is(err, domain.ErrRateUnavailable) {
		t.Errorf("binance zero ask err = %v, want ErrRateUnavailable", err)
	}
	if _, _, err := NewPoloniexCohort(DefaultPoloniexTakerFee).Convert(dec(t, "1"), domain.RightToLeft, zero); !errors.Is(err, domain.ErrRateUnavailable) {
		t.Errorf("poloniex zero bid err = %v, want ErrRateUnavailable", err)
	}
	if _, _, err := NewBinanceCohort(DefaultBinanceTakerFee).Convert(dec(t, "1"), domain.Direction("SIDEWAYS"), zero); err == nil {
		t.Error("unknown direction accepted")
	}
}

func TestCohortSymbol(t *testing.T) {
	p := pair("eth", "btc")
	if got := NewBinanceCohort(DefaultBinanceTakerFee).Symbol(p); got != "ETHBTC" {
		t.Errorf("binance symbol = %q", got)
	}
	if got := NewPoloniexCohort(DefaultPoloniexTakerFee).Symbol(p); got != "ETH_BTC" {
		t.Errorf("poloniex symbol = %q", got)
	}
}

func TestRegistryDetect(t *testing.T) {
	reg := DefaultRegistry(DefaultBinanceTakerFee, DefaultPoloniexTakerFee)

	tests := []struct {
		name    string
		tickers []domain.Ticker
		want    domain.Exchange
	}{
		{"empty falls back to poloniex", nil, domain.ExchangePoloniex},
		{"binance tickers", []domain.Ticker{ticker(t, domain.ExchangeBinance, "BTC", "USDT", "1", "1")}, domain.ExchangeBinance},
		{"poloniex tickers", poloniexTriangle(t), domain.ExchangePoloniex},
		{"untagged falls back", []domain.Ticker{{Symbol: "BTCUSDT"}}, domain.ExchangePoloniex},
		{
			"binance wins a mixed list",
			append(poloniexTriangle(t), ticker(t, domain.ExchangeBinance, "BTC", "USDT", "1", "1")),
			domain.ExchangeBinance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Detect(tt.tickers).Exchange(); got != tt.want {
				t.Errorf("Detect = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := reg.Get(domain.Exchange("kraken")); err == nil {
		t.Error("Get(kraken) succeeded")
	}
	reg.Register(NewBinanceCohort(dec(t, "0.0005")))
	c, err := reg.Get(domain.ExchangeBinance)
	if err != nil {
		t.Fatal(err)
	}
	if !c.TakerFee().Equal(dec(t, "0.0005")) {
		t.Errorf("re-registered fee = %s", c.TakerFee())
	}
}

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestPassCompleted(t *testing.T) {
	m := New()
	report := domain.PassReport{
		Exchange: domain.ExchangePoloniex,
		Duration: 250 * time.Millisecond,
		Tickers:  12,
		Schemes:  30,
		Unpriced: 4,
		Profitable: []domain.TriangularTrade{{
			StartingAmount: decimal.NewFromInt(100),
			Profit:         decimal.NewFromInt(2),
			IsProfitable:   true,
		}},
	}
	m.PassCompleted(report)
	m.PassCompleted(report)

	out := scrape(t, m)
	for _, want := range []string{
		`triarb_passes_total{exchange="poloniex"} 2`,
		`triarb_tickers{exchange="poloniex"} 12`,
		`triarb_schemes{exchange="poloniex"} 30`,
		`triarb_unpriced_cycles{exchange="poloniex"} 4`,
		`triarb_profitable_trades_total{exchange="poloniex"} 2`,
		`triarb_best_profit_bps{exchange="poloniex"} 200`,
		`triarb_pass_duration_seconds_count{exchange="poloniex"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestFetchCompletedCountsErrors(t *testing.T) {
	m := New()
	m.FetchCompleted(domain.ExchangeBinance, 10, time.Second, nil)
	m.FetchCompleted(domain.ExchangeBinance, 0, time.Second, errors.New("timeout"))

	out := scrape(t, m)
	if !strings.Contains(out, `triarb_ticker_fetch_errors_total{exchange="binance"} 1`) {
		t.Errorf("fetch error counter not exported:\n%s", out)
	}
	if !strings.Contains(out, `triarb_ticker_fetch_seconds_count{exchange="binance"} 2`) {
		t.Errorf("fetch latency histogram not exported")
	}
}

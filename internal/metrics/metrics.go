// Package metrics exposes detector telemetry in the Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/triarb/internal/domain"
)

const namespace = "triarb"

// Metrics owns a private registry and the detector's collectors. It
// implements arbitrage.Observer.
type Metrics struct {
	reg *prometheus.Registry

	passes        *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	tickers       *prometheus.GaugeVec
	schemes       *prometheus.GaugeVec
	unpriced      *prometheus.GaugeVec
	profitable    *prometheus.CounterVec
	bestProfitBps *prometheus.GaugeVec
	fetchLatency  *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "passes_total", Help: "Completed detection passes",
		}, []string{"exchange"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pass_duration_seconds", Help: "Wall time of a detection pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"exchange"}),
		tickers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tickers", Help: "Tickers in the last resolved snapshot",
		}, []string{"exchange"}),
		schemes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "schemes", Help: "Schemes evaluated in the last pass",
		}, []string{"exchange"}),
		unpriced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "unpriced_cycles", Help: "Cycles skipped in the last pass for a missing rate",
		}, []string{"exchange"}),
		profitable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "profitable_trades_total", Help: "Profitable cycles found",
		}, []string{"exchange"}),
		bestProfitBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "best_profit_bps", Help: "Profit of the best cycle in the last pass",
		}, []string{"exchange"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ticker_fetch_seconds", Help: "Ticker fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"exchange"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticker_fetch_errors_total", Help: "Failed ticker fetches",
		}, []string{"exchange"}),
	}
	m.reg.MustRegister(
		m.passes, m.passDuration, m.tickers, m.schemes, m.unpriced,
		m.profitable, m.bestProfitBps, m.fetchLatency, m.fetchErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) FetchCompleted(exchange domain.Exchange, _ int, elapsed time.Duration, err error) {
	ex := exchange.String()
	m.fetchLatency.WithLabelValues(ex).Observe(elapsed.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(ex).Inc()
	}
}

func (m *Metrics) PassCompleted(report domain.PassReport) {
	ex := report.Exchange.String()
	m.passes.WithLabelValues(ex).Inc()
	m.passDuration.WithLabelValues(ex).Observe(report.Duration.Seconds())
	m.tickers.WithLabelValues(ex).Set(float64(report.Tickers))
	m.schemes.WithLabelValues(ex).Set(float64(report.Schemes))
	m.unpriced.WithLabelValues(ex).Set(float64(report.Unpriced))
	m.profitable.WithLabelValues(ex).Add(float64(len(report.Profitable)))

	best := 0.0
	if len(report.Profitable) > 0 {
		best = report.Profitable[0].ProfitBps().InexactFloat64()
	}
	m.bestProfitBps.WithLabelValues(ex).Set(best)
}

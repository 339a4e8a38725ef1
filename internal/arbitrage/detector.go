package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// DefaultStartingAmount is the notional simulated through every cycle when
// none is configured.
var DefaultStartingAmount = decimal.RequireFromString("17.68")

// Observer receives pass telemetry. It may be nil.
type Observer interface {
	FetchCompleted(exchange domain.Exchange, tickers int, elapsed time.Duration, err error)
	PassCompleted(report domain.PassReport)
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	Provider domain.TickerProvider
	// Schemes persists enumerated cycles. When nil every pass enumerates.
	Schemes        domain.SchemeStore
	Cohorts        *Registry
	StartingAmount decimal.Decimal
	// FirstRun makes the next pass enumerate cycles from the graph instead
	// of loading them from Schemes.
	FirstRun     bool
	FetchTimeout time.Duration
	Workers      int
	// ReuseTickers lets an enumerating pass resolve cycles against the
	// snapshot it enumerated from instead of fetching again.
	ReuseTickers bool
	Metrics      Observer
	Logger       *slog.Logger
}

// Detector runs detection passes: fetch tickers, build the graph, enumerate or
// reload schemes, resolve them against a fresh snapshot, simulate every cycle
// in parallel and rank the profitable ones.
type Detector struct {
	provider     domain.TickerProvider
	schemes      domain.SchemeStore
	cohorts      *Registry
	start        decimal.Decimal
	fetchTimeout time.Duration
	workers      int
	reuse        bool
	observer     Observer
	logger       *slog.Logger

	mu       sync.Mutex
	firstRun bool
}

// NewDetector creates a Detector from cfg, filling defaults for zero fields.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.Cohorts == nil {
		cfg.Cohorts = DefaultRegistry(DefaultBinanceTakerFee, DefaultPoloniexTakerFee)
	}
	if cfg.StartingAmount.IsZero() {
		cfg.StartingAmount = DefaultStartingAmount
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Detector{
		provider:     cfg.Provider,
		schemes:      cfg.Schemes,
		cohorts:      cfg.Cohorts,
		start:        cfg.StartingAmount,
		fetchTimeout: cfg.FetchTimeout,
		workers:      cfg.Workers,
		reuse:        cfg.ReuseTickers,
		observer:     cfg.Metrics,
		logger:       cfg.Logger.With(slog.String("component", "triarb_detector")),
		firstRun:     cfg.FirstRun || cfg.Schemes == nil,
	}
}

// Exchange returns the exchange the detector's provider fetches from.
func (d *Detector) Exchange() domain.Exchange { return d.provider.Exchange() }

// Tickers fetches the current tickers under the fetch timeout. A failed
// fetch is logged and reported as an empty list.
func (d *Detector) Tickers(ctx context.Context) []domain.Ticker {
	fetchCtx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	defer cancel()

	started := time.Now()
	tickers, err := d.provider.FetchTickers(fetchCtx)
	if d.observer != nil {
		d.observer.FetchCompleted(d.provider.Exchange(), len(tickers), time.Since(started), err)
	}
	if err != nil {
		d.logger.WarnContext(ctx, "ticker fetch failed, continuing with no data",
			slog.String("exchange", d.provider.Exchange().String()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(tickers) == 0 {
		d.logger.InfoContext(ctx, "ticker fetch returned no data",
			slog.String("exchange", d.provider.Exchange().String()),
		)
	}
	return tickers
}

// DetectSchemes builds the coin graph from a fresh fetch and enumerates every
// closed three-coin cycle.
func (d *Detector) DetectSchemes(ctx context.Context) ([]domain.Scheme, error) {
	schemes, _, err := d.detect(ctx)
	return schemes, err
}

func (d *Detector) detect(ctx context.Context) ([]domain.Scheme, []domain.Ticker, error) {
	tickers := d.Tickers(ctx)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	g := BuildGraph(tickers)
	schemes := EnumerateCycles(g)
	d.logger.DebugContext(ctx, "schemes enumerated",
		slog.Int("coins", g.Len()),
		slog.Int("schemes", len(schemes)),
	)
	return schemes, tickers, nil
}

// WriteSchemes enumerates schemes and persists them, returning how many were
// written. An empty enumeration leaves the store untouched and fails with
// domain.ErrNoTickers when the fetch returned nothing, domain.ErrNoSchemes
// otherwise.
func (d *Detector) WriteSchemes(ctx context.Context) (int, error) {
	if d.schemes == nil {
		return 0, errors.New("triarb detector: no scheme store configured")
	}
	schemes, tickers, err := d.detect(ctx)
	if err != nil {
		return 0, err
	}
	if len(schemes) == 0 {
		cause := domain.ErrNoSchemes
		if len(tickers) == 0 {
			cause = domain.ErrNoTickers
		}
		return 0, fmt.Errorf("triarb detector: nothing enumerated, store left untouched: %w", cause)
	}
	if err := d.schemes.Save(ctx, schemes); err != nil {
		return 0, fmt.Errorf("triarb detector: save schemes: %w", err)
	}
	d.logger.InfoContext(ctx, "schemes written", slog.Int("schemes", len(schemes)))
	return len(schemes), nil
}

// cycleSet is the resolved input of one pass.
type cycleSet struct {
	cycles  []*TriangularCycle
	tickers int
}

// Cycles enumerates or reloads schemes and resolves each one against a
// single ticker snapshot.
func (d *Detector) Cycles(ctx context.Context) ([]*TriangularCycle, error) {
	set, err := d.cycles(ctx)
	if err != nil {
		return nil, err
	}
	return set.cycles, nil
}

func (d *Detector) cycles(ctx context.Context) (*cycleSet, error) {
	var (
		schemes []domain.Scheme
		tickers []domain.Ticker
		fresh   bool
	)

	enumerate := d.enumerating()
	if !enumerate {
		var err error
		schemes, err = d.schemes.Load(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			d.logger.InfoContext(ctx, "no stored schemes, enumerating")
			enumerate = true
		case err != nil:
			return nil, fmt.Errorf("triarb detector: load schemes: %w", err)
		}
	}
	if enumerate {
		var err error
		schemes, tickers, err = d.detect(ctx)
		if err != nil {
			return nil, err
		}
		fresh = d.reuse
		d.persist(ctx, schemes)
	}

	if !fresh {
		tickers = d.Tickers(ctx)
	}

	snap := NewSnapshot(tickers, d.cohorts)
	cycles := make([]*TriangularCycle, len(schemes))
	for i, s := range schemes {
		cycles[i] = NewTriangularCycle(snap, s)
	}
	return &cycleSet{cycles: cycles, tickers: snap.Len()}, nil
}

// ForceEnumerate makes the next pass rebuild schemes from the graph instead
// of reloading them.
func (d *Detector) ForceEnumerate() {
	d.mu.Lock()
	d.firstRun = true
	d.mu.Unlock()
}

func (d *Detector) enumerating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firstRun
}

// persist saves freshly enumerated schemes so later passes can reload them.
// An empty enumeration is not persisted.
func (d *Detector) persist(ctx context.Context, schemes []domain.Scheme) {
	if d.schemes == nil || len(schemes) == 0 {
		return
	}
	if err := d.schemes.Save(ctx, schemes); err != nil {
		d.logger.WarnContext(ctx, "persist schemes failed, will enumerate again next pass",
			slog.String("error", err.Error()),
		)
		return
	}
	d.mu.Lock()
	d.firstRun = false
	d.mu.Unlock()
}

// evaluation is the merged outcome of simulating every cycle of a pass.
type evaluation struct {
	trades   []domain.TriangularTrade
	unpriced int
	cycles   int
	tickers  int
}

// ExecuteTrades simulates every cycle and returns all priced trades in cycle
// order.
func (d *Detector) ExecuteTrades(ctx context.Context) ([]domain.TriangularTrade, error) {
	ev, err := d.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return ev.trades, nil
}

func (d *Detector) evaluate(ctx context.Context) (*evaluation, error) {
	set, err := d.cycles(ctx)
	if err != nil {
		return nil, err
	}

	type result struct {
		trade domain.TriangularTrade
		err   error
	}
	results := make([]result, len(set.cycles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, c := range set.cycles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := Simulate(c, d.start)
			results[i] = result{trade: tr, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ev := &evaluation{
		trades:  make([]domain.TriangularTrade, 0, len(results)),
		cycles:  len(set.cycles),
		tickers: set.tickers,
	}
	for i, r := range results {
		if r.err != nil {
			ev.unpriced++
			if !errors.Is(r.err, domain.ErrRateUnavailable) {
				d.logger.WarnContext(ctx, "cycle simulation failed",
					slog.String("scheme", set.cycles[i].Scheme().Key()),
					slog.String("error", r.err.Error()),
				)
			}
			continue
		}
		r.trade.ID = uuid.New().String()
		r.trade.DetectedAt = now
		ev.trades = append(ev.trades, r.trade)
	}
	return ev, nil
}

// Profitables returns the profitable trades of a pass, highest final amount
// first.
func (d *Detector) Profitables(ctx context.Context) ([]domain.TriangularTrade, error) {
	report, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return report.Profitable, nil
}

// Run executes one full pass and summarises it.
func (d *Detector) Run(ctx context.Context) (domain.PassReport, error) {
	started := time.Now().UTC()
	ev, err := d.evaluate(ctx)
	if err != nil {
		return domain.PassReport{}, err
	}

	reportID := uuid.New().String()
	for i := range ev.trades {
		ev.trades[i].ReportID = reportID
	}
	report := domain.PassReport{
		ID:         reportID,
		Exchange:   d.provider.Exchange(),
		StartedAt:  started,
		Duration:   time.Since(started),
		Tickers:    ev.tickers,
		Schemes:    ev.cycles,
		Evaluated:  len(ev.trades),
		Unpriced:   ev.unpriced,
		Profitable: RankProfitable(ev.trades),
	}
	if d.observer != nil {
		d.observer.PassCompleted(report)
	}

	d.logger.InfoContext(ctx, "pass complete",
		slog.String("pass_id", report.ID),
		slog.Int("tickers", report.Tickers),
		slog.Int("schemes", report.Schemes),
		slog.Int("evaluated", report.Evaluated),
		slog.Int("unpriced", report.Unpriced),
		slog.Int("profitable", len(report.Profitable)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

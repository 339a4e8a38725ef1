package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triarb/internal/arbitrage"
	"github.com/alanyoungcy/triarb/internal/domain"
	"github.com/alanyoungcy/triarb/internal/notify"
	"github.com/alanyoungcy/triarb/internal/server"
	"github.com/alanyoungcy/triarb/internal/server/handler"
	"github.com/alanyoungcy/triarb/internal/server/ws"
	"github.com/alanyoungcy/triarb/internal/service"
)

const shutdownTimeout = 10 * time.Second

// newDetector fails when no cohort is registered for the provider's
// exchange.
func (a *App) newDetector(deps *Dependencies) (*arbitrage.Detector, error) {
	d := a.cfg.Detector
	cohorts := arbitrage.DefaultRegistry(d.BinanceTakerFee, d.PoloniexTakerFee)
	if _, err := cohorts.Get(deps.Provider.Exchange()); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	dc := arbitrage.DetectorConfig{
		Provider:       deps.Provider,
		Schemes:        deps.Schemes,
		Cohorts:        cohorts,
		StartingAmount: d.StartingAmount,
		FirstRun:       d.FirstRun,
		FetchTimeout:   d.FetchTimeout.Duration,
		Workers:        d.Workers,
		ReuseTickers:   d.ReuseTickers,
		Logger:         a.logger,
	}
	if deps.Metrics != nil {
		dc.Metrics = deps.Metrics
	}
	return arbitrage.NewDetector(dc), nil
}

func (a *App) newArbService(deps *Dependencies) *service.ArbService {
	return service.NewArbService(service.ArbDeps{
		Trades:   deps.Trades,
		Reports:  deps.Reports,
		Bus:      deps.Bus,
		Archiver: deps.Archiver,
		Notifier: deps.Notifier,
	}, service.ArbConfig{
		MinProfitBps: a.cfg.Detector.MinProfitBps,
		TopN:         a.cfg.Detector.TopN,
	}, a.logger)
}

// ScanMode runs a single pass, logs the best cycles and records the report.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	det, err := a.newDetector(deps)
	if err != nil {
		return err
	}
	arb := a.newArbService(deps)

	report, err := det.Run(ctx)
	if err != nil {
		a.notifyFailure(ctx, deps, err)
		return fmt.Errorf("app: scan: %w", err)
	}
	a.logTop(ctx, report)

	if err := arb.Record(ctx, report); err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	return nil
}

// EnumerateMode rebuilds the scheme list from a fresh snapshot and persists
// it.
func (a *App) EnumerateMode(ctx context.Context, deps *Dependencies) error {
	det, err := a.newDetector(deps)
	if err != nil {
		return err
	}
	n, err := det.WriteSchemes(ctx)
	if err != nil {
		return fmt.Errorf("app: enumerate: %w", err)
	}
	if deps.Notifier.Enabled() {
		msg := fmt.Sprintf("%d schemes written for %s", n, deps.Exchange)
		if err := deps.Notifier.Notify(ctx, notify.EventSchemesWritten, "Schemes written", msg); err != nil {
			a.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// WatchMode runs a pass every detector interval, or sooner when POST
// /api/scan asks for one. The HTTP server and WebSocket hub run alongside
// when enabled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	det, err := a.newDetector(deps)
	if err != nil {
		return err
	}
	arb := a.newArbService(deps)
	trigger := make(chan struct{}, 1)

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		var hub *ws.Hub
		if deps.Bus != nil {
			hub = ws.NewHub(deps.Bus, ws.Config{Mode: "watch", Exchange: deps.Exchange}, a.logger)
			g.Go(func() error { return hub.Run(ctx) })
		}
		srv := a.newServer(deps, arb, trigger, hub)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.watchLoop(ctx, det, arb, deps, trigger)
	})

	return g.Wait()
}

func (a *App) watchLoop(ctx context.Context, det *arbitrage.Detector, arb *service.ArbService, deps *Dependencies, trigger <-chan struct{}) error {
	ticker := time.NewTicker(a.cfg.Detector.Interval.Duration)
	defer ticker.Stop()

	for {
		a.runPass(ctx, det, arb, deps)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-trigger:
		}
	}
}

// runPass runs and records one pass. Failures are logged and announced; the
// next pass retries.
func (a *App) runPass(ctx context.Context, det *arbitrage.Detector, arb *service.ArbService, deps *Dependencies) {
	report, err := det.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.ErrorContext(ctx, "pass failed", slog.String("error", err.Error()))
		a.notifyFailure(ctx, deps, err)
		return
	}
	a.logTop(ctx, report)
	if err := arb.Record(ctx, report); err != nil {
		a.logger.WarnContext(ctx, "record pass failed", slog.String("error", err.Error()))
	}
}

func (a *App) newServer(deps *Dependencies, arb *service.ArbService, trigger chan<- struct{}, hub *ws.Hub) *server.Server {
	h := server.Handlers{
		Health: handler.NewHealthHandler(deps.Health, a.logger),
		Status: handler.NewStatusHandler("watch", deps.Exchange, arb),
		Trades: handler.NewTradeHandler(arb, a.logger),
		Scan:   handler.NewScanHandler(trigger, a.logger),
		Hub:    hub,
	}
	if deps.Metrics != nil {
		h.Metrics = deps.Metrics.Handler()
	}
	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		MetricsPath: a.cfg.Metrics.Path,
	}, h, deps.RateLimiter, a.logger)
}

// logTop logs the best profitable cycles of report, up to detector.top_n.
func (a *App) logTop(ctx context.Context, report domain.PassReport) {
	top := report.Profitable
	if n := a.cfg.Detector.TopN; n > 0 && len(top) > n {
		top = top[:n]
	}
	for i, t := range top {
		a.logger.InfoContext(ctx, "profitable cycle",
			slog.Int("rank", i+1),
			slog.String("route", t.Scheme.Key()),
			slog.String("start", t.StartingAmount.String()),
			slog.String("final", t.FinalAmount.String()),
			slog.String("profit_bps", t.ProfitBps().StringFixed(2)),
		)
	}
}

func (a *App) notifyFailure(ctx context.Context, deps *Dependencies, cause error) {
	if !deps.Notifier.Enabled() || errors.Is(cause, context.Canceled) {
		return
	}
	if err := deps.Notifier.Notify(ctx, notify.EventPassFailed, "Detection pass failed", cause.Error()); err != nil {
		a.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}
}

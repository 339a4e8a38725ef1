package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/triarb/internal/domain"
	"github.com/alanyoungcy/triarb/internal/notify"
)

// ErrArchiveDisabled is returned by archive reads when no archiver is
// configured. It matches domain.ErrNotFound.
var ErrArchiveDisabled = fmt.Errorf("report archive disabled: %w", domain.ErrNotFound)

// ArbConfig holds the reporting thresholds.
type ArbConfig struct {
	// MinProfitBps gates which profitable trades are announced.
	MinProfitBps decimal.Decimal
	// TopN caps announcements per pass. Zero announces every qualifying trade.
	TopN int
}

// ArbDeps are the optional sinks a report is recorded to. Nil fields are
// skipped.
type ArbDeps struct {
	Trades   domain.TradeStore
	Reports  domain.ReportStore
	Bus      domain.SignalBus
	Archiver domain.ReportArchiver
	Notifier *notify.Notifier
}

// ArbService records pass reports: it persists profitable trades, publishes
// them on the bus, archives the pass and announces the best trades.
type ArbService struct {
	deps   ArbDeps
	cfg    ArbConfig
	logger *slog.Logger

	mu     sync.RWMutex
	latest *domain.PassReport
}

func NewArbService(deps ArbDeps, cfg ArbConfig, logger *slog.Logger) *ArbService {
	return &ArbService{deps: deps, cfg: cfg, logger: logger}
}

// Evaluate reports whether t is profitable by at least MinProfitBps.
func (s *ArbService) Evaluate(t domain.TriangularTrade) bool {
	return t.IsProfitable && t.ProfitBps().GreaterThanOrEqual(s.cfg.MinProfitBps)
}

// Record stores report in every configured sink. Only storage failures are
// returned; bus, archive and notification failures are logged.
func (s *ArbService) Record(ctx context.Context, report domain.PassReport) error {
	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()

	var errs []error
	if s.deps.Trades != nil && len(report.Profitable) > 0 {
		if err := s.deps.Trades.InsertBatch(ctx, report.Profitable); err != nil {
			errs = append(errs, fmt.Errorf("arb_service: insert trades: %w", err))
		}
	}
	if s.deps.Reports != nil {
		if err := s.deps.Reports.InsertReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("arb_service: insert report: %w", err))
		}
	}

	s.publish(ctx, report)
	s.archive(ctx, report)
	s.announce(ctx, report)

	return errors.Join(errs...)
}

func (s *ArbService) publish(ctx context.Context, report domain.PassReport) {
	if s.deps.Bus == nil {
		return
	}
	for _, t := range report.Profitable {
		payload, err := json.Marshal(t)
		if err != nil {
			continue
		}
		if err := s.deps.Bus.Publish(ctx, domain.ChannelTrades, payload); err != nil {
			s.logger.WarnContext(ctx, "arb_service: publish trade failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
			break
		}
	}

	summary := report
	summary.Profitable = nil
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.deps.Bus.StreamAppend(ctx, domain.StreamReports, payload); err != nil {
		s.logger.WarnContext(ctx, "arb_service: append report failed",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ArbService) archive(ctx context.Context, report domain.PassReport) {
	if s.deps.Archiver == nil {
		return
	}
	path, err := s.deps.Archiver.ArchiveReport(ctx, report)
	if err != nil {
		s.logger.WarnContext(ctx, "arb_service: archive report failed",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.DebugContext(ctx, "arb_service: report archived", slog.String("path", path))
}

func (s *ArbService) announce(ctx context.Context, report domain.PassReport) {
	if !s.deps.Notifier.Enabled() {
		return
	}
	sent := 0
	for _, t := range report.Profitable {
		if s.cfg.TopN > 0 && sent >= s.cfg.TopN {
			break
		}
		if !s.Evaluate(t) {
			continue
		}
		if err := s.deps.Notifier.NotifyTrade(ctx, t); err != nil {
			s.logger.WarnContext(ctx, "arb_service: notify failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
		sent++
	}
}

// Latest returns the most recently recorded report.
func (s *ArbService) Latest() (domain.PassReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.PassReport{}, false
	}
	return *s.latest, true
}

// ListRecent returns recent profitable trades from the trade store, or from
// the latest report when no store is configured.
func (s *ArbService) ListRecent(ctx context.Context, limit int) ([]domain.TriangularTrade, error) {
	if s.deps.Trades != nil {
		trades, err := s.deps.Trades.ListRecent(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("arb_service: list recent: %w", err)
		}
		return trades, nil
	}
	latest, ok := s.Latest()
	if !ok {
		return nil, nil
	}
	trades := latest.Profitable
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

// ListReports returns recent pass summaries, newest first. Without a report
// store it reads the report stream on the bus, and without a bus it returns
// the latest report held in memory.
func (s *ArbService) ListReports(ctx context.Context, limit int) ([]domain.PassReport, error) {
	if s.deps.Reports != nil {
		reports, err := s.deps.Reports.ListReports(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("arb_service: list reports: %w", err)
		}
		return reports, nil
	}
	if s.deps.Bus != nil {
		reports, err := s.streamReports(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("arb_service: read report stream: %w", err)
		}
		return reports, nil
	}
	latest, ok := s.Latest()
	if !ok {
		return nil, nil
	}
	latest.Profitable = nil
	return []domain.PassReport{latest}, nil
}

const reportStreamPage = 500

// streamReports pages through domain.StreamReports keeping the newest limit
// summaries. The stream is trimmed on append, so the walk is bounded.
func (s *ArbService) streamReports(ctx context.Context, limit int) ([]domain.PassReport, error) {
	var (
		window []domain.PassReport
		lastID = "0"
	)
	for {
		msgs, err := s.deps.Bus.StreamRead(ctx, domain.StreamReports, lastID, reportStreamPage)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			var r domain.PassReport
			if err := json.Unmarshal(m.Payload, &r); err != nil {
				s.logger.DebugContext(ctx, "arb_service: skipping undecodable report entry",
					slog.String("entry_id", m.ID),
				)
				continue
			}
			window = append(window, r)
			if limit > 0 && len(window) > limit {
				window = window[1:]
			}
		}
		if len(msgs) < reportStreamPage {
			break
		}
		lastID = msgs[len(msgs)-1].ID
	}
	slices.Reverse(window)
	return window, nil
}

// ListArchive lists the archived pass objects of exchange for the UTC day
// containing day.
func (s *ArbService) ListArchive(ctx context.Context, exchange domain.Exchange, day time.Time) ([]domain.BlobInfo, error) {
	if s.deps.Archiver == nil {
		return nil, fmt.Errorf("arb_service: list archive: %w", ErrArchiveDisabled)
	}
	objects, err := s.deps.Archiver.ListArchived(ctx, exchange, day)
	if err != nil {
		return nil, fmt.Errorf("arb_service: list archive: %w", err)
	}
	return objects, nil
}

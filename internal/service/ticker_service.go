package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// TickerService is a domain.TickerProvider that serves snapshots from the
// ticker cache while they are fresh and refills it from the exchange
// otherwise. Cache failures never fail a fetch.
type TickerService struct {
	provider domain.TickerProvider
	cache    domain.TickerCache
	ttl      time.Duration
	logger   *slog.Logger
}

func NewTickerService(p domain.TickerProvider, cache domain.TickerCache, ttl time.Duration, logger *slog.Logger) *TickerService {
	return &TickerService{provider: p, cache: cache, ttl: ttl, logger: logger}
}

func (s *TickerService) Exchange() domain.Exchange { return s.provider.Exchange() }

// FetchTickers returns the cached snapshot when one exists, otherwise
// fetches and caches a new one.
func (s *TickerService) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	ex := s.provider.Exchange()
	if s.cache != nil && s.ttl > 0 {
		cached, err := s.cache.GetTickers(ctx, ex)
		switch {
		case err == nil && len(cached) > 0:
			s.logger.DebugContext(ctx, "ticker_service: cache hit",
				slog.String("exchange", ex.String()),
				slog.Int("tickers", len(cached)),
			)
			return cached, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "ticker_service: cache read failed",
				slog.String("exchange", ex.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	tickers, err := s.provider.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 && len(tickers) > 0 {
		if err := s.cache.SetTickers(ctx, ex, tickers, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "ticker_service: cache write failed",
				slog.String("exchange", ex.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return tickers, nil
}

var _ domain.TickerProvider = (*TickerService)(nil)

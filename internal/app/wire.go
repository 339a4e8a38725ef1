package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/triarb/internal/blob/s3"
	"github.com/alanyoungcy/triarb/internal/cache/redis"
	"github.com/alanyoungcy/triarb/internal/config"
	"github.com/alanyoungcy/triarb/internal/domain"
	"github.com/alanyoungcy/triarb/internal/metrics"
	"github.com/alanyoungcy/triarb/internal/notify"
	"github.com/alanyoungcy/triarb/internal/platform/binance"
	"github.com/alanyoungcy/triarb/internal/platform/poloniex"
	"github.com/alanyoungcy/triarb/internal/scheme"
	"github.com/alanyoungcy/triarb/internal/server/handler"
	"github.com/alanyoungcy/triarb/internal/service"
	"github.com/alanyoungcy/triarb/internal/store/postgres"
)

// Dependencies bundles what the run modes need. Optional backends that are
// disabled in config are left nil.
type Dependencies struct {
	Exchange domain.Exchange
	Provider domain.TickerProvider
	Schemes  domain.SchemeStore

	// Postgres
	Trades  domain.TradeStore
	Reports domain.ReportStore

	// Redis
	TickerCache domain.TickerCache
	Locks       domain.LockManager
	Bus         domain.SignalBus
	RateLimiter domain.RateLimiter

	// S3
	Archiver domain.ReportArchiver

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
	Health   map[string]handler.Pinger
}

// Wire builds every configured backend and returns them with a cleanup
// function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	deps := &Dependencies{
		Exchange: domain.Exchange(strings.ToLower(cfg.Exchange.Name)),
		Health:   map[string]handler.Pinger{},
	}

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail("postgres migrations", err)
			}
		}
		deps.Trades = postgres.NewTradeStore(pg.Pool())
		deps.Reports = postgres.NewReportStore(pg.Pool())
		deps.Health["postgres"] = pg.Ping
	}

	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MaxRetries:   cfg.Redis.MaxRetries,
			TLSEnabled:   cfg.Redis.TLSEnabled,
			StreamMaxLen: cfg.Redis.StreamMaxLen,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.TickerCache = redis.NewTickerCache(rc)
		deps.Locks = redis.NewLockManager(rc)
		deps.Bus = redis.NewSignalBus(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.Health["redis"] = rc.Ping
	}

	var (
		blobWriter domain.BlobWriter
		blobReader domain.BlobReader
	)
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		blobWriter = s3blob.NewWriter(sc)
		blobReader = s3blob.NewReader(sc)
		deps.Archiver = s3blob.NewReportArchiver(blobWriter, blobReader, cfg.S3.ReportPrefix)
		deps.Health["s3"] = sc.Health
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return fail("provider", err)
	}
	deps.Provider = provider
	if deps.TickerCache != nil && cfg.Redis.TickerTTL.Duration > 0 {
		deps.Provider = service.NewTickerService(provider, deps.TickerCache, cfg.Redis.TickerTTL.Duration, logger)
	}

	var schemes domain.SchemeStore
	switch strings.ToLower(cfg.Scheme.Backend) {
	case "s3":
		if blobWriter == nil {
			return fail("scheme store", errors.New("backend s3 needs s3.enabled"))
		}
		schemes = scheme.NewBlobStore(blobWriter, blobReader, cfg.Scheme.Key)
	default:
		schemes = scheme.NewFileStore(cfg.Scheme.Path)
	}
	if deps.Locks != nil {
		schemes = scheme.NewLockedStore(schemes, deps.Locks, scheme.LockKey(deps.Exchange), cfg.Scheme.LockTTL.Duration)
	}
	deps.Schemes = schemes

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}

	return deps, cleanup, nil
}

func newProvider(cfg *config.Config, logger *slog.Logger) (domain.TickerProvider, error) {
	ex := cfg.Exchange
	switch strings.ToLower(ex.Name) {
	case "binance":
		return binance.New(binance.ClientConfig{
			BaseURL:           ex.BinanceBaseURL,
			Timeout:           ex.HTTPTimeout.Duration,
			MinTradeCount:     ex.MinTradeCountBinance,
			RequestsPerSecond: ex.RequestsPerSecond,
			Burst:             ex.Burst,
			Logger:            logger,
		}), nil
	case "poloniex":
		return poloniex.New(poloniex.ClientConfig{
			BaseURL:           ex.PoloniexBaseURL,
			Timeout:           ex.HTTPTimeout.Duration,
			MinTradeCount:     ex.MinTradeCountPoloniex,
			RequestsPerSecond: ex.RequestsPerSecond,
			Burst:             ex.Burst,
			Logger:            logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", ex.Name)
	}
}

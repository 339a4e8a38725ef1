// Package config defines the triarb configuration, its defaults and
// validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration. It is decoded from TOML over Defaults()
// and then overridden by TRIARB_* environment variables.
type Config struct {
	Mode      string `toml:"mode"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	// LogOutput is stdout, stderr or a file path. Files are rotated.
	LogOutput string `toml:"log_output"`

	Log      LogConfig      `toml:"log"`
	Exchange ExchangeConfig `toml:"exchange"`
	Detector DetectorConfig `toml:"detector"`
	Scheme   SchemeConfig   `toml:"scheme"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// LogConfig controls rotation when LogOutput is a file.
type LogConfig struct {
	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxAgeDays int  `toml:"max_age_days"`
	MaxBackups int  `toml:"max_backups"`
	Compress   bool `toml:"compress"`
}

// ExchangeConfig selects the ticker source.
type ExchangeConfig struct {
	Name                  string   `toml:"name"`
	BinanceBaseURL        string   `toml:"binance_base_url"`
	PoloniexBaseURL       string   `toml:"poloniex_base_url"`
	MinTradeCountBinance  int64    `toml:"min_trade_count_binance"`
	MinTradeCountPoloniex int64    `toml:"min_trade_count_poloniex"`
	RequestsPerSecond     float64  `toml:"requests_per_second"`
	Burst                 int      `toml:"burst"`
	HTTPTimeout           duration `toml:"http_timeout"`
}

// DetectorConfig tunes detection passes and reporting.
type DetectorConfig struct {
	StartingAmount decimal.Decimal `toml:"starting_amount"`
	// FirstRun enumerates schemes on the first pass instead of loading them.
	FirstRun         bool            `toml:"first_run"`
	FetchTimeout     duration        `toml:"fetch_timeout"`
	Workers          int             `toml:"workers"`
	ReuseTickers     bool            `toml:"reuse_tickers"`
	Interval         duration        `toml:"interval"`
	BinanceTakerFee  decimal.Decimal `toml:"binance_taker_fee"`
	PoloniexTakerFee decimal.Decimal `toml:"poloniex_taker_fee"`
	MinProfitBps     decimal.Decimal `toml:"min_profit_bps"`
	TopN             int             `toml:"top_n"`
}

// SchemeConfig says where enumerated schemes are persisted.
type SchemeConfig struct {
	Backend string   `toml:"backend"`
	Path    string   `toml:"path"`
	Key     string   `toml:"key"`
	LockTTL duration `toml:"lock_ttl"`
}

// PostgresConfig holds the connection parameters for the trade store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	TickerTTL    duration `toml:"ticker_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	ReportPrefix   string `toml:"report_prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per minute per client IP; it needs Redis.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// duration decodes TOML strings such as "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when a key is absent. They match
// config.example.toml.
func Defaults() Config {
	return Config{
		Mode:      "scan",
		LogLevel:  "info",
		LogFormat: "json",
		LogOutput: "stdout",
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxAgeDays: 14,
			MaxBackups: 5,
			Compress:   true,
		},
		Exchange: ExchangeConfig{
			Name:                  "poloniex",
			BinanceBaseURL:        "https://api.binance.com",
			PoloniexBaseURL:       "https://api.poloniex.com",
			MinTradeCountBinance:  0,
			MinTradeCountPoloniex: 20,
			RequestsPerSecond:     5,
			Burst:                 1,
			HTTPTimeout:           duration{30 * time.Second},
		},
		Detector: DetectorConfig{
			StartingAmount:   decimal.RequireFromString("17.68"),
			FetchTimeout:     duration{30 * time.Second},
			Workers:          8,
			Interval:         duration{time.Minute},
			BinanceTakerFee:  decimal.RequireFromString("0.001"),
			PoloniexTakerFee: decimal.RequireFromString("0.002"),
			MinProfitBps:     decimal.Zero,
			TopN:             10,
		},
		Scheme: SchemeConfig{
			Backend: "file",
			Path:    "triangular.json",
			Key:     "schemes/triangular.json",
			LockTTL: duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "triarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			TickerTTL:    duration{5 * time.Second},
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "triarb",
			ForcePathStyle: true,
			ReportPrefix:   "reports",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var validModes = map[string]bool{
	"scan":      true,
	"enumerate": true,
	"watch":     true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks for invalid or missing values and reports every problem at
// once.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: scan, enumerate, watch)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "text" {
		add("unknown log_format %q (valid: json, text)", c.LogFormat)
	}
	if strings.TrimSpace(c.LogOutput) == "" {
		add("log_output must not be empty")
	}

	switch strings.ToLower(c.Exchange.Name) {
	case "binance", "poloniex":
	default:
		add("exchange: unknown name %q (valid: binance, poloniex)", c.Exchange.Name)
	}
	if c.Exchange.RequestsPerSecond <= 0 {
		add("exchange: requests_per_second must be > 0")
	}
	if c.Exchange.MinTradeCountBinance < 0 || c.Exchange.MinTradeCountPoloniex < 0 {
		add("exchange: min_trade_count values must be >= 0")
	}

	d := c.Detector
	if !d.StartingAmount.IsPositive() {
		add("detector: starting_amount must be > 0, got %s", d.StartingAmount)
	}
	one := decimal.NewFromInt(1)
	if d.BinanceTakerFee.IsNegative() || d.BinanceTakerFee.GreaterThanOrEqual(one) {
		add("detector: binance_taker_fee must be in [0, 1), got %s", d.BinanceTakerFee)
	}
	if d.PoloniexTakerFee.IsNegative() || d.PoloniexTakerFee.GreaterThanOrEqual(one) {
		add("detector: poloniex_taker_fee must be in [0, 1), got %s", d.PoloniexTakerFee)
	}
	if d.Workers < 1 {
		add("detector: workers must be >= 1")
	}
	if d.FetchTimeout.Duration <= 0 {
		add("detector: fetch_timeout must be > 0")
	}
	if strings.EqualFold(c.Mode, "watch") && d.Interval.Duration <= 0 {
		add("detector: interval must be > 0 in watch mode")
	}
	if d.MinProfitBps.IsNegative() {
		add("detector: min_profit_bps must be >= 0")
	}
	if d.TopN < 0 {
		add("detector: top_n must be >= 0")
	}

	switch strings.ToLower(c.Scheme.Backend) {
	case "file":
		if strings.TrimSpace(c.Scheme.Path) == "" {
			add("scheme: path must not be empty for the file backend")
		}
	case "s3":
		if !c.S3.Enabled {
			add("scheme: the s3 backend requires s3.enabled")
		}
		if strings.TrimSpace(c.Scheme.Key) == "" {
			add("scheme: key must not be empty for the s3 backend")
		}
	default:
		add("scheme: unknown backend %q (valid: file, s3)", c.Scheme.Backend)
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimit > 0 && !c.Redis.Enabled {
			add("server: rate_limit requires redis.enabled")
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics: path must start with /, got %q", c.Metrics.Path)
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load decodes the TOML file at path over Defaults(), loads .env when present
// and applies TRIARB_* overrides. An empty path skips the file. The result
// is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides copies set TRIARB_* variables over the decoded values so
// secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "TRIARB_MODE")
	setStr(&cfg.LogLevel, "TRIARB_LOG_LEVEL")
	setStr(&cfg.LogFormat, "TRIARB_LOG_FORMAT")
	setStr(&cfg.LogOutput, "TRIARB_LOG_OUTPUT")

	setStr(&cfg.Exchange.Name, "TRIARB_EXCHANGE_NAME")
	setStr(&cfg.Exchange.BinanceBaseURL, "TRIARB_EXCHANGE_BINANCE_BASE_URL")
	setStr(&cfg.Exchange.PoloniexBaseURL, "TRIARB_EXCHANGE_POLONIEX_BASE_URL")
	setInt64(&cfg.Exchange.MinTradeCountBinance, "TRIARB_EXCHANGE_MIN_TRADE_COUNT_BINANCE")
	setInt64(&cfg.Exchange.MinTradeCountPoloniex, "TRIARB_EXCHANGE_MIN_TRADE_COUNT_POLONIEX")
	setFloat64(&cfg.Exchange.RequestsPerSecond, "TRIARB_EXCHANGE_REQUESTS_PER_SECOND")
	setDuration(&cfg.Exchange.HTTPTimeout, "TRIARB_EXCHANGE_HTTP_TIMEOUT")

	setDecimal(&cfg.Detector.StartingAmount, "TRIARB_DETECTOR_STARTING_AMOUNT")
	setBool(&cfg.Detector.FirstRun, "TRIARB_DETECTOR_FIRST_RUN")
	setDuration(&cfg.Detector.FetchTimeout, "TRIARB_DETECTOR_FETCH_TIMEOUT")
	setInt(&cfg.Detector.Workers, "TRIARB_DETECTOR_WORKERS")
	setBool(&cfg.Detector.ReuseTickers, "TRIARB_DETECTOR_REUSE_TICKERS")
	setDuration(&cfg.Detector.Interval, "TRIARB_DETECTOR_INTERVAL")
	setDecimal(&cfg.Detector.BinanceTakerFee, "TRIARB_DETECTOR_BINANCE_TAKER_FEE")
	setDecimal(&cfg.Detector.PoloniexTakerFee, "TRIARB_DETECTOR_POLONIEX_TAKER_FEE")
	setDecimal(&cfg.Detector.MinProfitBps, "TRIARB_DETECTOR_MIN_PROFIT_BPS")
	setInt(&cfg.Detector.TopN, "TRIARB_DETECTOR_TOP_N")

	setStr(&cfg.Scheme.Backend, "TRIARB_SCHEME_BACKEND")
	setStr(&cfg.Scheme.Path, "TRIARB_SCHEME_PATH")
	setStr(&cfg.Scheme.Key, "TRIARB_SCHEME_KEY")

	setBool(&cfg.Postgres.Enabled, "TRIARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TRIARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TRIARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRIARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRIARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRIARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRIARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRIARB_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "TRIARB_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "TRIARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRIARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRIARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRIARB_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TRIARB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TickerTTL, "TRIARB_REDIS_TICKER_TTL")

	setBool(&cfg.S3.Enabled, "TRIARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TRIARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRIARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRIARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRIARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRIARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRIARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRIARB_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Server.Enabled, "TRIARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRIARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRIARB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TRIARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "TRIARB_SERVER_RATE_LIMIT")

	setStr(&cfg.Notify.TelegramToken, "TRIARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRIARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRIARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRIARB_NOTIFY_EVENTS")

	setBool(&cfg.Metrics.Enabled, "TRIARB_METRICS_ENABLED")
}

// Typed env helpers. Each leaves dst alone when the variable is unset, empty
// or unparsable.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var cleaned []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}

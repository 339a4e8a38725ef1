package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Detector.StartingAmount.String() != "17.68" {
		t.Errorf("starting amount = %s", cfg.Detector.StartingAmount)
	}
	if cfg.Exchange.MinTradeCountPoloniex != 20 {
		t.Errorf("poloniex min trade count = %d", cfg.Exchange.MinTradeCountPoloniex)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
mode = "watch"
log_level = "debug"

[exchange]
name = "binance"

[detector]
starting_amount = "250.5"
interval = "15s"
binance_taker_fee = "0.00075"
workers = 4

[scheme]
path = "/var/lib/triarb/schemes.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "watch" || cfg.LogLevel != "debug" {
		t.Errorf("mode/log_level = %s/%s", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Exchange.Name != "binance" {
		t.Errorf("exchange = %s", cfg.Exchange.Name)
	}
	if cfg.Detector.StartingAmount.String() != "250.5" {
		t.Errorf("starting amount = %s", cfg.Detector.StartingAmount)
	}
	if cfg.Detector.Interval.Duration != 15*time.Second {
		t.Errorf("interval = %s", cfg.Detector.Interval.Duration)
	}
	if cfg.Detector.BinanceTakerFee.String() != "0.00075" {
		t.Errorf("binance fee = %s", cfg.Detector.BinanceTakerFee)
	}
	if cfg.Detector.PoloniexTakerFee.String() != "0.002" {
		t.Errorf("untouched poloniex fee = %s, want default", cfg.Detector.PoloniexTakerFee)
	}
	if cfg.Detector.Workers != 4 || cfg.Scheme.Path != "/var/lib/triarb/schemes.json" {
		t.Errorf("workers/path = %d/%s", cfg.Detector.Workers, cfg.Scheme.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[detector]\nstarting_amout = \"1\"\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "starting_amout") {
		t.Fatalf("err = %v, want unknown key error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRIARB_MODE", "enumerate")
	t.Setenv("TRIARB_DETECTOR_STARTING_AMOUNT", "42")
	t.Setenv("TRIARB_DETECTOR_INTERVAL", "2m")
	t.Setenv("TRIARB_REDIS_ENABLED", "true")
	t.Setenv("TRIARB_SERVER_CORS_ORIGINS", " https://a.example, ,https://b.example ")
	t.Setenv("TRIARB_DETECTOR_WORKERS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "enumerate" {
		t.Errorf("mode = %s", cfg.Mode)
	}
	if cfg.Detector.StartingAmount.String() != "42" {
		t.Errorf("starting amount = %s", cfg.Detector.StartingAmount)
	}
	if cfg.Detector.Interval.Duration != 2*time.Minute {
		t.Errorf("interval = %s", cfg.Detector.Interval.Duration)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis not enabled")
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("cors origins = %q", got)
	}
	if cfg.Detector.Workers != 8 {
		t.Errorf("unparsable override changed workers to %d", cfg.Detector.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"bad exchange", func(c *Config) { c.Exchange.Name = "kraken" }, "exchange: unknown name"},
		{"zero starting amount", func(c *Config) { c.Detector.StartingAmount = decimal.Zero }, "starting_amount"},
		{"fee of one", func(c *Config) { c.Detector.PoloniexTakerFee = decimal.NewFromInt(1) }, "poloniex_taker_fee"},
		{"no workers", func(c *Config) { c.Detector.Workers = 0 }, "workers"},
		{"watch without interval", func(c *Config) { c.Mode = "watch"; c.Detector.Interval.Duration = 0 }, "interval"},
		{"s3 scheme without s3", func(c *Config) { c.Scheme.Backend = "s3" }, "requires s3.enabled"},
		{"postgres pool", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.PoolMinConns = 20 }, "pool_min_conns"},
		{"rate limit without redis", func(c *Config) { c.Server.Enabled = true; c.Server.RateLimit = 5 }, "rate_limit requires redis"},
		{"telegram half set", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram_chat_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg"
	cfg.S3.SecretKey = "s3"
	cfg.Server.APIKey = "key"
	cfg.Notify.Events = []string{"profitable_trade"}

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != redacted || out.S3.SecretKey != redacted || out.Server.APIKey != redacted {
		t.Errorf("secrets not redacted: %+v", out)
	}
	if out.Redis.Password != "" {
		t.Errorf("empty secret should stay empty, got %q", out.Redis.Password)
	}
	if cfg.Postgres.Password != "pg" {
		t.Error("original config was modified")
	}
	out.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] != "profitable_trade" {
		t.Error("events slice shared with original")
	}
}

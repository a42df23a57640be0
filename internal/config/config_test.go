package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
bybit:
  base_url: "https://api-testnet.bybit.com"
  kline_limit: 300
  retry_delay: 2s

monitor:
  poll_interval: 2m
  concurrency: 10
  throttle: 50ms
  excluded_keywords: ["ALPHA", "MEME"]

analysis:
  bot_status: true
  timeframe: 5m
  min_indicators: 3
  required_indicators: ["rsi", "macd"]
  price_change_threshold: 1.5
  volume_filter: 10000000
  indicators:
    obv: false
    adx: false

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "text"

metrics:
  enabled: true
  addr: ":9100"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Bybit.BaseURL != "https://api-testnet.bybit.com" || cfg.Bybit.KlineLimit != 300 {
		t.Errorf("Unexpected bybit config: %+v", cfg.Bybit)
	}
	if cfg.Bybit.RetryDelay != 2*time.Second {
		t.Errorf("Unexpected retry delay: %v", cfg.Bybit.RetryDelay)
	}
	if cfg.Monitor.PollInterval != 2*time.Minute || cfg.Monitor.Concurrency != 10 || cfg.Monitor.Throttle != 50*time.Millisecond {
		t.Errorf("Unexpected monitor config: %+v", cfg.Monitor)
	}
	if len(cfg.Monitor.ExcludedKeywords) != 2 {
		t.Errorf("Expected 2 excluded keywords, got %v", cfg.Monitor.ExcludedKeywords)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9100" {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	a := cfg.AnalysisDefaults()
	if !a.BotStatus || a.Timeframe != "5m" || a.MinIndicators != 3 || a.PriceChangeThreshold != 1.5 || a.VolumeFilter != 10_000_000 {
		t.Errorf("Unexpected analysis defaults: %+v", a)
	}
	if len(a.RequiredIndicators) != 2 || a.RequiredIndicators[0] != models.IndicatorRSI {
		t.Errorf("Unexpected required indicators: %v", a.RequiredIndicators)
	}
	if a.Enabled(models.IndicatorOBV) || a.Enabled(models.IndicatorADX) {
		t.Error("obv and adx should be disabled")
	}
	if !a.Enabled(models.IndicatorRSI) {
		t.Error("unlisted indicators should stay enabled")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Bybit.BaseURL != "https://api.bybit.com" || cfg.Bybit.Category != "linear" || cfg.Bybit.KlineLimit != 200 {
		t.Errorf("Unexpected bybit defaults: %+v", cfg.Bybit)
	}
	if cfg.Bybit.MaxRetries != 3 || cfg.Bybit.RetryDelay != time.Second {
		t.Errorf("Unexpected retry defaults: %+v", cfg.Bybit)
	}
	if cfg.Monitor.PollInterval != 60*time.Second || cfg.Monitor.Concurrency != 25 ||
		cfg.Monitor.Throttle != 100*time.Millisecond || cfg.Monitor.TickerTTL != 300*time.Second {
		t.Errorf("Unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if len(cfg.Monitor.ExcludedKeywords) != 4 {
		t.Errorf("Unexpected excluded keywords: %v", cfg.Monitor.ExcludedKeywords)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Unexpected log format: %q", cfg.Logging.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	a := cfg.AnalysisDefaults()
	d := models.DefaultAnalysisConfig()
	if a.BotStatus != d.BotStatus || a.MinIndicators != d.MinIndicators || a.Timeframe != d.Timeframe ||
		a.VolumeFilter != d.VolumeFilter || a.PriceChangeThreshold != d.PriceChangeThreshold {
		t.Errorf("analysis defaults = %+v, want %+v", a, d)
	}
	if a.EnabledCount() != len(models.AllIndicators) {
		t.Errorf("enabled count = %d, want all", a.EnabledCount())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PUMPSENTRY_TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("PUMPSENTRY_MONITOR_CONCURRENCY", "7")

	cfg, err := Load(writeConfig(t, "telegram:\n  bot_token: from-file\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("bot token = %q, want from-env", cfg.Telegram.BotToken)
	}
	if cfg.Monitor.Concurrency != 7 {
		t.Errorf("concurrency = %d, want 7", cfg.Monitor.Concurrency)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		Bybit: BybitConfig{
			BaseURL:    "https://api.bybit.com",
			Category:   "linear",
			KlineLimit: 200,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Monitor: MonitorConfig{
			PollInterval: time.Minute,
			Concurrency:  25,
			Throttle:     100 * time.Millisecond,
			TickerTTL:    300 * time.Second,
		},
		Analysis: AnalysisConfig{
			Timeframe:            "1m",
			MinIndicators:        1,
			PriceChangeThreshold: 1.0,
			VolumeFilter:         5_000_000,
		},
		Storage: StorageConfig{
			DBPath: "./data/pumpsentry.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing base url", mutate: func(c *Config) { c.Bybit.BaseURL = "" }, wantErr: true},
		{name: "kline limit too small", mutate: func(c *Config) { c.Bybit.KlineLimit = 20 }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.Bybit.MaxRetries = 0 }, wantErr: true},
		{name: "poll interval too short", mutate: func(c *Config) { c.Monitor.PollInterval = time.Second }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Monitor.Concurrency = 0 }, wantErr: true},
		{name: "negative throttle", mutate: func(c *Config) { c.Monitor.Throttle = -time.Millisecond }, wantErr: true},
		{name: "unsupported timeframe", mutate: func(c *Config) { c.Analysis.Timeframe = "4h" }, wantErr: true},
		{name: "negative min indicators", mutate: func(c *Config) { c.Analysis.MinIndicators = -1 }, wantErr: true},
		{name: "unknown required indicator", mutate: func(c *Config) { c.Analysis.RequiredIndicators = []string{"stoch"} }, wantErr: true},
		{name: "unknown indicator flag", mutate: func(c *Config) { c.Analysis.Indicators = map[string]bool{"stoch": true} }, wantErr: true},
		{name: "missing telegram token when enabled", mutate: func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, ChatID: "1"}
		}, wantErr: true},
		{name: "missing chat id when enabled", mutate: func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, BotToken: "x"}
		}, wantErr: true},
		{name: "telegram disabled without token", mutate: func(c *Config) { c.Telegram = TelegramConfig{} }, wantErr: false},
		{name: "missing db path", mutate: func(c *Config) { c.Storage.DBPath = "" }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "invalid log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "metrics without addr", mutate: func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

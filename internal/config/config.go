package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/pumpsentry/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Bybit    BybitConfig    `mapstructure:"bybit"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// BybitConfig holds Bybit API configuration
type BybitConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Category    string        `mapstructure:"category"`
	QuoteSuffix string        `mapstructure:"quote_suffix"`
	KlineLimit  int           `mapstructure:"kline_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// MonitorConfig holds the polling loop configuration
type MonitorConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	Concurrency      int           `mapstructure:"concurrency"`
	Throttle         time.Duration `mapstructure:"throttle"`
	TickerTTL        time.Duration `mapstructure:"ticker_ttl"`
	ExcludedKeywords []string      `mapstructure:"excluded_keywords"`
}

// AnalysisConfig holds the initial runtime settings written to the settings store on first start.
type AnalysisConfig struct {
	BotStatus            bool            `mapstructure:"bot_status"`
	Timeframe            string          `mapstructure:"timeframe"`
	MinIndicators        int             `mapstructure:"min_indicators"`
	RequiredIndicators   []string        `mapstructure:"required_indicators"`
	PriceChangeThreshold float64         `mapstructure:"price_change_threshold"`
	VolumeFilter         float64         `mapstructure:"volume_filter"`
	Indicators           map[string]bool `mapstructure:"indicators"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken   string        `mapstructure:"bot_token"`
	ChatID     string        `mapstructure:"chat_id"`
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// StorageConfig holds the settings database location
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from file and environment variables.
// Environment variables use the PUMPSENTRY_ prefix with underscores for nesting,
// e.g. PUMPSENTRY_TELEGRAM_BOT_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("PUMPSENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Bybit defaults
	v.SetDefault("bybit.base_url", "https://api.bybit.com")
	v.SetDefault("bybit.category", "linear")
	v.SetDefault("bybit.quote_suffix", "USDT")
	v.SetDefault("bybit.kline_limit", 200)
	v.SetDefault("bybit.timeout", "10s")
	v.SetDefault("bybit.max_retries", 3)
	v.SetDefault("bybit.retry_delay", "1s")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "60s")
	v.SetDefault("monitor.concurrency", 25)
	v.SetDefault("monitor.throttle", "100ms")
	v.SetDefault("monitor.ticker_ttl", "300s")
	v.SetDefault("monitor.excluded_keywords", []string{"ALPHA", "WEB3", "AI", "BOT"})

	// Analysis defaults (seed values for the settings store)
	d := models.DefaultAnalysisConfig()
	v.SetDefault("analysis.bot_status", d.BotStatus)
	v.SetDefault("analysis.timeframe", d.Timeframe)
	v.SetDefault("analysis.min_indicators", d.MinIndicators)
	v.SetDefault("analysis.required_indicators", []string{})
	v.SetDefault("analysis.price_change_threshold", d.PriceChangeThreshold)
	v.SetDefault("analysis.volume_filter", d.VolumeFilter)

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/pumpsentry.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Bybit config
	if c.Bybit.BaseURL == "" {
		return fmt.Errorf("bybit.base_url is required")
	}
	if c.Bybit.Category == "" {
		return fmt.Errorf("bybit.category is required")
	}
	if c.Bybit.KlineLimit < 50 || c.Bybit.KlineLimit > 1000 {
		return fmt.Errorf("bybit.kline_limit must be between 50 and 1000")
	}
	if c.Bybit.Timeout <= 0 {
		return fmt.Errorf("bybit.timeout must be positive")
	}
	if c.Bybit.MaxRetries < 1 {
		return fmt.Errorf("bybit.max_retries must be at least 1")
	}
	if c.Bybit.RetryDelay < 0 {
		return fmt.Errorf("bybit.retry_delay must not be negative")
	}

	// Validate Monitor config
	if c.Monitor.PollInterval < 10*time.Second {
		return fmt.Errorf("monitor.poll_interval must be at least 10 seconds")
	}
	if c.Monitor.Concurrency < 1 {
		return fmt.Errorf("monitor.concurrency must be at least 1")
	}
	if c.Monitor.Throttle < 0 {
		return fmt.Errorf("monitor.throttle must not be negative")
	}
	if c.Monitor.TickerTTL < 0 {
		return fmt.Errorf("monitor.ticker_ttl must not be negative")
	}

	// Validate Analysis config
	if err := c.AnalysisDefaults().Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	for name := range c.Analysis.Indicators {
		if !models.IsKnownIndicator(models.IndicatorName(name)) {
			return fmt.Errorf("analysis.indicators: unknown indicator %q", name)
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}

// AnalysisDefaults converts the analysis section into the runtime settings used to seed the store.
// Indicators not listed in the file stay enabled.
func (c *Config) AnalysisDefaults() models.AnalysisConfig {
	out := models.DefaultAnalysisConfig()
	out.BotStatus = c.Analysis.BotStatus
	out.Timeframe = c.Analysis.Timeframe
	out.MinIndicators = c.Analysis.MinIndicators
	out.PriceChangeThreshold = c.Analysis.PriceChangeThreshold
	out.VolumeFilter = c.Analysis.VolumeFilter
	for _, name := range c.Analysis.RequiredIndicators {
		out.RequiredIndicators = append(out.RequiredIndicators, models.IndicatorName(name))
	}
	for name, enabled := range c.Analysis.Indicators {
		out.Indicators[models.IndicatorName(name)] = enabled
	}
	return out
}

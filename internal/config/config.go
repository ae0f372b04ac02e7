package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"rsiwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Report    ReportConfig    `mapstructure:"report"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// UniverseConfig declares the symbol universe to monitor.
type UniverseConfig struct {
	Symbols        []string `mapstructure:"symbols"`
	File           string   `mapstructure:"file"`
	ExchangePrefix string   `mapstructure:"exchange_prefix"`
}

// FetchConfig captures TradingView scanner connectivity.
type FetchConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Market            string        `mapstructure:"market"`
	Timeframes        []string      `mapstructure:"timeframes"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ScanConfig governs batching, pacing, and retries for a run.
type ScanConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	PerItemDelay    time.Duration `mapstructure:"per_item_delay"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Workers         int           `mapstructure:"workers"`
}

// ReportConfig sets snapshot and HTML emission behaviour.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Title     string `mapstructure:"title"`
	HTML      bool   `mapstructure:"html"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs daemon cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// MetricsConfig exposes the Prometheus listener in daemon mode.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	OversoldBelow   float64        `mapstructure:"oversold_below"`
	OverboughtAbove float64        `mapstructure:"overbought_above"`
	MinSuccessRate  float64        `mapstructure:"min_success_rate"`
	Channels        []string       `mapstructure:"channels"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// PublishConfig configures S3 report publishing.
type PublishConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RSIWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rsiwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/rsiwatch.log")
	v.SetDefault("logging.file.max_size_mb", 50)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("universe.exchange_prefix", "CSELK-")

	v.SetDefault("fetch.base_url", "https://scanner.tradingview.com")
	v.SetDefault("fetch.market", "srilanka")
	v.SetDefault("fetch.timeframes", []string{"1D", "1W", "1M"})
	v.SetDefault("fetch.request_timeout", "15s")
	v.SetDefault("fetch.user_agent", "rsiwatch/1.0")
	v.SetDefault("fetch.requests_per_second", 0.5)
	v.SetDefault("fetch.burst", 1)

	v.SetDefault("scan.batch_size", 5)
	v.SetDefault("scan.per_item_delay", "2s")
	v.SetDefault("scan.inter_batch_delay", "30s")
	v.SetDefault("scan.max_attempts", 3)
	v.SetDefault("scan.workers", 1)

	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.title", "Multi-Timeframe RSI Monitor")
	v.SetDefault("report.html", true)

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x52534957))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.oversold_below", 30.0)
	v.SetDefault("alerting.overbought_above", 70.0)
	v.SetDefault("alerting.min_success_rate", 60.0)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 10000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be greater than zero")
	}
	if c.Scan.MaxAttempts < 1 {
		return fmt.Errorf("scan.max_attempts must be at least 1")
	}
	if c.Scan.PerItemDelay < 0 || c.Scan.InterBatchDelay < 0 {
		return fmt.Errorf("scan delays cannot be negative")
	}
	if len(c.Fetch.Timeframes) == 0 {
		return fmt.Errorf("fetch.timeframes must not be empty")
	}
	if c.Fetch.RequestsPerSecond <= 0 {
		return fmt.Errorf("fetch.requests_per_second must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.OversoldBelow >= c.Alerting.OverboughtAbove {
		return fmt.Errorf("alerting.oversold_below must be below alerting.overbought_above")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

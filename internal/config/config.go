package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jb49088/riven-sniper/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Export      ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the poll cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	Jitter          time.Duration `mapstructure:"jitter"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// SourcesConfig groups the marketplace fetchers.
type SourcesConfig struct {
	RivenMarket    RivenMarketConfig    `mapstructure:"riven_market"`
	WarframeMarket WarframeMarketConfig `mapstructure:"warframe_market"`
}

// RivenMarketConfig covers the riven.market HTML endpoint.
type RivenMarketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Platform       string        `mapstructure:"platform"`
	PageLimit      int           `mapstructure:"page_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// WarframeMarketConfig covers the warframe.market JSON API.
type WarframeMarketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AggregationConfig tunes godroll baseline computation.
type AggregationConfig struct {
	MaxPrice        int64   `mapstructure:"max_price"`
	SampleThreshold float64 `mapstructure:"sample_threshold"`
	GodrollCount    int     `mapstructure:"godroll_count"`
	Hour            int     `mapstructure:"hour"`
}

// AlertingConfig defines deal detection and routing.
type AlertingConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	DealThreshold float64        `mapstructure:"deal_threshold"`
	MatchLimit    int            `mapstructure:"match_limit"`
	Pushover      PushoverConfig `mapstructure:"pushover"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// PushoverConfig 描述 Pushover 告警参数。
type PushoverConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	AppToken string `mapstructure:"app_token"`
	UserKey  string `mapstructure:"user_key"`
	APIBase  string `mapstructure:"api_base"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RIVENSNIPER")
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
	v.SetDefault("app.name", "rivensniper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "10s")
	v.SetDefault("scheduler.jitter", "2s")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x72697665))

	v.SetDefault("sources.riven_market.enabled", true)
	v.SetDefault("sources.riven_market.base_url", "https://riven.market")
	v.SetDefault("sources.riven_market.platform", "ALL")
	v.SetDefault("sources.riven_market.page_limit", 200)
	v.SetDefault("sources.riven_market.request_timeout", "10s")

	v.SetDefault("sources.warframe_market.enabled", true)
	v.SetDefault("sources.warframe_market.base_url", "https://api.warframe.market/v1")
	v.SetDefault("sources.warframe_market.request_timeout", "10s")

	v.SetDefault("aggregation.max_price", 50000)
	v.SetDefault("aggregation.sample_threshold", 80.0)
	v.SetDefault("aggregation.godroll_count", 5)
	v.SetDefault("aggregation.hour", 4)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.deal_threshold", 0.60)
	v.SetDefault("alerting.match_limit", 10)
	v.SetDefault("alerting.pushover.enabled", false)
	v.SetDefault("alerting.pushover.api_base", "https://api.pushover.net")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

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
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Jitter < 0 {
		return fmt.Errorf("scheduler.jitter cannot be negative")
	}
	if c.Aggregation.MaxPrice <= 0 {
		return fmt.Errorf("aggregation.max_price must be greater than zero")
	}
	if c.Aggregation.SampleThreshold < 0 || c.Aggregation.SampleThreshold > 100 {
		return fmt.Errorf("aggregation.sample_threshold must be within [0, 100]")
	}
	if c.Aggregation.GodrollCount <= 0 {
		return fmt.Errorf("aggregation.godroll_count must be greater than zero")
	}
	if c.Aggregation.Hour < 0 || c.Aggregation.Hour > 23 {
		return fmt.Errorf("aggregation.hour must be within [0, 23]")
	}
	if c.Alerting.DealThreshold <= 0 || c.Alerting.DealThreshold > 1 {
		return fmt.Errorf("alerting.deal_threshold must be within (0, 1]")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Pushover.Enabled {
		if c.Alerting.Pushover.AppToken == "" {
			return fmt.Errorf("alerting.pushover.app_token 必须配置")
		}
		if c.Alerting.Pushover.UserKey == "" {
			return fmt.Errorf("alerting.pushover.user_key 必须配置")
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
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

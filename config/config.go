package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Kiwoom    Kiwoom         `mapstructure:"kiwoom"`
	Trading   Trading        `mapstructure:"trading"`
	Monitor   Monitor        `mapstructure:"monitor"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Scheduler struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

// Kiwoom holds the brokerage REST API credentials and limits.
type Kiwoom struct {
	BaseURL          string        `mapstructure:"base_url"`
	AppKey           string        `mapstructure:"app_key"`
	SecretKey        string        `mapstructure:"secret_key"`
	AccountAPIID     string        `mapstructure:"account_api_id"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

// Trading holds the default strategy parameters. The live values come from
// the system_parameters table; these are fallbacks when the row is absent.
type Trading struct {
	UnitPct        float64 `mapstructure:"unit_pct"`
	TickBuffer     int     `mapstructure:"tick_buffer"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	MaxLeveragePct float64 `mapstructure:"max_leverage_pct"`
}

type Monitor struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	QuoteConcurrency    int           `mapstructure:"quote_concurrency"`
	StaleTriggerTimeout time.Duration `mapstructure:"stale_trigger_timeout"`
	UnitValueCacheTTL   time.Duration `mapstructure:"unit_value_cache_ttl"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken            string `mapstructure:"bot_token"`
	ChatID              int64  `mapstructure:"chat_id"`
	AlertMinLevel       string `mapstructure:"alert_min_level"`
	MaxMessagePerMinute int    `mapstructure:"max_message_per_minute"`
}

func Load() (*Config, error) {
	// .env first so AutomaticEnv sees the values.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("scheduler.max_concurrency", 3)
	viper.SetDefault("scheduler.timeout_duration", time.Minute)
	viper.SetDefault("kiwoom.timeout", 10*time.Second)
	viper.SetDefault("kiwoom.max_request_per_min", 60)
	viper.SetDefault("trading.unit_pct", 5.0)
	viper.SetDefault("trading.tick_buffer", 3)
	viper.SetDefault("trading.stop_loss_pct", 7.0)
	viper.SetDefault("trading.max_leverage_pct", 120.0)
	viper.SetDefault("monitor.poll_interval", time.Second)
	viper.SetDefault("monitor.quote_concurrency", 5)
	viper.SetDefault("monitor.stale_trigger_timeout", 2*time.Minute)
	viper.SetDefault("monitor.unit_value_cache_ttl", time.Minute)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("telegram.alert_min_level", "error")
	viper.SetDefault("telegram.max_message_per_minute", 20)
}

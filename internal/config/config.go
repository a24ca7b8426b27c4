package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "LUNAR_"

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Lunar    LunarConfig    `koanf:"lunar"`
	Retry    RetryConfig    `koanf:"retry"`
	Poller   PollerConfig   `koanf:"poller"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Redis    RedisConfig    `koanf:"redis"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
	RateLimit    float64       `koanf:"rate_limit"`
	RateBurst    int           `koanf:"rate_burst"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// LunarConfig describes the remote gateway and the hosted checkout pages.
type LunarConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"required"`
	RateLimit       float64       `koanf:"rate_limit" validate:"required"`
	RateBurst       int           `koanf:"rate_burst" validate:"required"`
	LiveCheckoutURL string        `koanf:"live_checkout_url" validate:"required,url"`
	TestCheckoutURL string        `koanf:"test_checkout_url" validate:"required,url"`
	PlatformName    string        `koanf:"platform_name"`
	PlatformVersion string        `koanf:"platform_version"`
	PluginVersion   string        `koanf:"plugin_version" validate:"required"`
}

// RetryConfig applies to idempotent gateway reads only.
type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type PollerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	Window    time.Duration `koanf:"window" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

type KafkaConfig struct {
	Enabled      bool     `koanf:"enabled"`
	Brokers      []string `koanf:"brokers"`
	GroupID      string   `koanf:"group_id"`
	WrittenTopic string   `koanf:"written_topic"`
	LedgerTopic  string   `koanf:"ledger_topic"`
}

type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	LockTTL  time.Duration `koanf:"lock_ttl"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var defaults = map[string]any{
	"primary.env":                 "development",
	"server.port":                 "8080",
	"server.read_timeout":         "15s",
	"server.write_timeout":        "30s",
	"server.idle_timeout":         "60s",
	"server.rate_limit":           100.0,
	"server.rate_burst":           200,
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  "1h",
	"database.conn_max_idle_time": "30m",
	"lunar.base_url":              "https://api.lunar.money/v1",
	"lunar.request_timeout":       "10s",
	"lunar.rate_limit":            20.0,
	"lunar.rate_burst":            5,
	"lunar.live_checkout_url":     "https://pay.lunar.money/?id=",
	"lunar.test_checkout_url":     "https://hosted-checkout-git-develop-lunar-app.vercel.app/?id=",
	"lunar.platform_name":         "Shopware",
	"lunar.plugin_version":        "2.0.0",
	"retry.base_delay":            "500ms",
	"retry.max_retries":           3,
	"poller.interval":             "20m",
	"poller.window":               "24h",
	"poller.batch_size":           100,
	"kafka.group_id":              "lunar-reconciler",
	"kafka.written_topic":         "order_transaction.written",
	"kafka.ledger_topic":          "lunar.ledger",
	"redis.lock_ttl":              "2m",
	"logger.level":                "info",
	"logger.format":               "json",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

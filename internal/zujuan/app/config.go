package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/aussiebroadwan/zujuan/pkg/httpx"
)

// EnvPrefix prefixes every environment override, e.g. ZUJUAN_SCAN_TIMEOUT.
const EnvPrefix = "ZUJUAN"

type Config struct {
	Env       string          `mapstructure:"env"     validate:"required,oneof=dev staging prod test"`
	Log       LogConfig       `mapstructure:"log"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	JumpURL string        `mapstructure:"jump_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gt=0"`
	Rate    RateConfig    `mapstructure:"rate"`
}

// RateConfig throttles outbound requests. Zero Requests disables the limit.
type RateConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window"   validate:"gte=0"`
	Burst    int           `mapstructure:"burst"    validate:"gte=0"`
}

type ScanConfig struct {
	Interval  time.Duration `mapstructure:"interval"   validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"gte=0"`
	ImagePath string        `mapstructure:"image_path" validate:"required"`
}

type SessionConfig struct {
	// CheckInterval re-validates the session while tasks run. Zero disables.
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"gte=0"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"          validate:"oneof=file sqlite redis"`
	Dir           string `mapstructure:"dir"             validate:"required_if=Driver file"`
	SQLiteFile    string `mapstructure:"sqlite_file"     validate:"required_if=Driver sqlite"`
	RedisAddr     string `mapstructure:"redis_addr"      validate:"required_if=Driver redis"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	MasterKeyPath string `mapstructure:"master_key_path"`
}

type PoolConfig struct {
	// Workers below 1 run with a single worker.
	Workers int `mapstructure:"workers"`
}

// TelemetryConfig selects where login and request spans are exported.
type TelemetryConfig struct {
	Exporter    string  `mapstructure:"exporter"     validate:"omitempty,oneof=none stdout otlp"`
	Endpoint    string  `mapstructure:"endpoint"     validate:"required_if=Exporter otlp"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("remote.base_url", "https://zujuan.xkw.com")
	v.SetDefault("remote.jump_url", "https://zujuan.xkw.com/")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("remote.rate.requests", httpx.PoliteLimit.RequestsPerWindow)
	v.SetDefault("remote.rate.window", httpx.PoliteLimit.Window)
	v.SetDefault("remote.rate.burst", httpx.PoliteLimit.Burst)

	v.SetDefault("scan.interval", time.Second)
	v.SetDefault("scan.timeout", 60*time.Second)
	v.SetDefault("scan.image_path", "qrcode.png")

	v.SetDefault("session.check_interval", 0)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", ".zujuan")
	v.SetDefault("storage.sqlite_file", "zujuan.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_prefix", "zujuan")
	v.SetDefault("storage.master_key_path", "")

	v.SetDefault("pool.workers", 2)

	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// LoadConfig reads defaults, then the config file, then ZUJUAN_* environment
// variables, each overriding the last. With an empty path an optional
// zujuan.yaml in the working directory is used.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("zujuan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

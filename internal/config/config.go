package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from an optional YAML file
// and environment variables (SWA_ prefix; the API key also honors the bare
// NASA_API_KEY convention).
type Config struct {
	DONKI   DONKIConfig   `mapstructure:"donki"`
	Output  OutputConfig  `mapstructure:"output"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DONKIConfig holds the NASA DONKI client settings. APIKey is passed into
// the client constructor; there is no ambient global credential.
type DONKIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	RateBurst      int           `mapstructure:"rate_burst"`
	CacheSize      int           `mapstructure:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// OutputConfig controls where and what the exporter writes.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Workbook bool   `mapstructure:"workbook"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// KafkaConfig holds the optional linked-event sink. Publishing is enabled
// when brokers are configured.
type KafkaConfig struct {
	Brokers   []string `mapstructure:"brokers"`
	SinkTopic string   `mapstructure:"sink_topic"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PublishEnabled reports whether linked events should be published to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// Load reads configuration from the given file (optional; pass "" to use
// defaults and environment only) and applies env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SWA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The upstream ecosystem ships the key as NASA_API_KEY; accept both.
	if err := v.BindEnv("donki.api_key", "SWA_DONKI_API_KEY", "NASA_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("donki.base_url", "https://api.nasa.gov/DONKI")
	v.SetDefault("donki.request_timeout", "30s")
	v.SetDefault("donki.max_retries", 3)
	v.SetDefault("donki.retry_base_delay", "1s")
	v.SetDefault("donki.rate_per_second", 2.0)
	v.SetDefault("donki.rate_burst", 4)
	v.SetDefault("donki.cache_size", 128)
	v.SetDefault("donki.cache_ttl", "1h")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.workbook", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("kafka.sink_topic", "linked-space-weather-events")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable. API key presence
// is checked by the entry points that actually fetch, not here, so offline
// commands keep working.
func (c *Config) Validate() error {
	if c.DONKI.BaseURL == "" {
		return fmt.Errorf("donki.base_url is required")
	}
	if c.DONKI.RequestTimeout <= 0 {
		return fmt.Errorf("donki.request_timeout must be positive")
	}
	if c.DONKI.MaxRetries < 0 {
		return fmt.Errorf("donki.max_retries must not be negative")
	}
	if c.DONKI.RetryBaseDelay <= 0 {
		return fmt.Errorf("donki.retry_base_delay must be positive")
	}
	if c.DONKI.RatePerSecond <= 0 {
		return fmt.Errorf("donki.rate_per_second must be positive")
	}
	if c.DONKI.RateBurst < 1 {
		return fmt.Errorf("donki.rate_burst must be at least 1")
	}
	if c.DONKI.CacheSize < 1 {
		return fmt.Errorf("donki.cache_size must be at least 1")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("http.shutdown_timeout must be positive")
	}
	if c.PublishEnabled() && c.Kafka.SinkTopic == "" {
		return fmt.Errorf("kafka.sink_topic is required when kafka.brokers is set")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}

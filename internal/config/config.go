// Package config loads service configuration from defaults, an optional
// config.yaml, a .env file and the process environment, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when no key is configured for the selected provider.
var ErrMissingAPIKey = errors.New("missing LLM API key")

type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	CatalogPath string          `mapstructure:"catalog_path"`
}

type ServerConfig struct {
	Port               string        `mapstructure:"port"`
	GinMode            string        `mapstructure:"gin_mode"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// Timeout bounds a single HTTP call to the provider.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestTimeout bounds a whole analysis including retries.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`

	keyEnv string
}

// KeyEnv names the environment variable the API key is expected in.
func (c LLMConfig) KeyEnv() string { return c.keyEnv }

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	Exporter       string `mapstructure:"exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

func (c *Config) validate(providers []string) error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if !slices.Contains(providers, c.LLM.Provider) {
		return fmt.Errorf("unsupported LLM_PROVIDER %q (supported: %s)", c.LLM.Provider, strings.Join(providers, ", "))
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.LLM.keyEnv)
	}
	if c.LLM.Timeout <= 0 || c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("LLM timeouts must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when ENABLE_CACHE=true")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	if c.Telemetry.TracingEnabled {
		switch c.Telemetry.Exporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("OTEL_EXPORTER must be stdout or otlp, got %q", c.Telemetry.Exporter)
		}
	}
	return nil
}

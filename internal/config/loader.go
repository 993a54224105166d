package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Skufu/AfyaChecker/internal/provider"
)

var envBindings = map[string]string{
	"server.port":                 "PORT",
	"server.gin_mode":             "GIN_MODE",
	"server.cors_allowed_origins": "CORS_ALLOWED_ORIGINS",
	"server.max_body_bytes":       "MAX_BODY_BYTES",
	"server.shutdown_timeout":     "SHUTDOWN_TIMEOUT",
	"llm.provider":                "LLM_PROVIDER",
	"llm.api_key":                 "LLM_API_KEY",
	"llm.model":                   "LLM_MODEL",
	"llm.base_url":                "LLM_BASE_URL",
	"llm.max_tokens":              "LLM_MAX_TOKENS",
	"llm.temperature":             "LLM_TEMPERATURE",
	"llm.timeout":                 "LLM_TIMEOUT",
	"llm.request_timeout":         "ANALYZE_TIMEOUT",
	"llm.max_retries":             "LLM_MAX_RETRIES",
	"database.enabled":            "ENABLE_DB",
	"database.url":                "DATABASE_URL",
	"redis.enabled":               "ENABLE_CACHE",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"redis.cache_ttl":             "CACHE_TTL",
	"logging.level":               "LOG_LEVEL",
	"logging.format":              "LOG_FORMAT",
	"telemetry.tracing_enabled":   "OTEL_ENABLED",
	"telemetry.exporter":          "OTEL_EXPORTER",
	"telemetry.otlp_endpoint":     "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.service_name":      "OTEL_SERVICE_NAME",
	"telemetry.metrics_enabled":   "METRICS_ENABLED",
	"catalog_path":                "CATALOG_PATH",
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:8501", "http://localhost:3000"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("llm.provider", provider.Groq)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.request_timeout", "60s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("database.enabled", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "1h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.service_name", "afyachecker")
	v.SetDefault("telemetry.metrics_enabled", true)
}

// Load reads configuration searching ./configs and . for config.yaml.
func Load() (*Config, error) {
	return LoadFrom("./configs", ".")
}

// LoadFrom is Load with explicit config file search paths.
func LoadFrom(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&cfg)
	if err := cfg.validate(provider.Names); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func normalize(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	cfg.Telemetry.Exporter = strings.ToLower(cfg.Telemetry.Exporter)

	origins := make([]string, 0, len(cfg.Server.CORSAllowedOrigins))
	for _, o := range cfg.Server.CORSAllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	cfg.Server.CORSAllowedOrigins = origins

	// A provider-specific key wins over LLM_API_KEY and the config file.
	cfg.LLM.keyEnv = provider.KeyEnv(cfg.LLM.Provider)
	if key := strings.TrimSpace(os.Getenv(cfg.LLM.keyEnv)); key != "" {
		cfg.LLM.APIKey = key
	}
}

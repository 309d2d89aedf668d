// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml)
//  3. Default values
//
// Categories:
//   - Server: listen address, CORS, proxy trust, rate limiting
//   - Gemini: model selection, temperature, max output tokens
//   - Store: session capacity, idle timeout, per-session history bound
//   - Logging and tracing
//
// Sensitive data (the Gemini API key) is read from the environment only and
// never logged. Validation is fail-fast with sentinel errors usable via
// errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate.
var (
	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxSessions indicates the session capacity is out of range.
	ErrInvalidMaxSessions = errors.New("invalid max sessions")

	// ErrInvalidSessionTimeout indicates the idle timeout is out of range.
	ErrInvalidSessionTimeout = errors.New("invalid session timeout")

	// ErrInvalidMaxMessages indicates the per-session history bound is out of range.
	ErrInvalidMaxMessages = errors.New("invalid max messages per session")
)

// Default model served when the config does not name one.
const DefaultModelName = "gemini-2.0-flash"

// Config stores application configuration.
// The Gemini API key is deliberately NOT part of this struct: it is read
// from the environment at client construction so it never transits config
// files or logs.
type Config struct {
	// Server configuration
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Gemini model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Session store configuration
	MaxSessions            int `mapstructure:"max_sessions" json:"max_sessions"`
	SessionTimeoutHours    int `mapstructure:"session_timeout_hours" json:"session_timeout_hours"`
	MaxMessagesPerSession  int `mapstructure:"max_messages_per_session" json:"max_messages_per_session"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" json:"cleanup_interval_minutes"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing configuration (see tracing in internal/observability)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig configures optional OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// SessionTimeout returns the idle timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutHours) * time.Hour
}

// CleanupInterval returns the background sweep period as a duration.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults", "config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("addr", "127.0.0.1:8000")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", 60)

	// Gemini defaults
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)

	// Session store defaults
	v.SetDefault("max_sessions", 1000)
	v.SetDefault("session_timeout_hours", 24)
	v.SetDefault("max_messages_per_session", 5)
	v.SetDefault("cleanup_interval_minutes", 10)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "ai-coding-tool-backend")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
//
// NOTE: GEMINI_API_KEY is read directly by the gemini client, not via
// viper; its presence is checked at client construction.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("addr", "BACKEND_ADDR")
	mustBind("cors_origins", "BACKEND_CORS_ORIGINS")
	mustBind("trust_proxy", "BACKEND_TRUST_PROXY")
	mustBind("rate_burst", "BACKEND_RATE_BURST")
	mustBind("model_name", "BACKEND_MODEL_NAME")
	mustBind("temperature", "BACKEND_TEMPERATURE")
	mustBind("max_tokens", "BACKEND_MAX_TOKENS")
	mustBind("log_level", "BACKEND_LOG_LEVEL")
	mustBind("log_json", "BACKEND_LOG_JSON")
	mustBind("max_sessions", "BACKEND_MAX_SESSIONS")
	mustBind("session_timeout_hours", "BACKEND_SESSION_TIMEOUT_HOURS")
	mustBind("max_messages_per_session", "BACKEND_MAX_MESSAGES_PER_SESSION")
	mustBind("cleanup_interval_minutes", "BACKEND_CLEANUP_INTERVAL_MINUTES")
	mustBind("tracing.enabled", "BACKEND_TRACING_ENABLED")
	mustBind("tracing.endpoint", "OTLP_ENDPOINT")
	mustBind("tracing.service_name", "BACKEND_TRACING_SERVICE_NAME")
	mustBind("tracing.environment", "BACKEND_TRACING_ENVIRONMENT")
}

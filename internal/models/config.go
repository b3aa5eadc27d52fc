// Package models - service configuration and operational settings.
//
// Configuration is hierarchical with logical grouping (server, quota,
// security, providers, logging, metrics) and ships with defaults that work
// out of the box for local development. Secrets (token signing key, upstream
// API keys) are expected from the environment rather than the config file.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Quota store type constants
const (
	QuotaStoreMemory   = "memory"
	QuotaStoreSQLite   = "sqlite"
	QuotaStorePostgres = "postgres"
)

// Provider selector constants. These are the only values accepted in the
// "model" field of a generation request.
const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Quota         QuotaConfig         `yaml:"quota" json:"quota"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Providers     ProvidersConfig     `yaml:"providers" json:"providers"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// QuotaConfig controls the per-identity rolling usage quota.
type QuotaConfig struct {
	// MaxPerWindow is the number of generation requests permitted per
	// identity within one rolling window.
	MaxPerWindow int `yaml:"max_per_window" json:"max_per_window"`

	// Window is the rolling lookback; usage older than this never counts.
	Window time.Duration `yaml:"window" json:"window"`

	// Store selects the usage store backend (memory, sqlite, postgres).
	Store string `yaml:"store" json:"store"`

	// Database holds connection settings for database-backed stores.
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type SecurityConfig struct {
	// JWTSecret is the symmetric key used to verify bearer tokens. Required.
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`

	// TokenTTL is the lifetime of tokens minted by the debug endpoint.
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`

	// EnableDebugEndpoints registers the token-minting and quota-reset
	// endpoints. Must stay false in production deployments.
	EnableDebugEndpoints bool `yaml:"enable_debug_endpoints" json:"enable_debug_endpoints"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled                        bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute              int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize                      int           `yaml:"burst_size" json:"burst_size"`
	AuthenticatedRequestsPerMinute int           `yaml:"authenticated_requests_per_minute" json:"authenticated_requests_per_minute"`
	AuthenticatedBurstSize         int           `yaml:"authenticated_burst_size" json:"authenticated_burst_size"`
	CleanupInterval                time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// ProvidersConfig holds settings for the two upstream generation backends.
type ProvidersConfig struct {
	OpenRouter OpenRouterConfig `yaml:"openrouter" json:"openrouter"`
	Gemini     GeminiConfig     `yaml:"gemini" json:"gemini"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
	Referer string `yaml:"referer" json:"referer"`
	Title   string `yaml:"title" json:"title"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`

	// AttemptTimeout bounds each individual upstream attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" json:"attempt_timeout"`

	// MaxAttempts is the total number of attempts on timeout, including
	// the first one.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// RetryBackoff is the pause between timed-out attempts.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with development-friendly defaults.
// The JWT secret and upstream API keys have no defaults; they come from the
// environment or the config file.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         3600,
			},
		},
		Quota: QuotaConfig{
			MaxPerWindow: 4,
			Window:       24 * time.Hour,
			Store:        QuotaStoreMemory,
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
		},
		Providers: ProvidersConfig{
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "deepseek/deepseek-chat-v3-0324:free",
				Referer: "http://localhost:5173",
				Title:   "InfraGen",
			},
			Gemini: GeminiConfig{
				BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
				Model:          "gemini-2.0-flash",
				AttemptTimeout: 30 * time.Second,
				MaxAttempts:    3,
				RetryBackoff:   2 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "infragen",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// Validate checks the configuration for values that would prevent the
// service from operating correctly.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required (set INFRAGEN_JWT_SECRET)")
	}
	if c.Quota.MaxPerWindow < 1 {
		return fmt.Errorf("quota.max_per_window must be at least 1, got %d", c.Quota.MaxPerWindow)
	}
	if c.Quota.Window <= 0 {
		return fmt.Errorf("quota.window must be positive, got %s", c.Quota.Window)
	}
	switch c.Quota.Store {
	case QuotaStoreMemory:
	case QuotaStoreSQLite, QuotaStorePostgres:
		if c.Quota.Database.DSN == "" {
			return fmt.Errorf("quota.database.dsn is required for %s store", c.Quota.Store)
		}
	default:
		return fmt.Errorf("unsupported quota store: %s", c.Quota.Store)
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.token_ttl must be positive, got %s", c.Security.TokenTTL)
	}
	if c.Providers.Gemini.MaxAttempts < 1 {
		return fmt.Errorf("providers.gemini.max_attempts must be at least 1, got %d", c.Providers.Gemini.MaxAttempts)
	}
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RequestsPerMinute < 1 {
			return errors.New("security.rate_limit.requests_per_minute must be at least 1")
		}
		if c.Security.RateLimit.BurstSize < 1 {
			return errors.New("security.rate_limit.burst_size must be at least 1")
		}
	}
	if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file are required when TLS is enabled")
	}
	return nil
}

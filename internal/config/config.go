// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Precedence: defaults < file < environment.
package config

import (
	"fmt"
	"infragen/internal/models"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables.
// Upstream API keys keep their conventional names (OPENROUTER_API_KEY,
// GEMINI_API_KEY); everything else uses the INFRAGEN_ prefix.
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("INFRAGEN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("INFRAGEN_HOST"); host != "" {
		config.Server.Host = host
	}
	if timeout := os.Getenv("INFRAGEN_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}
	if timeout := os.Getenv("INFRAGEN_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}
	if timeout := os.Getenv("INFRAGEN_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}
	if tls := os.Getenv("INFRAGEN_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}
	if certFile := os.Getenv("INFRAGEN_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}
	if keyFile := os.Getenv("INFRAGEN_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}
	if origins := os.Getenv("INFRAGEN_CORS_ALLOWED_ORIGINS"); origins != "" {
		config.Server.CORS.AllowedOrigins = splitAndTrim(origins)
	}

	// Quota configuration
	if max := os.Getenv("INFRAGEN_QUOTA_MAX_PER_WINDOW"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			config.Quota.MaxPerWindow = n
		}
	}
	if window := os.Getenv("INFRAGEN_QUOTA_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.Quota.Window = d
		}
	}
	if store := os.Getenv("INFRAGEN_QUOTA_STORE"); store != "" {
		config.Quota.Store = store
	}
	if dsn := os.Getenv("INFRAGEN_DATABASE_DSN"); dsn != "" {
		config.Quota.Database.DSN = dsn
	}

	// Security configuration
	if secret := os.Getenv("INFRAGEN_JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if ttl := os.Getenv("INFRAGEN_TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Security.TokenTTL = d
		}
	}
	if debug := os.Getenv("INFRAGEN_ENABLE_DEBUG_ENDPOINTS"); debug != "" {
		config.Security.EnableDebugEndpoints = strings.ToLower(debug) == "true"
	}
	if rl := os.Getenv("INFRAGEN_RATE_LIMIT_ENABLED"); rl != "" {
		config.Security.RateLimit.Enabled = strings.ToLower(rl) == "true"
	}
	if rpm := os.Getenv("INFRAGEN_RATE_LIMIT_RPM"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.Security.RateLimit.RequestsPerMinute = n
		}
	}
	if burst := os.Getenv("INFRAGEN_RATE_LIMIT_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			config.Security.RateLimit.BurstSize = n
		}
	}

	// Provider configuration
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		config.Providers.OpenRouter.APIKey = key
	}
	if url := os.Getenv("INFRAGEN_OPENROUTER_BASE_URL"); url != "" {
		config.Providers.OpenRouter.BaseURL = url
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Providers.Gemini.APIKey = key
	}
	if url := os.Getenv("INFRAGEN_GEMINI_BASE_URL"); url != "" {
		config.Providers.Gemini.BaseURL = url
	}

	// Logging configuration
	if level := os.Getenv("INFRAGEN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("INFRAGEN_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("INFRAGEN_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}
	if filePath := os.Getenv("INFRAGEN_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("INFRAGEN_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}
	if path := os.Getenv("INFRAGEN_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}
	if port := os.Getenv("INFRAGEN_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Tracing configuration
	if tracing := os.Getenv("INFRAGEN_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}
	if exporter := os.Getenv("INFRAGEN_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}
	if endpoint := os.Getenv("INFRAGEN_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}
}

func splitAndTrim(s string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

package tmfbridge

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the resolved configuration consumed by the core.
// All values come from environment variables; the core never reads the
// environment itself.
type Config struct {
	// Server configuration
	Port     string `env:"SERVICE_PORT" env-default:"3001"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// Upstream backend
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL" env-default:"http://localhost:8000"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"10s"`
	RetryCount      int           `env:"UPSTREAM_RETRY_COUNT" env-default:"1"`
	RetryDelay      time.Duration `env:"UPSTREAM_RETRY_DELAY" env-default:"250ms"`

	// Static auth material injected into upstream requests. A configured
	// bearer token overrides any client-forwarded Authorization header.
	AuthBearer   string `env:"UPSTREAM_AUTH_BEARER" env-default:""`
	APIKey       string `env:"UPSTREAM_API_KEY" env-default:""`
	APIKeyHeader string `env:"UPSTREAM_API_KEY_HEADER" env-default:"X-API-Key"`

	// Schema source candidates, in priority order. The explicit local path
	// wins, then the primary URL, then the legacy URL when the primary is
	// unset; the bundled document is the resolution floor.
	SchemaPath      string `env:"NATIVE_OPENAPI_PATH" env-default:""`
	SchemaURL       string `env:"NATIVE_OPENAPI_URL" env-default:""`
	LegacySchemaURL string `env:"NATIVE_SCHEMA_URL" env-default:""`

	// Validation toggles, overridable per request via ?validate=
	ValidateRequests  bool `env:"VALIDATE_REQUESTS" env-default:"false"`
	ValidateResponses bool `env:"VALIDATE_RESPONSES" env-default:"false"`

	MetricsEnabled bool `env:"METRICS_ENABLED" env-default:"true"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UpstreamBaseURL) == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must not be empty")
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL %q is not a valid absolute URL", c.UpstreamBaseURL)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("UPSTREAM_RETRY_COUNT must not be negative")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// OpenAIAPIKey is the gateway's own upstream credential. Callers never
	// see it; their tokens are internal quota keys.
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`
	DatabaseURL  string `env:"DATABASE_URL,required"`

	Port            int           `env:"PORT,default=8080"`
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL,default=https://api.openai.com/v1"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=120s"`

	TokenDefaultUses int `env:"TOKEN_DEFAULT_USES,default=500"`

	LogLevel    string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// HTTP server timeouts. The write timeout must cover a full streamed
	// chat completion, so it defaults well above the upstream timeout.
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=180s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`

	// Auth attempt limiter knobs.
	AuthMaxFailures   int           `env:"AUTH_MAX_FAILURES,default=10"`
	AuthFailureWindow time.Duration `env:"AUTH_FAILURE_WINDOW,default=5m"`
	AuthBlockDuration time.Duration `env:"AUTH_BLOCK_DURATION,default=15m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.TokenDefaultUses < 1 {
		return fmt.Errorf("TOKEN_DEFAULT_USES must be positive, got %d", c.TokenDefaultUses)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	return nil
}

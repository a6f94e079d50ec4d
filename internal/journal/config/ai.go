package config

import (
	"time"

	"moodnote/internal/journal/adapters/textgen"
	"moodnote/pkg/resilience"
)

// AIConfig настройки генератора подсказок и его защиты.
type AIConfig struct {
	Provider        string        `yaml:"provider" env:"MOODNOTE_AI_PROVIDER" env-default:"disabled"`
	APIKey          string        `yaml:"api_key" env:"MOODNOTE_AI_API_KEY" env-default:""`
	Model           string        `yaml:"model" env:"MOODNOTE_AI_MODEL" env-default:""`
	BaseURL         string        `yaml:"base_url" env:"MOODNOTE_AI_BASE_URL" env-default:""`
	Timeout         time.Duration `yaml:"timeout" env:"MOODNOTE_AI_TIMEOUT" env-default:"10s"`
	MaxOutputTokens int           `yaml:"max_output_tokens" env:"MOODNOTE_AI_MAX_OUTPUT_TOKENS" env-default:"80"`

	BreakerErrorThreshold   int           `yaml:"breaker_error_threshold" env:"MOODNOTE_AI_BREAKER_ERROR_THRESHOLD" env-default:"5"`
	BreakerTimeout          time.Duration `yaml:"breaker_timeout" env:"MOODNOTE_AI_BREAKER_TIMEOUT" env-default:"30s"`
	BreakerSuccessThreshold int           `yaml:"breaker_success_threshold" env:"MOODNOTE_AI_BREAKER_SUCCESS_THRESHOLD" env-default:"1"`
	RetryMaxAttempts        int           `yaml:"retry_max_attempts" env:"MOODNOTE_AI_RETRY_MAX_ATTEMPTS" env-default:"2"`
	RetryInitialBackoff     time.Duration `yaml:"retry_initial_backoff" env:"MOODNOTE_AI_RETRY_INITIAL_BACKOFF" env-default:"200ms"`
	RetryMaxBackoff         time.Duration `yaml:"retry_max_backoff" env:"MOODNOTE_AI_RETRY_MAX_BACKOFF" env-default:"2s"`

	RateLimit       int           `yaml:"rate_limit" env:"MOODNOTE_AI_RATE_LIMIT" env-default:"10"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window" env:"MOODNOTE_AI_RATE_LIMIT_WINDOW" env-default:"1h"`
}

// Generator возвращает настройки генератора.
func (c *AIConfig) Generator() textgen.Config {
	return textgen.Config{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		Model:           c.Model,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

// Resilience возвращает защиту вызовов провайдера.
func (c *AIConfig) Resilience() *resilience.ServiceResilience {
	return resilience.NewServiceResilience("text-generator",
		resilience.CircuitBreakerConfig{
			ErrorThreshold:   c.BreakerErrorThreshold,
			Timeout:          c.BreakerTimeout,
			SuccessThreshold: c.BreakerSuccessThreshold,
		},
		resilience.RetryConfig{
			MaxAttempts:    c.RetryMaxAttempts,
			InitialBackoff: c.RetryInitialBackoff,
			MaxBackoff:     c.RetryMaxBackoff,
			BackoffFactor:  2,
		})
}

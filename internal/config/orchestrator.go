package config

import (
	"time"

	"github.com/ai-judge/ai-judge/internal/constants"
)

type OrchestratorConfig struct {
	// DefaultConcurrency is used when a run request does not set one
	DefaultConcurrency int `mapstructure:"default_concurrency" json:"default_concurrency"`
	MaxConcurrency     int `mapstructure:"max_concurrency" json:"max_concurrency"`
	// LLMTimeout bounds every single provider call, timeouts are never retried
	LLMTimeout time.Duration `mapstructure:"llm_timeout" json:"llm_timeout"`
	// ParseAttempts is the total number of provider calls made while the response can not be parsed
	ParseAttempts int `mapstructure:"parse_attempts" json:"parse_attempts"`
	// ProviderRetries is the number of retries of a transient provider error (0 disables)
	ProviderRetries    int           `mapstructure:"provider_retries" json:"provider_retries"`
	ProviderBackoff    time.Duration `mapstructure:"provider_backoff" json:"provider_backoff"`
	ReasoningMaxLength int           `mapstructure:"reasoning_max_length" json:"reasoning_max_length"`
	MaxErrorMessages   int           `mapstructure:"max_error_messages" json:"max_error_messages"`
	MaxTokens          int           `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature        float64       `mapstructure:"temperature" json:"temperature"`
}

// DefaultOrchestratorConfig returns the settings used when nothing is configured.
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		DefaultConcurrency: constants.DEFAULT_CONCURRENCY,
		MaxConcurrency:     constants.MAX_CONCURRENCY,
		LLMTimeout:         20 * time.Second,
		ParseAttempts:      constants.DEFAULT_PARSE_ATTEMPTS,
		ProviderRetries:    0,
		ProviderBackoff:    time.Second,
		ReasoningMaxLength: constants.DEFAULT_REASONING_MAX_LEN,
		MaxErrorMessages:   constants.DEFAULT_MAX_ERROR_COUNT,
		MaxTokens:          constants.DEFAULT_MAX_TOKENS,
		Temperature:        0,
	}
}

// ClampConcurrency returns requested bounded to [1, MaxConcurrency], or the
// default when requested is nil.
func (c *OrchestratorConfig) ClampConcurrency(requested *int) int {
	n := c.DefaultConcurrency
	if requested != nil {
		n = *requested
	}
	if n < 1 {
		return 1
	}
	if c.MaxConcurrency > 0 && n > c.MaxConcurrency {
		return c.MaxConcurrency
	}
	return n
}

package config

import "time"

type LLMProviderConfig struct {
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	BaseURL string        `mapstructure:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout time.Duration `mapstructure:"timeout,omitempty" json:"timeout,omitempty"`
}

func (p *LLMProviderConfig) IsConfigured() bool {
	return p != nil && p.APIKey != ""
}

type ProvidersConfig struct {
	OpenAI    *LLMProviderConfig `mapstructure:"openai,omitempty" json:"openai,omitempty"`
	Anthropic *LLMProviderConfig `mapstructure:"anthropic,omitempty" json:"anthropic,omitempty"`
	Gemini    *LLMProviderConfig `mapstructure:"gemini,omitempty" json:"gemini,omitempty"`
}

type ExportConfig struct {
	S3 *S3ExportConfig `mapstructure:"s3,omitempty" json:"s3,omitempty"`
}

// S3ExportConfig configures the upload of run summaries. Static credentials
// are optional, the default AWS credential chain is used otherwise.
type S3ExportConfig struct {
	Enabled         bool   `mapstructure:"enabled" json:"enabled"`
	Bucket          string `mapstructure:"bucket" json:"bucket"`
	Prefix          string `mapstructure:"prefix,omitempty" json:"prefix,omitempty"`
	Region          string `mapstructure:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	UsePathStyle    bool   `mapstructure:"use_path_style,omitempty" json:"use_path_style,omitempty"`
}

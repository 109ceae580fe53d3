package api

// JudgeConfig is the user supplied part of a judge.
type JudgeConfig struct {
	Name         string `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt" json:"systemPrompt"`
	Provider     string `mapstructure:"provider" yaml:"provider" json:"provider" validate:"required"`
	Model        string `mapstructure:"model" yaml:"model" json:"model" validate:"required"`
	Active       bool   `mapstructure:"active" yaml:"active" json:"active"`
}

// Judge is the configuration of one LLM-backed evaluator.
type Judge struct {
	ID          string `mapstructure:"id" yaml:"id" json:"id"`
	JudgeConfig `mapstructure:",squash" yaml:",inline"`
}

// JudgeList represents the response for listing judges
type JudgeList struct {
	Page
	Items []Judge `json:"items"`
}

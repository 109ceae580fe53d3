package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProvider struct {
	client anthropic.Client
}

func NewAnthropicProvider(cfg *config.LLMProviderConfig, httpClient *http.Client) *AnthropicProvider {
	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are decided by the invoker
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		options = append(options, option.WithHTTPClient(httpClient))
	}
	return &AnthropicProvider{client: anthropic.NewClient(options...)}
}

func (p *AnthropicProvider) Name() string {
	return constants.PROVIDER_ANTHROPIC
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}

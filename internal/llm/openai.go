package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(cfg *config.LLMProviderConfig, httpClient *http.Client) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientConfig)}
}

func (p *OpenAIProvider) Name() string {
	return constants.PROVIDER_OPENAI
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	// a zero temperature is dropped from the request body
	if chatReq.Temperature == 0 {
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"google.golang.org/genai"
)

type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, cfg *config.LLMProviderConfig, httpClient *http.Client) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return constants.PROVIDER_GEMINI
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	temperature := float32(req.Temperature)
	generateConfig := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemPrompt != "" {
		generateConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.MaxTokens > 0 {
		// #nosec G115 -- bounded by min
		generateConfig.MaxOutputTokens = int32(min(req.MaxTokens, math.MaxInt32))
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), generateConfig)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

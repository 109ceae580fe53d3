// Package llm wraps the provider SDKs behind a single text completion call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
)

var (
	ErrUnknownProvider = errors.New("LLM provider is not configured")
	ErrEmptyResponse   = errors.New("LLM returned an empty response")
)

// Request is a single system plus user prompt completion.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Registry resolves the provider named by a judge.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a provider for every entry of cfg that has an API key.
func NewRegistry(ctx context.Context, cfg *config.ProvidersConfig, httpClient *http.Client, logger *slog.Logger) (*Registry, error) {
	registry := &Registry{providers: map[string]Provider{}}
	if cfg == nil {
		logger.Warn("No LLM providers configured")
		return registry, nil
	}
	if cfg.OpenAI.IsConfigured() {
		registry.Register(NewOpenAIProvider(cfg.OpenAI, httpClient))
	}
	if cfg.Anthropic.IsConfigured() {
		registry.Register(NewAnthropicProvider(cfg.Anthropic, httpClient))
	}
	if cfg.Gemini.IsConfigured() {
		provider, err := NewGeminiProvider(ctx, cfg.Gemini, httpClient)
		if err != nil {
			return nil, err
		}
		registry.Register(provider)
	}
	if len(registry.providers) == 0 {
		logger.Warn("No LLM provider has an API key, every evaluation will be inconclusive")
	} else {
		logger.Info("LLM providers configured", "providers", registry.Names())
	}
	return registry, nil
}

// NewStaticRegistry returns a registry holding exactly the given providers.
func NewStaticRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: map[string]Provider{}}
	for _, provider := range providers {
		registry.Register(provider)
	}
	return registry
}

func (r *Registry) Register(provider Provider) {
	r.providers[strings.ToLower(provider.Name())] = provider
}

// Get returns the provider registered under name, ignoring case.
func (r *Registry) Get(name string) (Provider, error) {
	if provider, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FuncProvider adapts a function to the Provider interface.
type FuncProvider struct {
	ProviderName string
	Fn           func(ctx context.Context, req Request) (string, error)
}

func (p FuncProvider) Name() string {
	if p.ProviderName == "" {
		return constants.PROVIDER_OPENAI
	}
	return p.ProviderName
}

func (p FuncProvider) Complete(ctx context.Context, req Request) (string, error) {
	return p.Fn(ctx, req)
}

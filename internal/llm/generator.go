// Package llm calls the generation model: prompt in, text out.
package llm

import (
	"context"
	"fmt"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/httpclient"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are the sampling parameters sent with every request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// New returns the generator selected by cfg.LLM.Provider.
func New(cfg *config.Config) (Generator, error) {
	opts := Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	client := httpclient.New(cfg.HTTPRetries)

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(client, cfg.LLM.URL, cfg.LLM.Key, opts), nil
	case "ollama":
		return NewOllama(client, cfg.LLM.URL, opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", domain.ErrInvalidConfig, cfg.LLM.Provider)
	}
}

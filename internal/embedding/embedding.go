// Package embedding builds the chromem embedding function used for both
// indexing and querying.
package embedding

import (
	"context"
	"fmt"

	"docqa/internal/config"
	"docqa/internal/domain"

	"github.com/philippgille/chromem-go"
	"golang.org/x/time/rate"
)

// New returns the embedding function selected by cfg.EmbedProvider,
// wrapped so failures carry domain.ErrEmbedding.
func New(cfg *config.Config) (chromem.EmbeddingFunc, error) {
	var f chromem.EmbeddingFunc
	switch cfg.EmbedProvider {
	case "ollama":
		f = chromem.NewEmbeddingFuncOllama(cfg.OllamaEmbedModel, cfg.OllamaURL+"/api")
	case "openai":
		if cfg.LLM.Key == "" {
			return nil, fmt.Errorf("%w: LLM_API_KEY or OPENAI_API_KEY is required for EMBED_PROVIDER=openai", domain.ErrInvalidConfig)
		}
		f = chromem.NewEmbeddingFuncOpenAICompat(cfg.OpenAIEmbedURL, cfg.LLM.Key, cfg.OpenAIEmbedModel, nil)
	case "hash":
		f = NewHashing(cfg.HashEmbedDim)
	default:
		return nil, fmt.Errorf("%w: unknown EMBED_PROVIDER %q", domain.ErrInvalidConfig, cfg.EmbedProvider)
	}
	return Wrap(f), nil
}

// Model returns the identifier of the configured embedding model.
func Model(cfg *config.Config) string {
	switch cfg.EmbedProvider {
	case "openai":
		return cfg.OpenAIEmbedModel
	case "hash":
		return fmt.Sprintf("hash-%d", cfg.HashEmbedDim)
	default:
		return cfg.OllamaEmbedModel
	}
}

// Wrap tags errors from f with domain.ErrEmbedding.
func Wrap(f chromem.EmbeddingFunc) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		v, err := f(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		return v, nil
	}
}

// WithRateLimit spaces calls to f to at most rps per second. A rate of zero
// or less returns f unchanged.
func WithRateLimit(f chromem.EmbeddingFunc, rps float64) chromem.EmbeddingFunc {
	if rps <= 0 {
		return f
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return f(ctx, text)
	}
}

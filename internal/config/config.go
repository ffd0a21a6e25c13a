package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"docqa/internal/domain"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	DocsDir    string `env:"DOCS_DIR" envDefault:"./docs"`
	DataDir    string `env:"DATA_DIR" envDefault:"./data"`
	Collection string `env:"COLLECTION" envDefault:"docs"`

	EmbedProvider    string  `env:"EMBED_PROVIDER" envDefault:"ollama"`
	OllamaURL        string  `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbedModel string  `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`
	OpenAIEmbedModel string  `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	OpenAIEmbedURL   string  `env:"OPENAI_EMBED_URL"`
	EmbedRateLimit   float64 `env:"EMBED_RATE_LIMIT" envDefault:"0"`
	HashEmbedDim     int     `env:"HASH_EMBED_DIM" envDefault:"256"`

	LLM LLM

	RetrievalK          int     `env:"RETRIEVAL_K" envDefault:"20"`
	VectorWeight        float64 `env:"VECTOR_WEIGHT" envDefault:"0.7"`
	LexicalWeight       float64 `env:"LEXICAL_WEIGHT" envDefault:"0.3"`
	FusionNormalization string  `env:"FUSION_NORMALIZATION" envDefault:"rank"`

	Reranker     string `env:"RERANKER" envDefault:"overlap"`
	RerankURL    string `env:"RERANK_URL"`
	RerankModel  string `env:"RERANK_MODEL"`
	RerankAPIKey string `env:"RERANK_API_KEY"`
	RerankTopN   int    `env:"RERANK_TOP_N" envDefault:"6"`

	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"200"`

	MaxPromptChars     int           `env:"MAX_PROMPT_CHARS" envDefault:"12000"`
	SourceExcerptChars int           `env:"SOURCE_EXCERPT_CHARS" envDefault:"500"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	HTTPRetries        int           `env:"HTTP_RETRIES" envDefault:"2"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"text"`
}

// LLM configures the generation endpoint.
type LLM struct {
	Provider    string  `env:"LLM_PROVIDER" envDefault:"ollama"`
	Model       string  `env:"LLM_MODEL" envDefault:"llama3.1:8b"`
	URL         string  `env:"LLM_URL"`
	Key         string  `env:"LLM_API_KEY"`
	OpenAIKey   string  `env:"OPENAI_API_KEY"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"512"`
}

func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	cfg.applyDerived()
	return cfg.Validate()
}

func (c *Config) applyDerived() {
	if c.LLM.URL == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.URL = "https://api.openai.com/v1"
		default:
			c.LLM.URL = c.OllamaURL
		}
	}
	if c.LLM.Key == "" {
		c.LLM.Key = c.LLM.OpenAIKey
	}
	// OpenAI embeddings follow an OpenAI-compatible LLM endpoint unless set.
	if c.OpenAIEmbedURL == "" {
		if c.LLM.Provider == "openai" {
			c.OpenAIEmbedURL = c.LLM.URL
		} else {
			c.OpenAIEmbedURL = "https://api.openai.com/v1"
		}
	}
	c.OpenAIEmbedURL = strings.TrimSuffix(c.OpenAIEmbedURL, "/")
}

// Validate rejects out-of-range values with domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: CHUNK_SIZE must be positive, got %d", domain.ErrInvalidConfig, c.ChunkSize)
	case c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in (0, CHUNK_SIZE), got %d", domain.ErrInvalidConfig, c.ChunkOverlap)
	case c.RetrievalK < 1:
		return fmt.Errorf("%w: RETRIEVAL_K must be >= 1, got %d", domain.ErrInvalidConfig, c.RetrievalK)
	case c.RerankTopN < 1:
		return fmt.Errorf("%w: RERANK_TOP_N must be >= 1, got %d", domain.ErrInvalidConfig, c.RerankTopN)
	case c.VectorWeight < 0 || c.LexicalWeight < 0:
		return fmt.Errorf("%w: fusion weights must be >= 0", domain.ErrInvalidConfig)
	case c.MaxPromptChars <= 0 || c.SourceExcerptChars <= 0:
		return fmt.Errorf("%w: prompt and excerpt bounds must be positive", domain.ErrInvalidConfig)
	case c.HashEmbedDim < 2:
		return fmt.Errorf("%w: HASH_EMBED_DIM must be >= 2, got %d", domain.ErrInvalidConfig, c.HashEmbedDim)
	case c.EmbedRateLimit < 0 || c.HTTPRetries < 0:
		return fmt.Errorf("%w: EMBED_RATE_LIMIT and HTTP_RETRIES must be >= 0", domain.ErrInvalidConfig)
	}
	if c.EmbedProvider != "ollama" && c.EmbedProvider != "openai" && c.EmbedProvider != "hash" {
		return fmt.Errorf("%w: unknown EMBED_PROVIDER %q", domain.ErrInvalidConfig, c.EmbedProvider)
	}
	if c.LLM.Provider != "ollama" && c.LLM.Provider != "openai" {
		return fmt.Errorf("%w: unknown LLM_PROVIDER %q", domain.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.FusionNormalization != "rank" && c.FusionNormalization != "minmax" {
		return fmt.Errorf("%w: unknown FUSION_NORMALIZATION %q", domain.ErrInvalidConfig, c.FusionNormalization)
	}
	switch c.Reranker {
	case "overlap":
	case "http":
		if c.RerankURL == "" {
			return fmt.Errorf("%w: RERANK_URL is required for RERANKER=http", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown RERANKER %q", domain.ErrInvalidConfig, c.Reranker)
	}
	return nil
}

// IndexDir is where the chromem collection is persisted.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "chroma")
}

// ManifestFile is the SQLite ingestion manifest.
func (c *Config) ManifestFile() string {
	return filepath.Join(c.DataDir, "manifest.db")
}

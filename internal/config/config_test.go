package config

import (
	"path/filepath"
	"testing"
	"time"

	"docqa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, Init(&cfg))

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 20, cfg.RetrievalK)
	assert.Equal(t, 6, cfg.RerankTopN)
	assert.InDelta(t, 0.7, cfg.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.LexicalWeight, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, cfg.OllamaURL, cfg.LLM.URL)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAIEmbedModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIEmbedURL)
}

func TestInit_EmbedURLFollowsOpenAICompatibleLLM(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_URL", "http://localhost:8000/v1")

	cfg := Config{}
	require.NoError(t, Init(&cfg))
	assert.Equal(t, "http://localhost:8000/v1", cfg.OpenAIEmbedURL)

	t.Setenv("OPENAI_EMBED_URL", "http://embedder:9000/v1/")
	cfg = Config{}
	require.NoError(t, Init(&cfg))
	assert.Equal(t, "http://embedder:9000/v1", cfg.OpenAIEmbedURL)
	assert.Equal(t, "http://localhost:8000/v1", cfg.LLM.URL)
}

func TestInit_FromEnv(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "400")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATA_DIR", "/tmp/docqa")

	cfg := Config{}
	require.NoError(t, Init(&cfg))

	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.URL)
	assert.Equal(t, "sk-test", cfg.LLM.Key)
	assert.Equal(t, filepath.Join("/tmp/docqa", "manifest.db"), cfg.ManifestFile())
	assert.Equal(t, filepath.Join("/tmp/docqa", "chroma"), cfg.IndexDir())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Config{}
		require.NoError(t, Init(&cfg))
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"zero size", func(c *Config) { c.ChunkSize = 0 }},
		{"zero k", func(c *Config) { c.RetrievalK = 0 }},
		{"zero top n", func(c *Config) { c.RerankTopN = 0 }},
		{"negative weight", func(c *Config) { c.LexicalWeight = -0.1 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"unknown normalization", func(c *Config) { c.FusionNormalization = "zscore" }},
		{"http reranker without url", func(c *Config) { c.Reranker = "http" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}

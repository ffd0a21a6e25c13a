package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"docqa/internal/answer"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/httpclient"
	"docqa/internal/ingest"
	"docqa/internal/llm"
	"docqa/internal/loader"
	"docqa/internal/manifest"
	"docqa/internal/rerank"
	"docqa/internal/retrieval"
	"docqa/internal/vectorstore"

	"github.com/philippgille/chromem-go"
)

// App owns every component of the process. Ingestion takes the write lock,
// queries the read lock, so a query never sees a half-committed run.
type App struct {
	cfg *config.Config
	mu  sync.RWMutex

	manifest  *manifest.Store
	vectors   *vectorstore.Store
	lexical   *retrieval.Lexical
	retriever retrieval.Retriever
	ranker    rerank.Ranker
	assembler *answer.Assembler
	pipeline  *ingest.Pipeline
}

// Option overrides a component built from config.
type Option func(*options)

type options struct {
	generator llm.Generator
	ranker    rerank.Ranker
	embed     chromem.EmbeddingFunc
}

func WithGenerator(g llm.Generator) Option {
	return func(o *options) { o.generator = g }
}

func WithRanker(r rerank.Ranker) Option {
	return func(o *options) { o.ranker = r }
}

func WithEmbeddingFunc(f chromem.EmbeddingFunc) Option {
	return func(o *options) { o.embed = f }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var err error
	if o.embed == nil {
		o.embed, err = embedding.New(cfg)
		if err != nil {
			return nil, err
		}
		o.embed = embedding.WithRateLimit(o.embed, cfg.EmbedRateLimit)
	}
	if o.generator == nil {
		o.generator, err = llm.New(cfg)
		if err != nil {
			return nil, err
		}
	}
	if o.ranker == nil {
		o.ranker = newRanker(cfg)
	}

	a := &App{cfg: cfg, ranker: o.ranker}

	a.manifest, err = manifest.Open(cfg.ManifestFile())
	if err != nil {
		return nil, err
	}
	a.vectors, err = vectorstore.Open(cfg.IndexDir(), cfg.Collection, o.embed, a.manifest)
	if err != nil {
		a.manifest.Close()
		return nil, err
	}
	if err := a.build(cfg, o); err != nil {
		a.manifest.Close()
		return nil, err
	}

	slog.Debug("app initialized",
		"collection", cfg.Collection,
		"chunks", a.vectors.Count(),
		"embed_model", embedding.Model(cfg),
		"llm_model", cfg.LLM.Model,
		"reranker", a.ranker.Name())
	return a, nil
}

func (a *App) build(cfg *config.Config, o options) error {
	a.lexical = retrieval.NewLexical(a.vectors)

	hybrid, err := retrieval.NewHybrid(
		retrieval.NewVector(a.vectors),
		a.lexical,
		retrieval.Weights{Vector: cfg.VectorWeight, Lexical: cfg.LexicalWeight},
		retrieval.Normalization(cfg.FusionNormalization),
	)
	if err != nil {
		return err
	}
	a.retriever, err = rerank.New(hybrid, a.ranker, cfg.RerankTopN)
	if err != nil {
		return err
	}

	a.assembler, err = answer.New(o.generator, answer.Config{
		MaxPromptChars: cfg.MaxPromptChars,
		ExcerptChars:   cfg.SourceExcerptChars,
	})
	if err != nil {
		return err
	}

	c, err := chunker.NewTextChunker(chunker.Config{MaxChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	if err != nil {
		return err
	}
	a.pipeline = ingest.New(loader.NewFactory(), c, a.manifest, a.vectors)
	a.pipeline.OnCommit(a.lexical.Invalidate)
	return nil
}

func newRanker(cfg *config.Config) rerank.Ranker {
	if cfg.Reranker == "http" {
		return rerank.NewHTTP(httpclient.New(cfg.HTTPRetries), cfg.RerankURL, cfg.RerankModel, cfg.RerankAPIKey)
	}
	return rerank.Overlap{}
}

// Close releases the manifest database. The vector index persists on every
// write and needs no flush.
func (a *App) Close() error {
	return a.manifest.Close()
}

// Check verifies that Ollama is reachable and pulls the configured models
// it is missing. Providers other than Ollama are not checked.
func (a *App) Check(ctx context.Context) error {
	var models []string
	if a.cfg.EmbedProvider == "ollama" {
		models = append(models, a.cfg.OllamaEmbedModel)
	}
	if a.cfg.LLM.Provider == "ollama" {
		models = append(models, a.cfg.LLM.Model)
	}
	if len(models) == 0 {
		slog.Info("no ollama models configured, nothing to check")
		return nil
	}
	if err := llm.EnsureModels(ctx, httpclient.New(a.cfg.HTTPRetries), a.cfg.OllamaURL, models...); err != nil {
		return fmt.Errorf("ollama model check failed: %w", err)
	}
	return nil
}

// Export writes the vector collection to path and the manifest next to it,
// at path + ".manifest".
func (a *App) Export(ctx context.Context, path string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.vectors.Export(path); err != nil {
		return err
	}
	if err := a.manifest.Backup(ctx, manifestBackup(path)); err != nil {
		return err
	}
	slog.Info("index exported", "path", path, "chunks", a.vectors.Count())
	return nil
}

// Import replaces the index with a backup written by Export.
func (a *App) Import(ctx context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Open would create an empty manifest, and restoring it would wipe ours.
	if _, err := os.Stat(manifestBackup(path)); err != nil {
		return fmt.Errorf("manifest backup missing: %w", err)
	}
	backup, err := manifest.Open(manifestBackup(path))
	if err != nil {
		return fmt.Errorf("failed to open manifest backup: %w", err)
	}
	defer backup.Close()

	if err := a.vectors.Import(path); err != nil {
		return err
	}
	if err := a.manifest.Restore(ctx, backup); err != nil {
		return err
	}
	a.lexical.Invalidate()

	slog.Info("index imported", "path", path, "chunks", a.vectors.Count())
	return nil
}

func manifestBackup(path string) string {
	return path + ".manifest"
}

package app

import (
	"context"
	"log/slog"
	"time"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/ingest"
)

// Ingest runs one incremental ingestion of the documents directory.
func (a *App) Ingest(ctx context.Context, opts ingest.Options) (domain.IngestReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pipeline.Run(ctx, a.cfg.DocsDir, opts)
}

// Watch ingests once, then again after every burst of changes under the
// documents directory, until ctx is done. Failed runs are logged and the
// watch goes on.
func (a *App) Watch(ctx context.Context, opts ingest.Options, debounce time.Duration) error {
	run := func(ctx context.Context) {
		if _, err := a.Ingest(ctx, opts); err != nil {
			slog.Error("ingestion failed", "error", err)
		}
	}
	run(ctx)
	return ingest.Watch(ctx, a.cfg.DocsDir, debounce, run)
}

// Stats describes the index and the models serving it.
type Stats struct {
	Collection string   `json:"collection" yaml:"collection"`
	Chunks     int      `json:"chunks" yaml:"chunks"`
	Files      int      `json:"files" yaml:"files"`
	EmbedModel string   `json:"embed_model" yaml:"embed_model"`
	LLMModel   string   `json:"llm_model" yaml:"llm_model"`
	Reranker   string   `json:"reranker" yaml:"reranker"`
	LastRun    *RunInfo `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

type RunInfo struct {
	ID         string         `json:"id" yaml:"id"`
	Outcome    domain.Outcome `json:"outcome" yaml:"outcome"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
}

func (a *App) Stats(ctx context.Context) (Stats, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	files, err := a.manifest.Files(ctx)
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Collection: a.cfg.Collection,
		Chunks:     a.vectors.Count(),
		Files:      len(files),
		EmbedModel: embedding.Model(a.cfg),
		LLMModel:   a.cfg.LLM.Model,
		Reranker:   a.ranker.Name(),
	}

	run, ok, err := a.manifest.LastRun(ctx)
	if err != nil {
		return Stats{}, err
	}
	if ok {
		s.LastRun = &RunInfo{ID: run.ID, Outcome: run.Outcome, FinishedAt: run.FinishedAt}
	}
	return s, nil
}

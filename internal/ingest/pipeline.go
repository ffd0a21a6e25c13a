// Package ingest turns the documents directory into indexed chunks. Runs are
// incremental: files whose modification time and size match the manifest are
// not re-embedded.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/loader"
	"docqa/internal/manifest"

	"github.com/google/uuid"
)

// VectorIndex is the part of the vector store ingestion writes to.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Delete(ctx context.Context, ids ...string) error
	Count() int
}

// Options control one run.
type Options struct {
	Force bool // reprocess files even when unchanged
	Prune bool // drop sources no longer present under the root
}

type Pipeline struct {
	loader   *loader.Factory
	chunker  chunker.Chunker
	manifest *manifest.Store
	index    VectorIndex
	onCommit func()
}

func New(l *loader.Factory, c chunker.Chunker, m *manifest.Store, index VectorIndex) *Pipeline {
	return &Pipeline{loader: l, chunker: c, manifest: m, index: index}
}

// OnCommit registers f to be called after a run has changed the index.
func (p *Pipeline) OnCommit(f func()) {
	p.onCommit = f
}

// Run ingests every supported file under root. Files that cannot be read or
// parsed are reported in IngestReport.Failures and do not fail the run.
// Embedding failures and identity collisions abort the run; files committed
// before the failure stay committed.
func (p *Pipeline) Run(ctx context.Context, root string, opts Options) (report domain.IngestReport, err error) {
	started := time.Now()
	report.RunID = uuid.NewString()
	log := slog.With("run_id", report.RunID)

	files, err := p.loader.Scan(root)
	if err != nil {
		return report, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	report.FilesSeen = len(files)
	log.Info("ingestion started", "root", root, "files", len(files), "force", opts.Force)

	changed := false
	defer func() {
		if changed && p.onCommit != nil {
			p.onCommit()
		}
	}()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if !opts.Force {
			rec, ok, err := p.manifest.File(ctx, f.Source)
			if err != nil {
				return report, err
			}
			if ok && rec.Unchanged(f.ModTime, f.Size) {
				log.Debug("skipping unchanged file", "source", f.Source)
				report.FilesUnchanged++
				continue
			}
		}

		doc, err := p.loader.LoadDocument(f)
		if err != nil {
			log.Warn("skipping file", "source", f.Source, "error", err)
			report.Failures = append(report.Failures, domain.FileFailure{Path: f.Source, Error: err.Error()})
			continue
		}

		n, removed, err := p.indexDocument(ctx, f, doc)
		if n > 0 || removed > 0 {
			changed = true
		}
		if err != nil {
			return report, fmt.Errorf("failed to index %s: %w", f.Source, err)
		}
		if n == 0 {
			log.Warn("no extractable text", "source", f.Source)
		}
		log.Debug("indexed file", "source", f.Source, "chunks", n, "superseded", removed)
		report.FilesIndexed++
		report.ChunksProcessed += n
		report.ChunksRemoved += removed
	}

	if opts.Prune {
		pruned, removed, err := p.prune(ctx, files)
		if pruned > 0 {
			changed = true
		}
		report.FilesPruned = pruned
		report.ChunksRemoved += removed
		if err != nil {
			return report, err
		}
	}

	report.IndexSize = p.index.Count()
	switch {
	case report.IndexSize == 0:
		report.Outcome = domain.OutcomeEmptyCorpus
	case changed:
		report.Outcome = domain.OutcomeIndexed
	default:
		report.Outcome = domain.OutcomeUnchanged
	}

	log.Info("ingestion finished",
		"outcome", report.Outcome,
		"files_indexed", report.FilesIndexed,
		"files_unchanged", report.FilesUnchanged,
		"files_failed", len(report.Failures),
		"chunks_processed", report.ChunksProcessed,
		"index_size", report.IndexSize,
		"duration", time.Since(started))

	err = p.manifest.RecordRun(ctx, manifest.Run{
		ID:              report.RunID,
		StartedAt:       started.UTC(),
		FinishedAt:      time.Now().UTC(),
		Outcome:         report.Outcome,
		FilesIndexed:    report.FilesIndexed,
		FilesFailed:     len(report.Failures),
		ChunksProcessed: report.ChunksProcessed,
		IndexSize:       report.IndexSize,
	})
	return report, err
}

// indexDocument writes the chunks of doc and removes those the source no
// longer produces. It returns the number of chunks written and removed. The
// manifest is updated last, so a run that fails part way reprocesses the file
// next time.
func (p *Pipeline) indexDocument(ctx context.Context, f loader.File, doc domain.Document) (int, int, error) {
	chunks := p.chunker.Chunk(doc)

	// A collision must be caught before the upsert overwrites the other
	// source's entry.
	if err := p.manifest.CheckCollisions(ctx, doc.Source, chunks); err != nil {
		return 0, 0, err
	}
	previous, err := p.manifest.ChunkIDs(ctx, doc.Source)
	if err != nil {
		return 0, 0, err
	}
	superseded := supersededIDs(previous, chunks)

	if err := p.index.Upsert(ctx, chunks); err != nil {
		return 0, 0, err
	}
	if err := p.index.Delete(ctx, superseded...); err != nil {
		return len(chunks), 0, err
	}

	err = p.manifest.ReplaceFile(ctx, manifest.FileRecord{
		Source:  doc.Source,
		ModTime: f.ModTime,
		Size:    f.Size,
	}, chunks)
	return len(chunks), len(superseded), err
}

func supersededIDs(previous []string, chunks []domain.Chunk) []string {
	current := make(map[string]struct{}, len(chunks))
	for _, ch := range chunks {
		current[ch.ID] = struct{}{}
	}
	var out []string
	for _, id := range previous {
		if _, ok := current[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (p *Pipeline) prune(ctx context.Context, present []loader.File) (int, int, error) {
	seen := make(map[string]struct{}, len(present))
	for _, f := range present {
		seen[f.Source] = struct{}{}
	}

	records, err := p.manifest.Files(ctx)
	if err != nil {
		return 0, 0, err
	}

	pruned, removed := 0, 0
	for _, rec := range records {
		if _, ok := seen[rec.Source]; ok {
			continue
		}
		ids, err := p.manifest.ChunkIDs(ctx, rec.Source)
		if err != nil {
			return pruned, removed, err
		}
		if err := p.index.Delete(ctx, ids...); err != nil {
			return pruned, removed, fmt.Errorf("failed to prune %s: %w", rec.Source, err)
		}
		if _, err := p.manifest.RemoveFile(ctx, rec.Source); err != nil {
			return pruned, removed, err
		}
		slog.Info("pruned removed source", "source", rec.Source, "chunks", len(ids))
		pruned++
		removed += len(ids)
	}
	return pruned, removed, nil
}

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/loader"
	"docqa/internal/manifest"
	"docqa/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	docs     string
	manifest *manifest.Store
	index    *vectorstore.Store
	pipeline *Pipeline
	commits  int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	m, err := manifest.Open(filepath.Join(dir, "data", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	index, err := vectorstore.Open("", "docs", embedding.NewHashing(64), m)
	require.NoError(t, err)

	c, err := chunker.NewTextChunker(chunker.Config{MaxChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	f := &fixture{docs: filepath.Join(dir, "docs"), manifest: m, index: index}
	require.NoError(t, os.MkdirAll(f.docs, 0o755))
	f.pipeline = New(loader.NewFactory(), c, m, index)
	f.pipeline.OnCommit(func() { f.commits++ })
	return f
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(f.docs, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) run(t *testing.T, opts Options) domain.IngestReport {
	t.Helper()
	report, err := f.pipeline.Run(context.Background(), f.docs, opts)
	require.NoError(t, err)
	return report
}

func TestRun_IndexesCorpus(t *testing.T) {
	f := setup(t)
	f.write(t, "cv/john_doe.txt", "John Doe has 10 years in software engineering.")
	f.write(t, "notes.md", "# Notes\n\nThe office is in Berlin.")

	report := f.run(t, Options{Prune: true})

	assert.Equal(t, domain.OutcomeIndexed, report.Outcome)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.FilesSeen)
	assert.Equal(t, 2, report.FilesIndexed)
	assert.Equal(t, 2, report.ChunksProcessed)
	assert.Equal(t, 2, report.IndexSize)
	assert.Equal(t, 1, f.commits)

	snap, err := f.index.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "cv/john_doe.txt", snap[0].Source)
	assert.Equal(t, chunker.ChunkID("cv/john_doe.txt", 0, 0), snap[0].ID)

	run, ok, err := f.manifest.LastRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.RunID, run.ID)
}

func TestRun_Idempotent(t *testing.T) {
	f := setup(t)
	f.write(t, "a.txt", strings.Repeat("alpha beta gamma ", 30))

	first := f.run(t, Options{Prune: true})
	second := f.run(t, Options{Prune: true})

	assert.Equal(t, domain.OutcomeUnchanged, second.Outcome)
	assert.Equal(t, 1, second.FilesUnchanged)
	assert.Zero(t, second.ChunksProcessed)
	assert.Equal(t, first.IndexSize, second.IndexSize)
	assert.Equal(t, 1, f.commits)

	// Forcing re-embeds the same identifiers; the index does not grow.
	forced := f.run(t, Options{Force: true, Prune: true})
	assert.Equal(t, domain.OutcomeIndexed, forced.Outcome)
	assert.Equal(t, first.IndexSize, forced.IndexSize)
	assert.Zero(t, forced.ChunksRemoved)
}

func TestRun_SupersedesShrunkSource(t *testing.T) {
	f := setup(t)
	f.write(t, "a.txt", strings.Repeat("x", 400))
	first := f.run(t, Options{})
	require.Greater(t, first.IndexSize, 1)

	f.write(t, "a.txt", "short now")
	// mtime resolution may hide a rewrite within the same tick.
	require.NoError(t, os.Chtimes(filepath.Join(f.docs, "a.txt"), time.Now(), time.Now().Add(time.Minute)))

	second := f.run(t, Options{})
	assert.Equal(t, domain.OutcomeIndexed, second.Outcome)
	assert.Equal(t, 1, second.IndexSize)
	assert.Equal(t, first.IndexSize-1, second.ChunksRemoved)

	snap, err := f.index.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "short now", snap[0].Text)
}

func TestRun_PrunesRemovedSource(t *testing.T) {
	f := setup(t)
	f.write(t, "a.txt", "alpha")
	f.write(t, "b.txt", "beta")
	f.run(t, Options{Prune: true})

	require.NoError(t, os.Remove(filepath.Join(f.docs, "b.txt")))

	kept := f.run(t, Options{})
	assert.Equal(t, 2, kept.IndexSize, "without prune the source stays")

	report := f.run(t, Options{Prune: true})
	assert.Equal(t, 1, report.FilesPruned)
	assert.Equal(t, 1, report.IndexSize)
	assert.Equal(t, domain.OutcomeIndexed, report.Outcome)
}

func TestRun_EmptyCorpus(t *testing.T) {
	f := setup(t)
	f.write(t, "blank.txt", "   \n\n  ")
	f.write(t, "image.png", "not a document")

	report := f.run(t, Options{Prune: true})

	assert.Equal(t, domain.OutcomeEmptyCorpus, report.Outcome)
	assert.Equal(t, 1, report.FilesSeen)
	assert.Zero(t, report.IndexSize)
	assert.Zero(t, f.commits)
}

func TestRun_RecordsFailuresAndContinues(t *testing.T) {
	f := setup(t)
	f.write(t, "bad.txt", "\xff\xfe\xfd")
	f.write(t, "broken.pdf", "%PDF-1.4 garbage")
	f.write(t, "good.txt", "readable text")

	report := f.run(t, Options{})

	assert.Equal(t, domain.OutcomeIndexed, report.Outcome)
	assert.Equal(t, 1, report.FilesIndexed)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "bad.txt", report.Failures[0].Path)
	assert.Equal(t, "broken.pdf", report.Failures[1].Path)
}

type failingIndex struct {
	*vectorstore.Store
	err error
}

func (f failingIndex) Upsert(context.Context, []domain.Chunk) error { return f.err }

func TestRun_EmbeddingFailureAborts(t *testing.T) {
	f := setup(t)
	f.write(t, "a.txt", "alpha")

	boom := errors.New("embedder offline")
	c, err := chunker.NewTextChunker(chunker.Config{MaxChunkSize: 100, Overlap: 20})
	require.NoError(t, err)
	p := New(loader.NewFactory(), c, f.manifest, failingIndex{Store: f.index, err: boom})

	_, err = p.Run(context.Background(), f.docs, Options{})
	assert.ErrorIs(t, err, boom)

	n, err := f.manifest.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is recorded for a file that was not indexed")
}

func TestRun_MissingRoot(t *testing.T) {
	f := setup(t)
	_, err := f.pipeline.Run(context.Background(), filepath.Join(f.docs, "nope"), Options{})
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	f := setup(t)
	f.write(t, "a.txt", "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline.Run(ctx, f.docs, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

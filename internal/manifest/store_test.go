package manifest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func chunksFor(source string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: chunker.ChunkID(source, 0, i), Source: source, Index: i}
	}
	return chunks
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	err = s.ReplaceFile(ctx, FileRecord{Source: "a.txt", ModTime: time.Unix(100, 0), Size: 3}, chunksFor("a.txt", 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReplaceFile_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	mod := time.Unix(1700000000, 123456789)

	err := s.ReplaceFile(ctx, FileRecord{Source: "cv.pdf", ModTime: mod, Size: 42}, chunksFor("cv.pdf", 3))
	require.NoError(t, err)

	rec, ok, err := s.File(ctx, "cv.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Unchanged(mod, 42))
	assert.False(t, rec.Unchanged(mod, 43))
	assert.Equal(t, 3, rec.ChunkCount)

	_, ok, err = s.File(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceFile_Supersedes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rec := FileRecord{Source: "a.txt", ModTime: time.Unix(1, 0), Size: 1}

	err := s.ReplaceFile(ctx, rec, chunksFor("a.txt", 5))
	require.NoError(t, err)

	err = s.ReplaceFile(ctx, rec, chunksFor("a.txt", 2))
	require.NoError(t, err)

	ids, err := s.ChunkIDs(ctx, "a.txt")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{chunker.ChunkID("a.txt", 0, 0), chunker.ChunkID("a.txt", 0, 1)}, ids)

	f, ok, err := s.File(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, f.ChunkCount)
}

func TestReplaceFile_SameChunksKeepsIDs(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rec := FileRecord{Source: "a.txt", ModTime: time.Unix(1, 0), Size: 1}

	err := s.ReplaceFile(ctx, rec, chunksFor("a.txt", 3))
	require.NoError(t, err)
	err = s.ReplaceFile(ctx, rec, chunksFor("a.txt", 3))
	require.NoError(t, err)

	ids, err := s.ChunkIDs(ctx, "a.txt")
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestCheckCollisions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.ReplaceFile(ctx, FileRecord{Source: "a.txt"}, chunksFor("a.txt", 2))
	require.NoError(t, err)

	// Own identifiers are not collisions.
	assert.NoError(t, s.CheckCollisions(ctx, "a.txt", chunksFor("a.txt", 2)))

	stolen := []domain.Chunk{{ID: chunker.ChunkID("a.txt", 0, 1), Source: "b.txt"}}
	err = s.CheckCollisions(ctx, "b.txt", stolen)
	assert.ErrorIs(t, err, domain.ErrIdentityCollision)

	err = s.ReplaceFile(ctx, FileRecord{Source: "b.txt"}, stolen)
	assert.ErrorIs(t, err, domain.ErrIdentityCollision)

	dup := []domain.Chunk{{ID: "x", Source: "c.txt"}, {ID: "x", Source: "c.txt", Index: 1}}
	assert.ErrorIs(t, s.CheckCollisions(ctx, "c.txt", dup), domain.ErrIdentityCollision)
}

func TestSnapshotIDs_Order(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.ReplaceFile(ctx, FileRecord{Source: "b.txt"}, chunksFor("b.txt", 2))
	require.NoError(t, err)
	err = s.ReplaceFile(ctx, FileRecord{Source: "a.txt"}, chunksFor("a.txt", 2))
	require.NoError(t, err)

	ids, err := s.SnapshotIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		chunker.ChunkID("a.txt", 0, 0), chunker.ChunkID("a.txt", 0, 1),
		chunker.ChunkID("b.txt", 0, 0), chunker.ChunkID("b.txt", 0, 1),
	}, ids)
}

func TestRemoveFile(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.ReplaceFile(ctx, FileRecord{Source: "a.txt"}, chunksFor("a.txt", 3))
	require.NoError(t, err)

	removed, err := s.RemoveFile(ctx, "a.txt")
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	files, err := s.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	src := setupStore(t)
	mod := time.Unix(1700000000, 0)

	err := src.ReplaceFile(ctx, FileRecord{Source: "a.txt", ModTime: mod, Size: 10}, chunksFor("a.txt", 2))
	require.NoError(t, err)
	err = src.ReplaceFile(ctx, FileRecord{Source: "b.txt", ModTime: mod, Size: 20}, chunksFor("b.txt", 1))
	require.NoError(t, err)

	backupPath := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, src.Backup(ctx, backupPath))

	backup, err := Open(backupPath)
	require.NoError(t, err)
	defer backup.Close()

	dst := setupStore(t)
	err = dst.ReplaceFile(ctx, FileRecord{Source: "old.txt"}, chunksFor("old.txt", 4))
	require.NoError(t, err)

	require.NoError(t, dst.Restore(ctx, backup))

	want, err := src.Chunks(ctx)
	require.NoError(t, err)
	got, err := dst.Chunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	rec, ok, err := dst.File(ctx, "b.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Unchanged(mod, 20))

	_, ok, err = dst.File(ctx, "old.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRuns(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.RecordRun(ctx, Run{ID: "r1", StartedAt: start, FinishedAt: start.Add(time.Second), Outcome: domain.OutcomeIndexed, ChunksProcessed: 4, IndexSize: 4}))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "r2", StartedAt: start.Add(time.Minute), FinishedAt: start.Add(2 * time.Minute), Outcome: domain.OutcomeUnchanged, IndexSize: 4}))

	run, ok, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r2", run.ID)
	assert.Equal(t, domain.OutcomeUnchanged, run.Outcome)
	assert.Equal(t, 4, run.IndexSize)
}

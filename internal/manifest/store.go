// Package manifest tracks what has been ingested: one row per indexed file
// and one row per chunk identifier, in snapshot order.
package manifest

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
	"docqa/internal/manifest/migrations"
)

// FileRecord is the ingestion state of one source file.
type FileRecord struct {
	Source     string
	ModTime    time.Time
	Size       int64
	ChunkCount int
	IndexedAt  time.Time
}

// Unchanged reports whether the file on disk still matches the record.
func (r FileRecord) Unchanged(modTime time.Time, size int64) bool {
	return r.ModTime.Equal(modTime) && r.Size == size
}

// Run is one recorded ingestion run.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Outcome         domain.Outcome
	FilesIndexed    int
	FilesFailed     int
	ChunksProcessed int
	IndexSize       int
}

// Store is the SQLite-backed manifest.
type Store struct {
	db *sql.DB
}

// Open opens or creates the manifest database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// File returns the record for source, if any.
func (s *Store) File(ctx context.Context, source string) (FileRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT source, mod_time, size, chunk_count, indexed_at FROM files WHERE source = ?", source)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("getting file %s: %w", source, err)
	}
	return rec, true, nil
}

// Files returns all file records ordered by source.
func (s *Store) Files(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source, mod_time, size, chunk_count, indexed_at FROM files ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, rec)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (FileRecord, error) {
	var (
		rec       FileRecord
		modTime   int64
		indexedAt sql.NullTime
	)
	if err := row.Scan(&rec.Source, &modTime, &rec.Size, &rec.ChunkCount, &indexedAt); err != nil {
		return FileRecord{}, err
	}
	rec.ModTime = time.Unix(0, modTime)
	if indexedAt.Valid {
		rec.IndexedAt = indexedAt.Time
	}
	return rec, nil
}

// ChunkIDs returns the identifiers recorded for source in chunk order.
func (s *Store) ChunkIDs(ctx context.Context, source string) ([]string, error) {
	return s.queryIDs(ctx, "SELECT id FROM chunks WHERE source = ? ORDER BY idx", source)
}

// SnapshotIDs returns every indexed identifier in snapshot order: by source,
// then by chunk index.
func (s *Store) SnapshotIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "SELECT id FROM chunks ORDER BY source, idx")
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountChunks returns the number of recorded chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// CheckCollisions fails with domain.ErrIdentityCollision when any chunk
// identifier is already owned by a different source, or repeats in chunks.
func (s *Store) CheckCollisions(ctx context.Context, source string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	return checkCollisions(ctx, tx, source, chunks)
}

func checkCollisions(ctx context.Context, tx *sql.Tx, source string, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, "SELECT source FROM chunks WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing collision check: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(chunks))
	for _, ch := range chunks {
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("%w: %s repeats within %s", domain.ErrIdentityCollision, ch.ID, source)
		}
		seen[ch.ID] = struct{}{}

		var owner string
		err := stmt.QueryRowContext(ctx, ch.ID).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("checking %s: %w", ch.ID, err)
		case owner != source:
			return fmt.Errorf("%w: %s is owned by %s, produced again by %s",
				domain.ErrIdentityCollision, ch.ID, owner, source)
		}
	}
	return nil
}

// ReplaceFile records rec with exactly chunks. Identifiers the source owned
// before and no longer produces are forgotten.
func (s *Store) ReplaceFile(ctx context.Context, rec FileRecord, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkCollisions(ctx, tx, rec.Source, chunks); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (source, mod_time, size, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			mod_time = excluded.mod_time,
			size = excluded.size,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at
	`, rec.Source, rec.ModTime.UnixNano(), rec.Size, len(chunks), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving file %s: %w", rec.Source, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", rec.Source); err != nil {
		return fmt.Errorf("clearing chunks of %s: %w", rec.Source, err)
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", rec.Source, err)
	}
	return nil
}

// RemoveFile forgets source and returns the identifiers it owned.
func (s *Store) RemoveFile(ctx context.Context, source string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := idsInTx(ctx, tx, source)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return nil, fmt.Errorf("removing chunks of %s: %w", source, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE source = ?", source); err != nil {
		return nil, fmt.Errorf("removing file %s: %w", source, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing removal of %s: %w", source, err)
	}
	return ids, nil
}

// Chunks returns every recorded chunk, without text, in snapshot order.
func (s *Store) Chunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, source, page, idx FROM chunks ORDER BY source, idx")
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var ch domain.Chunk
		if err := rows.Scan(&ch.ID, &ch.Source, &ch.Page, &ch.Index); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

// Backup writes a consistent copy of the manifest to path.
func (s *Store) Backup(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("backing up manifest: %w", err)
	}
	return nil
}

// Restore replaces the files and chunks of s with those of from. The run
// history of s is kept.
func (s *Store) Restore(ctx context.Context, from *Store) error {
	files, err := from.Files(ctx)
	if err != nil {
		return err
	}
	chunks, err := from.Chunks(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}
	for _, rec := range files {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO files (source, mod_time, size, chunk_count, indexed_at) VALUES (?, ?, ?, ?, ?)",
			rec.Source, rec.ModTime.UnixNano(), rec.Size, rec.ChunkCount, rec.IndexedAt.UTC())
		if err != nil {
			return fmt.Errorf("restoring file %s: %w", rec.Source, err)
		}
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}
	return tx.Commit()
}

func idsInTx(ctx context.Context, tx *sql.Tx, source string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE source = ? ORDER BY idx", source)
	if err != nil {
		return nil, fmt.Errorf("listing chunks of %s: %w", source, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (id, source, page, idx) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.Source, ch.Page, ch.Index); err != nil {
			return fmt.Errorf("saving chunk %s: %w", ch.ID, err)
		}
	}
	return nil
}

// RecordRun appends an ingestion run to the history.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, outcome, files_indexed, files_failed, chunks_processed, index_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), string(run.Outcome),
		run.FilesIndexed, run.FilesFailed, run.ChunksProcessed, run.IndexSize)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recent ingestion run, if any.
func (s *Store) LastRun(ctx context.Context) (Run, bool, error) {
	var (
		run     Run
		outcome string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, outcome, files_indexed, files_failed, chunks_processed, index_size
		FROM runs ORDER BY finished_at DESC LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &outcome,
		&run.FilesIndexed, &run.FilesFailed, &run.ChunksProcessed, &run.IndexSize)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("getting last run: %w", err)
	}
	run.Outcome = domain.Outcome(outcome)
	return run, true, nil
}

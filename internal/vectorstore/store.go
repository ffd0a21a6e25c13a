// Package vectorstore adapts a chromem collection to the index contract:
// upsert by chunk identifier, nearest-neighbour query and snapshot.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"docqa/internal/domain"

	"github.com/philippgille/chromem-go"
)

// RankerName labels candidates produced by this package.
const RankerName = "vector"

// Metadata keys stored with every document.
const (
	metaSource = "source"
	metaPage   = "page"
	metaIndex  = "index"
	metaOffset = "offset"
)

// IDLister enumerates the indexed identifiers in snapshot order. chromem
// has no listing API, so the ingestion manifest provides the order.
type IDLister interface {
	SnapshotIDs(ctx context.Context) ([]string, error)
}

// Store is the vector index.
type Store struct {
	mu          sync.RWMutex
	db          *chromem.DB
	coll        *chromem.Collection
	name        string
	embed       chromem.EmbeddingFunc
	ids         IDLister
	concurrency int
}

// Open opens the collection name persisted under dir, creating it when
// missing. An empty dir keeps the index in memory.
func Open(dir, name string, embed chromem.EmbeddingFunc, ids IDLister) (*Store, error) {
	db := chromem.NewDB()
	if dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector db at %s: %w", dir, err)
		}
	}

	coll, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	return &Store{
		db:          db,
		coll:        coll,
		name:        name,
		embed:       embed,
		ids:         ids,
		concurrency: runtime.NumCPU(),
	}, nil
}

func (s *Store) collection() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	return s.collection().Count()
}

// Upsert embeds and writes chunks, replacing entries with the same
// identifier.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:       ch.ID,
			Content:  ch.Text,
			Metadata: metadata(ch),
		}
	}

	if err := s.collection().AddDocuments(ctx, docs, s.concurrency); err != nil {
		return fmt.Errorf("failed to upsert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// Query returns up to k chunks nearest to text, highest similarity first.
// An empty index yields an empty result.
func (s *Store) Query(ctx context.Context, text string, k int) (domain.Ranked, error) {
	coll := s.collection()

	n := min(k, coll.Count())
	if n <= 0 {
		return domain.Ranked{}, nil
	}

	results, err := coll.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	ranked := make(domain.Ranked, 0, len(results))
	for _, r := range results {
		ranked = append(ranked, domain.Candidate{
			Chunk:  toChunk(r.ID, r.Content, r.Metadata),
			Score:  float64(r.Similarity),
			Ranker: RankerName,
		})
	}
	return ranked, nil
}

// Snapshot returns every indexed chunk in snapshot order.
func (s *Store) Snapshot(ctx context.Context) ([]domain.Chunk, error) {
	ids, err := s.ids.SnapshotIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot ids: %w", err)
	}
	return s.Get(ctx, ids)
}

// Get returns the chunks with the given identifiers. Identifiers missing
// from the collection are skipped and logged.
func (s *Store) Get(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	coll := s.collection()

	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := coll.GetByID(ctx, id)
		if err != nil {
			slog.Warn("chunk listed in manifest is missing from the vector index", "id", id, "error", err)
			continue
		}
		chunks = append(chunks, toChunk(doc.ID, doc.Content, doc.Metadata))
	}
	return chunks, nil
}

// Delete removes the given identifiers.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection().Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete %d chunks: %w", len(ids), err)
	}
	return nil
}

// Export writes the collection to a gob file, gzip-compressed when path
// ends in ".gz".
func (s *Store) Export(path string) error {
	if err := s.db.ExportToFile(path, strings.HasSuffix(path, ".gz"), "", s.name); err != nil {
		return fmt.Errorf("failed to export collection: %w", err)
	}
	return nil
}

// Import replaces the collection with the one stored in path.
func (s *Store) Import(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ImportFromFile(path, "", s.name); err != nil {
		return fmt.Errorf("failed to import collection: %w", err)
	}
	coll := s.db.GetCollection(s.name, s.embed)
	if coll == nil {
		return fmt.Errorf("collection %s not found in %s", s.name, path)
	}
	s.coll = coll
	return nil
}

func metadata(ch domain.Chunk) map[string]string {
	return map[string]string{
		metaSource: ch.Source,
		metaPage:   strconv.Itoa(ch.Page),
		metaIndex:  strconv.Itoa(ch.Index),
		metaOffset: strconv.Itoa(ch.Offset),
	}
}

func toChunk(id, content string, meta map[string]string) domain.Chunk {
	page, _ := strconv.Atoi(meta[metaPage])
	index, _ := strconv.Atoi(meta[metaIndex])
	offset, _ := strconv.Atoi(meta[metaOffset])
	return domain.Chunk{
		ID:     id,
		Text:   content,
		Source: meta[metaSource],
		Page:   page,
		Index:  index,
		Offset: offset,
	}
}

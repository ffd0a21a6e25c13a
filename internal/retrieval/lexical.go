package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docqa/internal/domain"
	"docqa/internal/lexical"
)

// Snapshotter returns every indexed chunk in snapshot order.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]domain.Chunk, error)
}

// Lexical retrieves by BM25 over the committed snapshot of the vector
// index. The BM25 index is built on first use and kept until Invalidate is
// called, which ingestion does after every commit.
type Lexical struct {
	source Snapshotter

	mu    sync.Mutex
	index *lexical.Index
	gen   uint64
}

func NewLexical(source Snapshotter) *Lexical {
	return &Lexical{source: source}
}

// Invalidate drops the cached index; the next query rebuilds it.
func (l *Lexical) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index = nil
	l.gen++
}

// Index returns the cached BM25 index, building it if needed.
func (l *Lexical) Index(ctx context.Context) (*lexical.Index, error) {
	l.mu.Lock()
	if l.index != nil {
		ix := l.index
		l.mu.Unlock()
		return ix, nil
	}
	gen := l.gen
	l.mu.Unlock()

	start := time.Now()
	chunks, err := l.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load index snapshot: %w", err)
	}
	ix := lexical.Build(chunks)
	slog.Debug("lexical index built", "chunks", ix.Len(), "duration", time.Since(start))

	l.mu.Lock()
	defer l.mu.Unlock()
	// Keep the result only if no commit happened while building.
	if l.gen == gen {
		l.index = ix
	}
	return ix, nil
}

// Len returns the number of chunks in the lexical index.
func (l *Lexical) Len(ctx context.Context) (int, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return 0, err
	}
	return ix.Len(), nil
}

func (l *Lexical) Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error) {
	ix, err := l.Index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.Query(query, k), nil
}

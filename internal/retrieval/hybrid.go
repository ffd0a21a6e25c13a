package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"docqa/internal/domain"

	"golang.org/x/sync/errgroup"
)

// RankerName labels fused candidates.
const RankerName = "hybrid"

// RankConstant is c in the rank normalization (c+1)/(c+r).
const RankConstant = 60

// Normalization maps one ranker's result set to scores in [0, 1].
type Normalization string

const (
	// NormalizeRank scores the r-th result (1-based) as (c+1)/(c+r), so the
	// top result scores 1 and raw score scales never matter.
	NormalizeRank Normalization = "rank"
	// NormalizeMinMax rescales raw scores to [0, 1] within the result set.
	NormalizeMinMax Normalization = "minmax"
)

// LexicalSource is a lexical retriever that can report its corpus size.
type LexicalSource interface {
	Retriever
	Len(ctx context.Context) (int, error)
}

// Weights of the two rankers in the combined score.
type Weights struct {
	Vector  float64
	Lexical float64
}

// Hybrid fuses vector and lexical results by weighted normalized score.
type Hybrid struct {
	vector        Retriever
	lexical       LexicalSource
	weights       Weights
	normalization Normalization
}

func NewHybrid(vector Retriever, lexical LexicalSource, weights Weights, normalization Normalization) (*Hybrid, error) {
	if weights.Vector < 0 || weights.Lexical < 0 {
		return nil, fmt.Errorf("%w: fusion weights must be >= 0", domain.ErrInvalidConfig)
	}
	switch normalization {
	case NormalizeRank, NormalizeMinMax:
	case "":
		normalization = NormalizeRank
	default:
		return nil, fmt.Errorf("%w: unknown normalization %q", domain.ErrInvalidConfig, normalization)
	}
	return &Hybrid{vector: vector, lexical: lexical, weights: weights, normalization: normalization}, nil
}

// Retrieve runs both retrievers with the same budget k and fuses the
// results. When the lexical corpus is empty, vector results are returned
// unfused.
func (h *Hybrid) Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error) {
	var (
		vec, lex domain.Ranked
		lexSize  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vec, err = h.vector.Retrieve(gctx, query, k)
		if err != nil {
			return fmt.Errorf("vector retrieval: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		lexSize, err = h.lexical.Len(gctx)
		if err != nil {
			return fmt.Errorf("lexical index: %w", err)
		}
		if lexSize == 0 {
			return nil
		}
		lex, err = h.lexical.Retrieve(gctx, query, k)
		if err != nil {
			return fmt.Errorf("lexical retrieval: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if lexSize == 0 {
		slog.Debug("lexical index is empty, serving vector results", "candidates", len(vec))
		return vec, nil
	}

	fused := Fuse(vec, lex, h.weights, h.normalization)
	slog.Debug("hybrid fusion", "vector", len(vec), "lexical", len(lex), "fused", len(fused))
	return fused, nil
}

// Fuse merges two ranked sets. Every distinct chunk gets
// w.Vector*nv + w.Lexical*nl, where a chunk missing from one set has a zero
// term for it. Ties break by vector score, lexical score, then identifier.
func Fuse(vec, lex domain.Ranked, w Weights, norm Normalization) domain.Ranked {
	nv := normalize(vec, norm)
	nl := normalize(lex, norm)

	byID := make(map[string]*domain.Candidate, len(vec)+len(lex))
	order := make([]string, 0, len(vec)+len(lex))
	add := func(c domain.Candidate) *domain.Candidate {
		if existing, ok := byID[c.Chunk.ID]; ok {
			return existing
		}
		fc := &domain.Candidate{Chunk: c.Chunk, Ranker: RankerName}
		byID[c.Chunk.ID] = fc
		order = append(order, c.Chunk.ID)
		return fc
	}

	for i, c := range vec {
		fc := add(c)
		fc.VectorScore = math.Max(fc.VectorScore, nv[i])
	}
	for i, c := range lex {
		fc := add(c)
		fc.LexicalScore = math.Max(fc.LexicalScore, nl[i])
	}

	fused := make(domain.Ranked, 0, len(order))
	for _, id := range order {
		fc := byID[id]
		fc.Score = w.Vector*fc.VectorScore + w.Lexical*fc.LexicalScore
		fused = append(fused, *fc)
	}

	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		if a.LexicalScore != b.LexicalScore {
			return a.LexicalScore > b.LexicalScore
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	return fused
}

func normalize(r domain.Ranked, norm Normalization) []float64 {
	out := make([]float64, len(r))
	if len(r) == 0 {
		return out
	}

	if norm == NormalizeMinMax {
		lo, hi := r[0].Score, r[0].Score
		for _, c := range r {
			lo = math.Min(lo, c.Score)
			hi = math.Max(hi, c.Score)
		}
		for i, c := range r {
			if hi == lo {
				out[i] = 1
				continue
			}
			out[i] = (c.Score - lo) / (hi - lo)
		}
		return out
	}

	for i := range r {
		out[i] = float64(RankConstant+1) / float64(RankConstant+i+1)
	}
	return out
}

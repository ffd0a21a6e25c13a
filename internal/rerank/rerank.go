// Package rerank reorders a candidate set with a finer relevance model and
// keeps the top N.
package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"docqa/internal/domain"
	"docqa/internal/retrieval"
)

// Ranker scores every candidate against query and returns them sorted by
// the new score, best first.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates domain.Ranked) (domain.Ranked, error)
	Name() string
}

// Reranked composes a base retriever with a ranker: the base retrieves with
// the candidate budget k, the ranker reorders and the result is cut to TopN.
// A ranker failure fails the retrieval; unranked candidates are never
// passed on.
type Reranked struct {
	base   retrieval.Retriever
	ranker Ranker
	topN   int
}

func New(base retrieval.Retriever, ranker Ranker, topN int) (*Reranked, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: rerank top-N must be >= 1, got %d", domain.ErrInvalidConfig, topN)
	}
	return &Reranked{base: base, ranker: ranker, topN: topN}, nil
}

func (r *Reranked) Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error) {
	candidates, err := r.base.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return domain.Ranked{}, nil
	}

	ranked, err := r.ranker.Rank(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRerankUnavailable, r.ranker.Name(), err)
	}
	if len(ranked) > r.topN {
		ranked = ranked[:r.topN]
	}

	slog.Debug("reranked", "ranker", r.ranker.Name(), "candidates", len(candidates), "kept", len(ranked))
	return ranked, nil
}

// sortByScore orders candidates by descending score, keeping input order
// among equals.
func sortByScore(r domain.Ranked) {
	sort.SliceStable(r, func(i, j int) bool { return r[i].Score > r[j].Score })
}

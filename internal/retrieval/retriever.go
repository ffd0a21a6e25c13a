// Package retrieval produces ranked candidate sets for a query.
package retrieval

import (
	"context"

	"docqa/internal/domain"
)

// Retriever returns up to k candidates for query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error)
}

// Func adapts a function to Retriever.
type Func func(ctx context.Context, query string, k int) (domain.Ranked, error)

func (f Func) Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error) {
	return f(ctx, query, k)
}

// VectorIndex is the nearest-neighbour side of the index.
type VectorIndex interface {
	Query(ctx context.Context, text string, k int) (domain.Ranked, error)
}

// Vector retrieves by embedding similarity.
type Vector struct {
	index VectorIndex
}

func NewVector(index VectorIndex) *Vector {
	return &Vector{index: index}
}

func (v *Vector) Retrieve(ctx context.Context, query string, k int) (domain.Ranked, error) {
	return v.index.Query(ctx, query, k)
}

// Package lexical ranks chunks by BM25 keyword statistics.
package lexical

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// RankerName labels candidates produced by this package.
const RankerName = "lexical"

// BM25 parameters.
const (
	K1 = 1.5
	B  = 0.75
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

type document struct {
	chunk  domain.Chunk
	tf     map[string]int
	length int
}

// Index is an immutable BM25 index over a snapshot of chunks. It is safe
// for concurrent queries.
type Index struct {
	docs  []document
	df    map[string]int
	avgdl float64
}

// Build indexes chunks. Their order is the snapshot order used to break
// score ties.
func Build(chunks []domain.Chunk) *Index {
	ix := &Index{
		docs: make([]document, 0, len(chunks)),
		df:   make(map[string]int),
	}

	total := 0
	for _, ch := range chunks {
		tokens := Tokenize(ch.Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			ix.df[tok]++
		}
		ix.docs = append(ix.docs, document{chunk: ch, tf: tf, length: len(tokens)})
		total += len(tokens)
	}
	if len(chunks) > 0 {
		ix.avgdl = float64(total) / float64(len(chunks))
	}
	return ix
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.docs)
}

func (ix *Index) idf(term string) float64 {
	n := float64(ix.df[term])
	N := float64(len(ix.docs))
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}

// score returns the BM25 score of the i-th indexed chunk for the query terms.
func (ix *Index) score(i int, terms []string) float64 {
	d := ix.docs[i]
	norm := 1.0
	if ix.avgdl > 0 {
		norm = 1 - B + B*float64(d.length)/ix.avgdl
	}

	var s float64
	for _, term := range terms {
		f := float64(d.tf[term])
		if f == 0 {
			continue
		}
		s += ix.idf(term) * f * (K1 + 1) / (f + K1*norm)
	}
	return s
}

// Query returns up to k chunks containing at least one query term, by
// descending score. Equal scores keep snapshot order.
func (ix *Index) Query(text string, k int) domain.Ranked {
	terms := Tokenize(text)
	if k <= 0 || len(terms) == 0 || len(ix.docs) == 0 {
		return domain.Ranked{}
	}

	results := domain.Ranked{}
	for i := range ix.docs {
		s := ix.score(i, terms)
		if s <= 0 {
			continue
		}
		results = append(results, domain.Candidate{
			Chunk:  ix.docs[i].chunk,
			Score:  s,
			Ranker: RankerName,
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

package rerank

import (
	"context"

	"docqa/internal/domain"
	"docqa/internal/lexical"
)

// Overlap is a local ranker scoring each candidate by how much of the query
// it covers: the share of distinct query terms present, plus a smaller
// share of query bigrams present in order. It needs no external service.
type Overlap struct{}

func (Overlap) Name() string { return "overlap" }

func (Overlap) Rank(ctx context.Context, query string, candidates domain.Ranked) (domain.Ranked, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qTerms := lexical.Tokenize(query)
	terms := distinct(qTerms)
	bigrams := distinct(pairs(qTerms))

	out := make(domain.Ranked, len(candidates))
	for i, c := range candidates {
		dTerms := lexical.Tokenize(c.Chunk.Text)
		out[i] = c
		out[i].Score = coverage(terms, set(dTerms)) + 0.5*coverage(bigrams, set(pairs(dTerms)))
		out[i].Ranker = "overlap"
	}
	sortByScore(out)
	return out, nil
}

func pairs(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 1; i < len(tokens); i++ {
		out = append(out, tokens[i-1]+" "+tokens[i])
	}
	return out
}

func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func set(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func coverage(want []string, have map[string]struct{}) float64 {
	if len(want) == 0 {
		return 0
	}
	hit := 0
	for _, t := range want {
		if _, ok := have[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}

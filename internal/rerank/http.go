package rerank

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/httpclient"
)

// HTTP calls a cross-encoder service speaking the /rerank wire format
// shared by Cohere, Jina, Voyage and text-embeddings-inference.
type HTTP struct {
	client *httpclient.Client
	url    string
	model  string
}

// NewHTTP returns a ranker posting to url. A non-empty apiKey is sent as a
// bearer token.
func NewHTTP(client *httpclient.Client, url, model, apiKey string) *HTTP {
	if apiKey != "" {
		client.Headers["Authorization"] = "Bearer " + apiKey
	}
	return &HTTP{client: client, url: url, model: model}
}

func (h *HTTP) Name() string { return "http:" + h.model }

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (h *HTTP) Rank(ctx context.Context, query string, candidates domain.Ranked) (domain.Ranked, error) {
	req := rerankRequest{
		Model:     h.model,
		Query:     query,
		Documents: make([]string, len(candidates)),
		TopN:      len(candidates),
	}
	for i, c := range candidates {
		req.Documents[i] = c.Chunk.Text
	}

	var resp rerankResponse
	if err := h.client.PostJSON(ctx, h.url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(candidates) {
		return nil, fmt.Errorf("rerank returned %d results for %d documents", len(resp.Results), len(candidates))
	}

	// Rebuild in candidate order so equal scores keep the hybrid ranking.
	out := make(domain.Ranked, len(candidates))
	seen := make([]bool, len(candidates))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(candidates) || seen[r.Index] {
			return nil, fmt.Errorf("rerank returned invalid index %d", r.Index)
		}
		seen[r.Index] = true

		out[r.Index] = candidates[r.Index]
		out[r.Index].Score = r.RelevanceScore
		out[r.Index].Ranker = h.Name()
	}
	sortByScore(out)
	return out, nil
}

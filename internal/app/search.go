package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docqa/internal/domain"

	"github.com/google/uuid"
)

// Ask answers one question. Input errors (empty or overlong question) are
// returned as is; every other failure is logged under the request id and
// reported as domain.ErrQueryFailed.
func (a *App) Ask(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.QueryResponse{}, domain.ErrEmptyQuestion
	}

	log := slog.With("request_id", uuid.NewString())
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	a.mu.RLock()
	defer a.mu.RUnlock()

	start := time.Now()
	ranked, err := a.retriever.Retrieve(ctx, question, a.cfg.RetrievalK)
	if err != nil {
		log.Error("retrieval failed", "error", err)
		return domain.QueryResponse{}, domain.ErrQueryFailed
	}

	ans, err := a.assembler.Answer(ctx, question, ranked)
	if errors.Is(err, domain.ErrQuestionTooLong) {
		return domain.QueryResponse{}, err
	}
	if err != nil {
		log.Error("answer failed", "error", err)
		return domain.QueryResponse{}, domain.ErrQueryFailed
	}

	log.Info("question answered",
		"context_chunks", len(ans.Sources),
		"no_context", ans.NoContext,
		"duration", time.Since(start))
	return domain.QueryResponse{Answer: ans.Text, Sources: ans.Sources}, nil
}

// Search returns the reranked context a question would be answered from,
// without calling the generator.
func (a *App) Search(ctx context.Context, query string) (domain.Ranked, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retriever.Retrieve(ctx, query, a.cfg.RetrievalK)
}

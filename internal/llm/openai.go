package llm

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/httpclient"
)

// OpenAI talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAI struct {
	client *httpclient.Client
	url    string
	opts   Options
}

func NewOpenAI(client *httpclient.Client, baseURL, apiKey string, opts Options) *OpenAI {
	if apiKey != "" {
		client.Headers["Authorization"] = "Bearer " + apiKey
	}
	return &OpenAI{
		client: client,
		url:    strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		opts:   opts,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:       o.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	}

	var resp chatResponse
	if err := o.client.PostJSON(ctx, o.url, req, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from LLM", domain.ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/httpclient"
)

// Ollama talks to the native /api/generate endpoint.
type Ollama struct {
	client  *httpclient.Client
	baseURL string
	opts    Options
}

func NewOllama(client *httpclient.Client, baseURL string, opts Options) *Ollama {
	return &Ollama{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), opts: opts}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  o.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": o.opts.Temperature,
			"num_predict": o.opts.MaxTokens,
		},
	}

	var resp generateResponse
	if err := o.client.PostJSON(ctx, o.baseURL+"/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", fmt.Errorf("%w: empty response from ollama", domain.ErrGeneration)
	}
	return resp.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// EnsureModels checks that Ollama is reachable at baseURL and pulls any of
// models it does not have yet.
func EnsureModels(ctx context.Context, client *httpclient.Client, baseURL string, models ...string) error {
	baseURL = strings.TrimSuffix(baseURL, "/")

	available, err := listModels(ctx, client, baseURL)
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s: %w", baseURL, err)
	}

	for _, model := range models {
		if model == "" {
			continue
		}
		if hasModel(available, model) {
			slog.Info("model is available", "model", model)
			continue
		}

		slog.Info("model not found, pulling", "model", model)
		if err := client.PostJSON(ctx, baseURL+"/api/pull", pullRequest{Name: model, Stream: false}, nil); err != nil {
			return fmt.Errorf("failed to pull model %s: %w", model, err)
		}
		slog.Info("model pulled successfully", "model", model)
	}
	return nil
}

func listModels(ctx context.Context, client *httpclient.Client, baseURL string) ([]string, error) {
	var tags tagsResponse
	if err := client.GetJSON(ctx, baseURL+"/api/tags", &tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// hasModel matches "llama3.1:8b" exactly and "nomic-embed-text" against
// "nomic-embed-text:latest".
func hasModel(available []string, model string) bool {
	for _, name := range available {
		if name == model || name == model+":latest" {
			return true
		}
	}
	return false
}

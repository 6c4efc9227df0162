package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

// Embedder produces query embeddings for hybrid ranking.
type Embedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// EmbedderConfig holds the embedding collaborator settings.
type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewEmbedder creates an OpenAI-backed query embedder.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Embedder{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		timeout: timeout,
	}
}

// Embed returns the embedding vector for a single query string.
func (e *Embedder) Embed(ctx context.Context, text string) (*domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return &domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// Package embedding provides the batch text-to-vector capability over
// OpenAI-compatible endpoints, plus a deterministic in-process fallback for
// deployments and tests without a live model.
package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
)

// NewOpenAIEmbedder creates a langchaingo embedder against an OpenAI-compatible
// embedding endpoint. The token "none" satisfies local services that do not
// authenticate.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("embedding host is not configured")
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap embedding client: %w", err)
	}
	return embedder, nil
}

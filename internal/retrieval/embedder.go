package retrieval

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig points at an OpenAI-compatible embeddings endpoint.
type EmbedderConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8081/v1 for TEI.
	BaseURL string
	Model   string
	// APIKey is optional for TEI.
	APIKey string
}

// NewEmbedder creates a langchaingo embedder for cfg.
func NewEmbedder(cfg EmbedderConfig) (embeddings.Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: embedding base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model required", ErrInvalidConfig)
	}

	token := cfg.APIKey
	if token == "" {
		// langchaingo requires a token, use placeholder for TEI
		token = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

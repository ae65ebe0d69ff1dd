// Package retrieval supplies topic reference material for question
// generation and answer assessment.
package retrieval

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/fyrsmithlabs/interviewd/internal/config"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

var tracer = otel.Tracer("interviewd.retrieval")

var (
	// ErrEmptyChunks indicates an Index call with nothing to store.
	ErrEmptyChunks = errors.New("no chunks to index")

	// ErrInvalidConfig indicates a backend could not be built from configuration.
	ErrInvalidConfig = errors.New("invalid retrieval configuration")
)

// Backend retrieves and indexes topic chunks.
type Backend interface {
	// Retrieve returns up to topK chunks for topic. An empty or missing
	// collection yields an empty slice.
	Retrieve(ctx context.Context, topic string, topK int) ([]string, error)
	// Search returns up to topK of module's chunks ranked against query.
	Search(ctx context.Context, module, query string, topK int) ([]string, error)
	// Index stores chunks under module and returns how many were written.
	Index(ctx context.Context, module string, chunks []string) (int, error)
	Close() error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.RetrievalConfig, logger *logging.Logger) (Backend, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("retrieval")

	if cfg.Backend == "none" || cfg.Backend == "" {
		return Nop{}, nil
	}

	embedder, err := NewEmbedder(EmbedderConfig{
		BaseURL: cfg.EmbeddingURL,
		Model:   cfg.EmbeddingModel,
		APIKey:  cfg.EmbeddingAPIKey.Value(),
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "chromem":
		return NewChromem(ChromemConfig{Path: cfg.ChromemPath, Collection: cfg.Collection}, embedder, logger)
	case "qdrant":
		return NewQdrant(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			UseTLS:     cfg.QdrantTLS,
			Collection: cfg.Collection,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// Nop retrieves nothing and refuses to index.
type Nop struct{}

func (Nop) Retrieve(context.Context, string, int) ([]string, error) { return []string{}, nil }

func (Nop) Search(context.Context, string, string, int) ([]string, error) { return []string{}, nil }

func (Nop) Index(context.Context, string, []string) (int, error) {
	return 0, fmt.Errorf("%w: retrieval backend is none", ErrInvalidConfig)
}

func (Nop) Close() error { return nil }

// chunkID is stable for a (module, chunk) pair so re-indexing overwrites.
func chunkID(module, chunk string) string {
	sum := sha1.Sum([]byte(module + "\x00" + chunk))
	return hex.EncodeToString(sum[:])
}

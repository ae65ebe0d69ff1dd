package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps the store in memory.
	Path       string
	Collection string
	Compress   bool
}

// Chromem is a Backend over an embedded chromem-go database.
type Chromem struct {
	db         *chromem.DB
	embedder   embeddings.Embedder
	collection string
	log        *logging.Logger
}

// NewChromem opens (or creates) the chromem database at cfg.Path.
func NewChromem(cfg ChromemConfig, embedder embeddings.Embedder, logger *logging.Logger) (*Chromem, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	logger.Info(context.Background(), "chromem retrieval initialized",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
	)

	return &Chromem{db: db, embedder: embedder, collection: cfg.Collection, log: logger}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (c *Chromem) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return c.embedder.EmbedQuery(ctx, text)
	}
}

// Retrieve implements Backend.
func (c *Chromem) Retrieve(ctx context.Context, topic string, topK int) ([]string, error) {
	return c.Search(ctx, topic, topic, topK)
}

// Search implements Backend.
func (c *Chromem) Search(ctx context.Context, module, query string, topK int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Chromem.Search")
	defer span.End()
	span.SetAttributes(attribute.String("module", module), attribute.Int("top_k", topK))

	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	collection := c.db.GetCollection(c.collection, c.embedFunc())
	if collection == nil {
		return []string{}, nil
	}

	// chromem requires nResults <= document count.
	count := collection.Count()
	if count == 0 {
		return []string{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := collection.Query(ctx, query, topK, map[string]string{"module": module}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", c.collection, err)
	}

	chunks := make([]string, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Content)
	}

	span.SetAttributes(attribute.Int("results", len(chunks)))
	c.log.Debug(ctx, "retrieved context", zap.String("module", module), zap.Int("results", len(chunks)))
	return chunks, nil
}

// Index implements Backend.
func (c *Chromem) Index(ctx context.Context, module string, chunks []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Chromem.Index")
	defer span.End()
	span.SetAttributes(attribute.String("module", module), attribute.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		return 0, ErrEmptyChunks
	}

	collection, err := c.db.GetOrCreateCollection(c.collection, nil, c.embedFunc())
	if err != nil {
		return 0, fmt.Errorf("getting collection %s: %w", c.collection, err)
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunkID(module, chunk),
			Content:   chunk,
			Metadata:  map[string]string{"module": module},
			Embedding: vectors[i],
		}
	}

	// Embeddings are precomputed, so one worker is enough.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("adding documents: %w", err)
	}

	c.log.Info(ctx, "indexed topic chunks", zap.String("module", module), zap.Int("count", len(docs)))
	return len(docs), nil
}

// Close implements Backend. Persistence happens on every write.
func (c *Chromem) Close() error { return nil }

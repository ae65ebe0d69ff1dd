package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/embeddings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

const maxMessageSize = 16 << 20

// QdrantConfig configures the Qdrant gRPC backend.
type QdrantConfig struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
}

// Qdrant is a Backend over a Qdrant collection. Chunks carry their module
// in the payload and queries filter on it.
type Qdrant struct {
	client     *qdrant.Client
	embedder   embeddings.Embedder
	collection string
	log        *logging.Logger
}

// NewQdrant connects and health-checks the server.
func NewQdrant(ctx context.Context, cfg QdrantConfig, embedder embeddings.Embedder, logger *logging.Logger) (*Qdrant, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if !cfg.UseTLS {
		logger.Warn(ctx, "qdrant gRPC using plaintext (TLS disabled)", zap.String("host", cfg.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	return &Qdrant{client: client, embedder: embedder, collection: cfg.Collection, log: logger}, nil
}

// Retrieve implements Backend.
func (q *Qdrant) Retrieve(ctx context.Context, topic string, topK int) ([]string, error) {
	return q.Search(ctx, topic, topic, topK)
}

// Search implements Backend.
func (q *Qdrant) Search(ctx context.Context, module, query string, topK int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Qdrant.Search")
	defer span.End()
	span.SetAttributes(attribute.String("module", module), attribute.Int("top_k", topK))

	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if !exists {
		return []string{}, nil
	}

	vector, err := q.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword("module", module)},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", q.collection, err)
	}

	chunks := make([]string, 0, len(points))
	for _, p := range points {
		if v, ok := p.GetPayload()["content"]; ok {
			chunks = append(chunks, v.GetStringValue())
		}
	}
	span.SetAttributes(attribute.Int("results", len(chunks)))
	return chunks, nil
}

// Index implements Backend. The collection is created on first use with
// the embedder's dimension.
func (q *Qdrant) Index(ctx context.Context, module string, chunks []string) (int, error) {
	ctx, span := tracer.Start(ctx, "Qdrant.Index")
	defer span.End()
	span.SetAttributes(attribute.String("module", module), attribute.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		return 0, ErrEmptyChunks
	}

	vectors, err := q.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := q.ensureCollection(ctx, len(vectors[0])); err != nil {
		span.RecordError(err)
		return 0, err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		// Qdrant point IDs must be UUIDs or integers.
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID(module, chunk)))
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id.String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"module":  module,
				"content": chunk,
			}),
		}
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("upserting points to %s: %w", q.collection, err)
	}

	q.log.Info(ctx, "indexed topic chunks", zap.String("module", module), zap.Int("count", len(points)))
	return len(points), nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, size int) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	return nil
}

// Close implements Backend.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

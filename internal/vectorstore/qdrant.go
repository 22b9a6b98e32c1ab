package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// contentKey and idKey are payload fields reserved by the store. The chunk
// text and store key live in the payload next to the caller metadata so
// search results can be rebuilt from a single point.
const (
	contentKey = "content"
	idKey      = "id"
)

// Defaults applied by ApplyDefaults when the corresponding field is zero.
const (
	defaultMaxRetries       = 3
	defaultRetryBackoff     = time.Second
	defaultMaxMessageSize   = 50 << 20
	defaultBreakerThreshold = 5

	// breakerCooldown is how long an open circuit blocks calls before the
	// next probe is allowed through.
	breakerCooldown = 30 * time.Second
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port, 6334 by convention. The HTTP REST
	// port 6333 will not work here.
	Port int

	// APIKey authenticates against Qdrant Cloud. Empty for local servers.
	APIKey string

	// Collection is the collection used for all operations.
	Collection string

	// VectorSize is the embedding dimension, used to create the
	// collection on first run. MUST match the embedding provider output.
	VectorSize uint64

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient
	// failures.
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries. Doubles
	// on each retry.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes. The
	// default of 50MB lets one upsert carry a large document's chunks.
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit opens.
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	case c.Collection == "":
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	case c.VectorSize == 0:
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = defaultBreakerThreshold
	}
}

// IsTransientError reports whether an error is worth retrying. Network
// timeouts and temporary unavailability are transient; invalid arguments,
// missing collections, and auth failures are not.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	}
	return false
}

// breaker counts consecutive failures so a dead server is not hammered
// with retries. Once tripped it stays open for the cooldown, then lets
// the next call probe the server again.
type breaker struct {
	mu        sync.Mutex
	failures  int
	lastFail  time.Time
	threshold int
	cooldown  time.Duration
}

func (b *breaker) record() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFail = time.Now()
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

func (b *breaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return false
	}
	if time.Since(b.lastFail) > b.cooldown {
		b.failures = 0
		return false
	}
	return true
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// The gRPC transport (port 6334) bypasses Qdrant's HTTP layer and its 256kB
// payload limit, so a whole document's chunks can be upserted in one call.
type QdrantStore struct {
	client  *qdrant.Client
	config  QdrantConfig
	logger  *zap.Logger
	metrics *Metrics
	breaker breaker
}

// NewQdrantStore creates a new QdrantStore, connects to the server, and
// ensures the configured collection exists with cosine distance.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := ValidateCollectionName(config.Collection); err != nil {
		return nil, err
	}

	if !config.UseTLS {
		logger.Warn("qdrant gRPC connection is plaintext",
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		)
	}

	client, err := dialQdrant(config)
	if err != nil {
		return nil, err
	}

	store := &QdrantStore{
		client:  client,
		config:  config,
		logger:  logger,
		metrics: NewMetrics(logger),
		breaker: breaker{threshold: config.CircuitBreakerThreshold, cooldown: breakerCooldown},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
		zap.Uint64("vector_size", config.VectorSize),
	)

	return store, nil
}

// dialQdrant opens the gRPC client with message sizes raised to carry
// whole-document upserts.
func dialQdrant(cfg QdrantConfig) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return client, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// healthCheck verifies the Qdrant connection.
func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}

	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// ensureCollection creates the configured collection if it does not exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", ErrStoreFailed, s.config.Collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", ErrStoreFailed, s.config.Collection, err)
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.config.Collection),
		zap.Uint64("vector_size", s.config.VectorSize),
	)
	return nil
}

// retryOperation runs op with exponential backoff on transient errors.
// Permanent errors and an open circuit abort immediately.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			s.breaker.reset()
			return nil
		}

		if s.breaker.open() {
			return fmt.Errorf("%s: circuit breaker open", name)
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}

		s.breaker.record()
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// pointID derives a deterministic UUID from the store key, so re-adding a
// chunk upserts over its previous point.
func pointID(key string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String())
}

// documentFilter matches every point whose document_id payload equals the
// given ID.
func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: DocumentIDKey,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: documentID},
						},
					},
				},
			},
		},
	}
}

// Add upserts the entries under the document.
func (s *QdrantStore) Add(ctx context.Context, documentID string, entries []Entry) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("entry_count", len(entries)),
		attribute.String("collection", s.config.Collection),
	)

	if documentID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(entries) == 0 {
		return ErrEmptyEntries
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		key := entryKey(documentID, entry.ChunkID)

		payload := make(map[string]*qdrant.Value, len(entry.Metadata)+4)
		for k, v := range mergedMetadata(documentID, entry) {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		payload[contentKey] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: entry.Content}}
		payload[idKey] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: key}}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(key),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: payload,
		}
	}

	start := time.Now()
	err := s.retryOperation(ctx, "upsert", func() error {
		// Wait so a search immediately after ingest sees the new points.
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	s.metrics.RecordOperation(ctx, "add", providerQdrant, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: upserting %d points: %v", ErrStoreFailed, len(points), err)
	}
	s.metrics.RecordEntries(ctx, "add", providerQdrant, len(entries))

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("upserted entries to qdrant",
		zap.String("document_id", documentID),
		zap.Int("count", len(entries)),
	)

	return nil
}

// Search returns up to k entries ranked by descending cosine similarity.
// Qdrant scores cosine collections by similarity already, so scores map
// directly onto the Store contract.
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, k int, documentID string, minSimilarity float32) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Bool("document_filter", documentID != ""),
		attribute.String("collection", s.config.Collection),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	const maxK = 10000
	if k > maxK {
		k = maxK
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	var filter *qdrant.Filter
	if documentID != "" {
		filter = documentFilter(documentID)
	}

	var points []*qdrant.ScoredPoint
	start := time.Now()
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	s.metrics.RecordOperation(ctx, "search", providerQdrant, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: searching collection %s: %v", ErrStoreFailed, s.config.Collection, err)
	}

	hits := make([]SearchResult, 0, len(points))
	for _, point := range points {
		if point.Score < minSimilarity {
			continue
		}

		hit := SearchResult{
			Similarity: point.Score,
			Metadata:   make(map[string]string, len(point.Payload)),
		}
		for field, v := range point.Payload {
			sv, ok := v.Kind.(*qdrant.Value_StringValue)
			if !ok {
				continue
			}
			switch field {
			case contentKey:
				hit.Content = sv.StringValue
			case idKey:
				hit.ID = sv.StringValue
			default:
				hit.Metadata[field] = sv.StringValue
			}
		}
		hits = append(hits, hit)
	}
	s.metrics.RecordSearchResults(ctx, providerQdrant, len(hits))

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("searched qdrant collection",
		zap.Int("k", k),
		zap.Int("results", len(hits)),
	)

	return hits, nil
}

// DeleteDocument removes every point whose document_id payload matches.
// Deleting a document with no points is a no-op.
func (s *QdrantStore) DeleteDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteDocument")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.String("collection", s.config.Collection),
	)

	if documentID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	start := time.Now()
	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: documentFilter(documentID),
				},
			},
			Wait: qdrant.PtrOf(true),
		})
		return err
	})
	s.metrics.RecordOperation(ctx, "delete", providerQdrant, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: deleting document %s: %v", ErrStoreFailed, documentID, err)
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("deleted document from qdrant",
		zap.String("document_id", documentID),
	)

	return nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	var count int
	start := time.Now()
	err := s.retryOperation(ctx, "count", func() error {
		info, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
		if err != nil {
			return err
		}
		count = 0
		if info.PointsCount != nil {
			count = int(*info.PointsCount)
		}
		return nil
	})
	s.metrics.RecordOperation(ctx, "count", providerQdrant, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: counting collection %s: %v", ErrStoreFailed, s.config.Collection, err)
	}

	span.SetAttributes(attribute.Int("entries", count))
	span.SetStatus(codes.Ok, "success")
	return count, nil
}

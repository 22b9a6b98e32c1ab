package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/chunker"
	"github.com/fyrsmithlabs/docqd/internal/config"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrProviderClosed indicates an embed call after Close
	ErrProviderClosed = errors.New("provider is closed")
)

// defaultBatchSize bounds a single provider call. Gemini's
// batchEmbedContents endpoint rejects more than 100 texts per request.
const defaultBatchSize = 100

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	chunker.Chunk
	Vector []float32
}

// Service batches chunk embedding through a Provider. Large documents are
// split into fixed-size batches with a pacing delay between them so a
// single upload cannot saturate provider rate limits. A failure in any
// batch aborts the whole operation; partial results are never returned.
type Service struct {
	provider   Provider
	model      string
	batchSize  int
	batchDelay time.Duration
	logger     *zap.Logger
	metrics    *Metrics
}

// NewService creates an embedding service wrapping the given provider.
func NewService(provider Provider, cfg *config.EmbeddingsConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Service{
		provider:   provider,
		model:      cfg.Model,
		batchSize:  batchSize,
		batchDelay: cfg.BatchDelay.Duration(),
		logger:     logger,
		metrics:    NewMetrics(logger),
	}
}

// EmbedChunks embeds every chunk's content and returns the chunks paired
// with their vectors, in input order.
func (s *Service) EmbedChunks(ctx context.Context, chunks []chunker.Chunk) ([]EmbeddedChunk, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.model, "embed_chunks", time.Since(start), len(chunks), genErr)
	}()

	if len(chunks) == 0 {
		genErr = fmt.Errorf("%w: chunks cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedBatches(ctx, texts)
	if err != nil {
		genErr = err
		return nil, err
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = EmbeddedChunk{Chunk: c, Vector: vectors[i]}
	}

	s.logger.Debug("embedded document chunks",
		zap.Int("chunks", len(chunks)),
		zap.String("model", s.model))

	return embedded, nil
}

// EmbedQuery generates an embedding for a single search query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vector, err := s.provider.EmbedQuery(ctx, text)
	if err != nil {
		genErr = err
		return nil, err
	}

	if err := s.checkDimensions([][]float32{vector}); err != nil {
		genErr = err
		return nil, err
	}

	return vector, nil
}

// Dimension returns the embedding dimension of the underlying provider.
func (s *Service) Dimension() int {
	return s.provider.Dimension()
}

// Close releases resources held by the underlying provider.
func (s *Service) Close() error {
	return s.provider.Close()
}

// embedBatches sends texts to the provider in batchSize slices, pacing
// between batches. The final batch is not followed by a delay.
func (s *Service) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := s.provider.EmbedDocuments(ctx, texts[offset:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch at offset %d: %w", offset, err)
		}
		if len(vectors) != end-offset {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), end-offset)
		}
		if err := s.checkDimensions(vectors); err != nil {
			return nil, err
		}

		all = append(all, vectors...)

		s.logger.Debug("embedded batch",
			zap.Int("offset", offset),
			zap.Int("batch_size", end-offset),
			zap.Int("total_texts", len(texts)))

		if end < len(texts) && s.batchDelay > 0 {
			select {
			case <-time.After(s.batchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return all, nil
}

// checkDimensions verifies every vector matches the provider's dimension.
// A mismatch means the configured model and dimensions disagree, which
// would corrupt the vector store collection.
func (s *Service) checkDimensions(vectors [][]float32) error {
	want := s.provider.Dimension()
	if want <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: provider returned %d-dimensional vector, expected %d", ErrInvalidConfig, len(v), want)
		}
	}
	return nil
}

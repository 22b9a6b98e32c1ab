package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the chromem-go embedded backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty keeps the
	// index in memory only.
	Path string

	// Compress enables gzip compression for persisted entries.
	Compress bool

	// Collection is the collection name.
	// Default: "docqd_documents"
	Collection string
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "docqd_documents"
	}
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go is an embeddable vector database written in pure Go. It keeps
// the index in memory and optionally persists each write to gob files, so
// the store needs no external database service.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
	metrics    *Metrics
}

// precomputedOnly is the chromem embedding func for the collection. Every
// vector in the store is computed by the embeddings service before it
// reaches Add or Search, so chromem must never embed text itself. Passing
// nil instead would fall back to chromem's default OpenAI embedder and turn
// a programming error into a silent network call.
func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem requested an embedding, but all vectors are precomputed")
}

// NewChromemStore creates a new ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := ValidateCollectionName(config.Collection); err != nil {
		return nil, err
	}

	var db *chromem.DB
	path := config.Path
	if path == "" {
		db = chromem.NewDB()
	} else {
		expanded, err := expandHome(path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		path = expanded

		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}

		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem DB: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", config.Collection, err)
	}

	store := &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
		metrics:    NewMetrics(logger),
	}

	logger.Info("chromem store initialized",
		zap.String("path", path),
		zap.Bool("compress", config.Compress),
		zap.String("collection", config.Collection),
		zap.Int("entries", collection.Count()),
	)

	return store, nil
}

// expandHome expands a leading ~ to the home directory.
func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rest), nil
}

// Add indexes the entries under the document. Entries are keyed by
// documentID:chunkID, so re-adding a chunk overwrites the previous entry.
func (s *ChromemStore) Add(ctx context.Context, documentID string, entries []Entry) error {
	ctx, span := tracer.Start(ctx, "ChromemStore.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("entry_count", len(entries)),
	)

	if documentID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(entries) == 0 {
		return ErrEmptyEntries
	}

	docs := make([]chromem.Document, len(entries))
	for i, entry := range entries {
		docs[i] = chromem.Document{
			ID:        entryKey(documentID, entry.ChunkID),
			Content:   entry.Content,
			Metadata:  mergedMetadata(documentID, entry),
			Embedding: entry.Vector,
		}
	}

	// Concurrency of 1: vectors are precomputed, so adds are pure map writes.
	start := time.Now()
	err := s.collection.AddDocuments(ctx, docs, 1)
	s.metrics.RecordOperation(ctx, "add", providerChromem, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: adding entries: %v", ErrStoreFailed, err)
	}
	s.metrics.RecordEntries(ctx, "add", providerChromem, len(entries))

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("added entries to chromem",
		zap.String("document_id", documentID),
		zap.Int("count", len(entries)),
	)

	return nil
}

// Search returns up to k entries ranked by descending cosine similarity.
func (s *ChromemStore) Search(ctx context.Context, queryVector []float32, k int, documentID string, minSimilarity float32) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Bool("document_filter", documentID != ""),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	// Cap k at collection size (chromem requires nResults <= entry count).
	count := s.collection.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	var where map[string]string
	if documentID != "" {
		where = map[string]string{DocumentIDKey: documentID}
	}

	start := time.Now()
	results, err := s.collection.QueryEmbedding(ctx, queryVector, k, where, nil)
	s.metrics.RecordOperation(ctx, "search", providerChromem, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: querying collection %s: %v", ErrStoreFailed, s.config.Collection, err)
	}

	hits := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		hits = append(hits, SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		})
	}
	s.metrics.RecordSearchResults(ctx, providerChromem, len(hits))

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("searched chromem collection",
		zap.Int("k", k),
		zap.Int("results", len(hits)),
	)

	return hits, nil
}

// DeleteDocument removes every entry belonging to the document. Deleting a
// document with no entries is a no-op.
func (s *ChromemStore) DeleteDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "ChromemStore.DeleteDocument")
	defer span.End()

	span.SetAttributes(attribute.String("document_id", documentID))

	if documentID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	start := time.Now()
	err := s.collection.Delete(ctx, map[string]string{DocumentIDKey: documentID}, nil)
	s.metrics.RecordOperation(ctx, "delete", providerChromem, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: deleting document %s: %v", ErrStoreFailed, documentID, err)
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("deleted document from chromem",
		zap.String("document_id", documentID),
	)

	return nil
}

// Count returns the number of entries in the collection.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	_, span := tracer.Start(ctx, "ChromemStore.Count")
	defer span.End()

	count := s.collection.Count()
	span.SetAttributes(attribute.Int("entries", count))
	return count, nil
}

// Close releases the store. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}

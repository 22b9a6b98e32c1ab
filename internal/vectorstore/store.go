package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel"
)

// tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("docqd.vectorstore")

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyEntries indicates empty or nil entries.
	ErrEmptyEntries = errors.New("empty or nil entries")

	// ErrStoreFailed marks failures inside the index backend.
	ErrStoreFailed = errors.New("vector store operation failed")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Metadata keys injected on every stored entry. Search filters and
// per-document deletes match on DocumentIDKey.
const (
	DocumentIDKey = "document_id"
	ChunkIDKey    = "chunk_id"
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Entry is one embedded chunk to be indexed under a document.
type Entry struct {
	// ChunkID is unique within the owning document.
	ChunkID string

	// Content is the chunk text, stored alongside the vector so search
	// results carry it back without a second lookup.
	Content string

	// Vector is the chunk embedding.
	Vector []float32

	// Metadata carries chunk attributes such as the page number.
	Metadata map[string]string
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	// ID is the store key, documentID:chunkID.
	ID string

	// Content is the stored chunk text.
	Content string

	// Similarity is the cosine similarity between the query vector and
	// the stored vector, in [-1, 1]. Higher is more similar.
	Similarity float32

	// Metadata is the stored chunk metadata, including document_id and
	// chunk_id.
	Metadata map[string]string
}

// Store indexes embedded chunks and serves similarity search over them.
//
// Vectors are computed upstream by the embeddings service. Implementations
// never embed text themselves; every operation takes or stores precomputed
// vectors. Entries are keyed by documentID:chunkID, so re-adding a chunk
// overwrites the previous entry for that key.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default, no external service)
//   - QdrantStore: external Qdrant over gRPC
type Store interface {
	// Add indexes the entries under the given document. Each entry is
	// stored under the key documentID:chunkID with the entry metadata
	// merged with {document_id, chunk_id}.
	Add(ctx context.Context, documentID string, entries []Entry) error

	// Search returns up to k entries ranked by descending cosine
	// similarity to the query vector. A non-empty documentID restricts
	// results to that document. Hits below minSimilarity are dropped.
	// No matches is an empty result, not an error.
	Search(ctx context.Context, queryVector []float32, k int, documentID string, minSimilarity float32) ([]SearchResult, error)

	// DeleteDocument removes every entry belonging to the document.
	// Deleting a document with no entries is a no-op.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of entries in the store.
	Count(ctx context.Context) (int, error)

	// Close releases the backend connection and resources.
	Close() error
}

// entryKey builds the store key for a chunk.
func entryKey(documentID, chunkID string) string {
	return documentID + ":" + chunkID
}

// mergedMetadata copies the entry metadata and stamps the owning document
// and chunk IDs over it.
func mergedMetadata(documentID string, entry Entry) map[string]string {
	metadata := make(map[string]string, len(entry.Metadata)+2)
	for k, v := range entry.Metadata {
		metadata[k] = v
	}
	metadata[DocumentIDKey] = documentID
	metadata[ChunkIDKey] = entry.ChunkID
	return metadata
}

// ValidateCollectionName validates a collection name against naming rules.
// Pattern: ^[a-z0-9_]{1,64}$
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

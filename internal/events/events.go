// Package events publishes document and query lifecycle events to NATS
// so other systems can react to ingests, deletes, and answered queries.
// Publishing is optional: when disabled the no-op publisher stands in,
// and publish failures are logged but never fail the operation that
// produced the event. Events carry metadata only, never document or
// query text.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// DocumentIngested is published after a document has been chunked,
// embedded, and indexed.
type DocumentIngested struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// DocumentDeleted is published after a document and its index entries
// are removed.
type DocumentDeleted struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Timestamp  time.Time `json:"timestamp"`
}

// QueryAnswered is published after a query completes, whether answered
// from retrieval or short-circuited with the no-results response.
type QueryAnswered struct {
	Mode        string    `json:"mode"`
	SourceCount int       `json:"source_count"`
	TokensUsed  int       `json:"tokens_used"`
	Cached      bool      `json:"cached"`
	DurationMS  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher emits lifecycle events. Implementations must never block
// the caller on broker failures.
type Publisher interface {
	DocumentIngested(ctx context.Context, event DocumentIngested)
	DocumentDeleted(ctx context.Context, event DocumentDeleted)
	QueryAnswered(ctx context.Context, event QueryAnswered)
	Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) DocumentIngested(context.Context, DocumentIngested) {}

func (NoopPublisher) DocumentDeleted(context.Context, DocumentDeleted) {}

func (NoopPublisher) QueryAnswered(context.Context, QueryAnswered) {}

func (NoopPublisher) Close() {}

// NewPublisher creates the configured publisher. When publishing is
// disabled it returns the no-op publisher.
func NewPublisher(cfg *config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}

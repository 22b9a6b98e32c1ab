package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/chunker"
	"github.com/fyrsmithlabs/docqd/internal/document"
	"github.com/fyrsmithlabs/docqd/internal/embeddings"
	"github.com/fyrsmithlabs/docqd/internal/events"
	"github.com/fyrsmithlabs/docqd/internal/redact"
	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
)

var tracer = otel.Tracer("docqd.ingest")

// ChunkEmbedder turns chunks into vectors. Satisfied by
// *embeddings.Service.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []chunker.Chunk) ([]embeddings.EmbeddedChunk, error)
}

// Service runs the upload pipeline and tracks ingested documents.
type Service struct {
	docs     *document.Service
	redactor *redact.Redactor
	splitter *chunker.Splitter
	embedder ChunkEmbedder
	store    vectorstore.Store
	events   events.Publisher

	registry *registry
	locks    *keyedMutex
	logger   *zap.Logger
	metrics  *Metrics
}

// NewService wires the upload pipeline. A nil publisher disables
// events and a nil redactor disables redaction.
func NewService(docs *document.Service, redactor *redact.Redactor, splitter *chunker.Splitter, embedder ChunkEmbedder, store vectorstore.Store, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Service{
		docs:     docs,
		redactor: redactor,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		events:   publisher,
		registry: newRegistry(),
		locks:    newKeyedMutex(),
		logger:   logger,
		metrics:  NewMetrics(logger),
	}
}

// Ingest runs the full pipeline for one upload and returns the record
// of the indexed document.
func (s *Service) Ingest(ctx context.Context, upload Upload) (*Record, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ingest.document",
		trace.WithAttributes(attribute.String("document.filename", upload.Filename)))
	defer span.End()

	size := int64(len(upload.Data))
	if err := s.docs.Validate(upload.Filename, size); err != nil {
		s.failIngest(ctx, span, start, err)
		return nil, err
	}

	documentID := uuid.New().String()
	span.SetAttributes(attribute.String("document.id", documentID))

	// The lock is keyed by document, so embedding one upload never
	// stalls another document's writes.
	s.locks.lock(documentID)
	defer s.locks.unlock(documentID)

	extraction, err := s.docs.Parse(upload.Filename, upload.Data)
	if err != nil {
		s.failIngest(ctx, span, start, err)
		return nil, err
	}

	chunks := s.splitter.Split(s.segments(upload.Filename, extraction))
	if len(chunks) == 0 {
		err := fmt.Errorf("%w: no content could be extracted from the document", document.ErrParsing)
		s.failIngest(ctx, span, start, err)
		return nil, err
	}

	embedded, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		err = fmt.Errorf("embedding chunks: %w", err)
		s.failIngest(ctx, span, start, err)
		return nil, err
	}

	entries := make([]vectorstore.Entry, len(embedded))
	for i, chunk := range embedded {
		entries[i] = vectorstore.Entry{
			ChunkID:  chunk.ID,
			Content:  chunk.Content,
			Vector:   chunk.Vector,
			Metadata: chunk.Metadata,
		}
	}
	if err := s.store.Add(ctx, documentID, entries); err != nil {
		err = fmt.Errorf("indexing chunks: %w", err)
		s.failIngest(ctx, span, start, err)
		return nil, err
	}

	record := Record{
		ID:         documentID,
		Filename:   upload.Filename,
		SizeBytes:  size,
		Pages:      extraction.TotalPages,
		ChunkCount: len(chunks),
		UploadTime: time.Now().UTC(),
	}
	s.registry.put(record)

	s.events.DocumentIngested(ctx, events.DocumentIngested{
		DocumentID: record.ID,
		Filename:   record.Filename,
		SizeBytes:  record.SizeBytes,
		ChunkCount: record.ChunkCount,
		Timestamp:  record.UploadTime,
	})

	duration := time.Since(start)
	s.metrics.RecordIngest(ctx, outcomeIngested, record.ChunkCount, duration)
	span.SetAttributes(attribute.Int("document.chunks", record.ChunkCount))
	s.logger.Info("document ingested",
		zap.String("document_id", record.ID),
		zap.String("filename", record.Filename),
		zap.Int64("size_bytes", record.SizeBytes),
		zap.Int("chunks", record.ChunkCount),
		zap.Duration("duration", duration))

	return &record, nil
}

// Delete removes a document's chunks from the index and its registry
// row. Deleting an unknown document is a no-op.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "ingest.delete",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer span.End()

	s.locks.lock(documentID)
	defer s.locks.unlock(documentID)

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting document chunks: %w", err)
	}

	record, existed := s.registry.remove(documentID)
	if !existed {
		return nil
	}

	s.events.DocumentDeleted(ctx, events.DocumentDeleted{
		DocumentID: documentID,
		Filename:   record.Filename,
		Timestamp:  time.Now().UTC(),
	})
	s.metrics.RecordDelete(ctx)
	s.logger.Info("document deleted",
		zap.String("document_id", documentID),
		zap.String("filename", record.Filename))
	return nil
}

// Get returns the record for one ingested document.
func (s *Service) Get(documentID string) (Record, error) {
	record, ok := s.registry.get(documentID)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return record, nil
}

// List returns every ingested document, oldest upload first.
func (s *Service) List() []Record {
	return s.registry.list()
}

// Count returns the number of ingested documents.
func (s *Service) Count() int {
	return s.registry.count()
}

// ChunkCount returns the number of chunks in the index.
func (s *Service) ChunkCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// segments converts an extraction into chunker segments, redacting
// each one first so secrets never reach the chunk index.
func (s *Service) segments(filename string, extraction *document.Extraction) []chunker.Segment {
	if extraction.Paginated() {
		segments := make([]chunker.Segment, len(extraction.Pages))
		for i, page := range extraction.Pages {
			segments[i] = chunker.PageSegment(page.Number, s.redacted(filename, page.Content))
		}
		return segments
	}
	return []chunker.Segment{{Text: s.redacted(filename, extraction.Content)}}
}

func (s *Service) redacted(filename, content string) string {
	if s.redactor == nil || !s.redactor.Enabled() {
		return content
	}

	result := s.redactor.Redact(content)
	if len(result.Findings) > 0 {
		s.logger.Warn("redacted secrets from upload",
			zap.String("filename", filename),
			zap.Int("findings", len(result.Findings)),
			zap.Any("rules", result.RuleCounts))
	}
	return result.Content
}

func (s *Service) failIngest(ctx context.Context, span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.RecordIngest(ctx, outcomeFailed, 0, time.Since(start))
}

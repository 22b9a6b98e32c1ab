package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
)

// QueryEmbedder is the slice of the embedding service needed at query
// time.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryOptions tunes a single query.
type QueryOptions struct {
	// TopK overrides the configured number of retrieved chunks when
	// positive.
	TopK int
	// DocumentID restricts retrieval to one document when set.
	DocumentID string
	// Research is optional supplemental text offered to hybrid prompts.
	Research string
}

// Result is the complete outcome of one query.
type Result struct {
	Answer  string
	Sources []Source
	// Mode is the grounding mode used, empty when retrieval found nothing
	// and no generation ran.
	Mode       Mode
	ModelUsed  string
	TokensUsed int
	Cached     bool
}

// Service runs the retrieval pipeline for a question: embed the query,
// search the vector store, answer from the retrieved chunks. When nothing
// clears the similarity threshold it returns a fixed response without
// calling the model.
type Service struct {
	embedder      QueryEmbedder
	store         vectorstore.Store
	answerer      *Answerer
	topK          int
	minSimilarity float32
	logger        *zap.Logger
	metrics       *Metrics
}

// NewService creates a query service.
func NewService(embedder QueryEmbedder, store vectorstore.Store, answerer *Answerer, cfg *config.QueryConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	return &Service{
		embedder:      embedder,
		store:         store,
		answerer:      answerer,
		topK:          topK,
		minSimilarity: float32(cfg.SimilarityThreshold),
		logger:        logger,
		metrics:       NewMetrics(logger),
	}
}

// Query answers a question against the indexed documents.
func (s *Service) Query(ctx context.Context, query string, opts QueryOptions) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "answer.query",
		trace.WithAttributes(attribute.Int("query.top_k", opts.TopK)))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.failQuery(ctx, span, start, err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	k := opts.TopK
	if k <= 0 {
		k = s.topK
	}

	results, err := s.store.Search(ctx, vector, k, opts.DocumentID, s.minSimilarity)
	if err != nil {
		s.failQuery(ctx, span, start, err)
		return nil, fmt.Errorf("searching index: %w", err)
	}

	if len(results) == 0 {
		s.logger.Info("no chunks cleared the similarity threshold",
			zap.Int("top_k", k),
			zap.String("document_id", opts.DocumentID))
		s.metrics.RecordQuery(ctx, "", outcomeNoResults, time.Since(start))
		span.SetAttributes(attribute.Int("query.sources", 0))
		return &Result{
			Answer:    NoResultsAnswer,
			Sources:   []Source{},
			ModelUsed: "N/A",
		}, nil
	}

	sources := toSources(results)

	ans, err := s.answerer.Generate(ctx, query, sources, opts.Research)
	if err != nil {
		s.failQuery(ctx, span, start, err)
		return nil, err
	}

	s.metrics.RecordQuery(ctx, ans.Mode, outcomeAnswered, time.Since(start))
	if ans.Cached {
		s.metrics.RecordCachedAnswer(ctx)
	} else {
		s.metrics.RecordTokens(ctx, ans.PromptTokens, ans.CompletionTokens)
	}

	span.SetAttributes(
		attribute.Int("query.sources", len(sources)),
		attribute.String("query.mode", string(ans.Mode)),
		attribute.Bool("query.cached", ans.Cached),
	)

	s.logger.Info("query answered",
		zap.String("mode", string(ans.Mode)),
		zap.Int("sources", len(sources)),
		zap.Int("tokens_used", ans.TokensUsed),
		zap.Bool("cached", ans.Cached),
		zap.Duration("duration", time.Since(start)))

	return &Result{
		Answer:     ans.Text,
		Sources:    sources,
		Mode:       ans.Mode,
		ModelUsed:  ans.Model,
		TokensUsed: ans.TokensUsed,
		Cached:     ans.Cached,
	}, nil
}

func (s *Service) failQuery(ctx context.Context, span trace.Span, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.RecordQuery(ctx, "", outcomeError, time.Since(start))
}

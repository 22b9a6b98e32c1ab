package answer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const answerInstrumentationName = "github.com/fyrsmithlabs/docqd/internal/answer"

const (
	outcomeAnswered  = "answered"
	outcomeNoResults = "no_results"
	outcomeError     = "error"
)

// Metrics records query outcomes, latency, and token usage.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	queryDuration metric.Float64Histogram
	queriesTotal  metric.Int64Counter
	tokensTotal   metric.Int64Counter
	cachedTotal   metric.Int64Counter
}

// NewMetrics creates answer metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(answerInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.queryDuration, err = m.meter.Float64Histogram(
		"docqd.answer.query_duration_seconds",
		metric.WithDescription("End-to-end query latency including retrieval and generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		m.logger.Warn("failed to create query duration histogram", zap.Error(err))
	}

	m.queriesTotal, err = m.meter.Int64Counter(
		"docqd.answer.queries_total",
		metric.WithDescription("Queries by outcome"),
	)
	if err != nil {
		m.logger.Warn("failed to create queries counter", zap.Error(err))
	}

	m.tokensTotal, err = m.meter.Int64Counter(
		"docqd.answer.tokens_total",
		metric.WithDescription("Token usage by type"),
	)
	if err != nil {
		m.logger.Warn("failed to create tokens counter", zap.Error(err))
	}

	m.cachedTotal, err = m.meter.Int64Counter(
		"docqd.answer.cached_answers_total",
		metric.WithDescription("Answers served from the prompt-hash cache"),
	)
	if err != nil {
		m.logger.Warn("failed to create cached answers counter", zap.Error(err))
	}
}

// RecordQuery records one query's outcome and latency. mode is empty for
// queries that never reached generation.
func (m *Metrics) RecordQuery(ctx context.Context, mode Mode, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if mode != "" {
		attrs = append(attrs, attribute.String("mode", string(mode)))
	}
	opt := metric.WithAttributes(attrs...)

	if m.queriesTotal != nil {
		m.queriesTotal.Add(ctx, 1, opt)
	}
	if m.queryDuration != nil {
		m.queryDuration.Record(ctx, duration.Seconds(), opt)
	}
}

// RecordTokens records provider token usage for one generation.
func (m *Metrics) RecordTokens(ctx context.Context, promptTokens, completionTokens int) {
	if m == nil || m.tokensTotal == nil {
		return
	}
	if promptTokens > 0 {
		m.tokensTotal.Add(ctx, int64(promptTokens), metric.WithAttributes(attribute.String("type", "prompt")))
	}
	if completionTokens > 0 {
		m.tokensTotal.Add(ctx, int64(completionTokens), metric.WithAttributes(attribute.String("type", "completion")))
	}
}

// RecordCachedAnswer counts an answer served from the cache.
func (m *Metrics) RecordCachedAnswer(ctx context.Context) {
	if m == nil || m.cachedTotal == nil {
		return
	}
	m.cachedTotal.Add(ctx, 1)
}

package vectorstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const vectorstoreInstrumentationName = "github.com/fyrsmithlabs/docqd/internal/vectorstore"

// Provider labels attached to every metric.
const (
	providerChromem = "chromem"
	providerQdrant  = "qdrant"
)

// Metrics records vector store operation measurements.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	operationDuration metric.Float64Histogram
	entriesTotal      metric.Int64Counter
	searchResults     metric.Int64Histogram
	errorsTotal       metric.Int64Counter
}

// NewMetrics creates Metrics backed by the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(vectorstoreInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.operationDuration, err = m.meter.Float64Histogram(
		"docqd.vectorstore.operation_duration_seconds",
		metric.WithDescription("Duration of vector store operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create operation duration histogram", zap.Error(err))
	}

	m.entriesTotal, err = m.meter.Int64Counter(
		"docqd.vectorstore.entries_total",
		metric.WithDescription("Total entries written to the vector store"),
	)
	if err != nil {
		m.logger.Warn("failed to create entries counter", zap.Error(err))
	}

	m.searchResults, err = m.meter.Int64Histogram(
		"docqd.vectorstore.search_results",
		metric.WithDescription("Number of hits returned per search"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 50),
	)
	if err != nil {
		m.logger.Warn("failed to create search results histogram", zap.Error(err))
	}

	m.errorsTotal, err = m.meter.Int64Counter(
		"docqd.vectorstore.errors_total",
		metric.WithDescription("Total vector store operation failures"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordOperation records one backend call with its outcome.
func (m *Metrics) RecordOperation(ctx context.Context, operation, provider string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("provider", provider),
	)

	if m.operationDuration != nil {
		m.operationDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.errorsTotal != nil {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordEntries counts entries written by an operation.
func (m *Metrics) RecordEntries(ctx context.Context, operation, provider string, count int) {
	if m.entriesTotal == nil || count <= 0 {
		return
	}
	m.entriesTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("provider", provider),
	))
}

// RecordSearchResults records the hit count of one search.
func (m *Metrics) RecordSearchResults(ctx context.Context, provider string, count int) {
	if m.searchResults == nil {
		return
	}
	m.searchResults.Record(ctx, int64(count), metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const ingestInstrumentationName = "github.com/fyrsmithlabs/docqd/internal/ingest"

const (
	outcomeIngested = "ingested"
	outcomeFailed   = "failed"
)

// Metrics records ingest throughput, latency, and deletions.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ingestDuration metric.Float64Histogram
	documentsTotal metric.Int64Counter
	chunksTotal    metric.Int64Counter
	deletesTotal   metric.Int64Counter
}

// NewMetrics creates ingest metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(ingestInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.ingestDuration, err = m.meter.Float64Histogram(
		"docqd.ingest.duration_seconds",
		metric.WithDescription("Ingest latency from validation through indexing"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		m.logger.Warn("failed to create ingest duration histogram", zap.Error(err))
	}

	m.documentsTotal, err = m.meter.Int64Counter(
		"docqd.ingest.documents_total",
		metric.WithDescription("Ingest attempts by outcome"),
	)
	if err != nil {
		m.logger.Warn("failed to create documents counter", zap.Error(err))
	}

	m.chunksTotal, err = m.meter.Int64Counter(
		"docqd.ingest.chunks_total",
		metric.WithDescription("Chunks indexed across all documents"),
	)
	if err != nil {
		m.logger.Warn("failed to create chunks counter", zap.Error(err))
	}

	m.deletesTotal, err = m.meter.Int64Counter(
		"docqd.ingest.deletes_total",
		metric.WithDescription("Documents deleted"),
	)
	if err != nil {
		m.logger.Warn("failed to create deletes counter", zap.Error(err))
	}
}

// RecordIngest records one ingest attempt. chunks is zero for failed
// attempts.
func (m *Metrics) RecordIngest(ctx context.Context, outcome string, chunks int, duration time.Duration) {
	if m == nil {
		return
	}

	opt := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.documentsTotal != nil {
		m.documentsTotal.Add(ctx, 1, opt)
	}
	if m.ingestDuration != nil {
		m.ingestDuration.Record(ctx, duration.Seconds(), opt)
	}
	if chunks > 0 && m.chunksTotal != nil {
		m.chunksTotal.Add(ctx, int64(chunks))
	}
}

// RecordDelete counts one document deletion.
func (m *Metrics) RecordDelete(ctx context.Context) {
	if m == nil || m.deletesTotal == nil {
		return
	}
	m.deletesTotal.Add(ctx, 1)
}

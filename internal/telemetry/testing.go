package telemetry

import (
	"context"
	"slices"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// TestTelemetry captures spans and metrics in memory for assertions.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	MetricReader *testMetricReader
}

// NewTestTelemetry creates telemetry backed by in-memory exporters, so
// tests can assert on spans and metrics without an OTLP endpoint.
func NewTestTelemetry() *TestTelemetry {
	cfg := config.NewDefaultConfig().Telemetry
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	reader := newTestMetricReader()

	tel := &Telemetry{
		config:         &cfg,
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(recorder)),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader.reader)),
	}
	tel.healthy.Store(true)

	return &TestTelemetry{
		Telemetry:    tel,
		SpanRecorder: recorder,
		MetricReader: reader,
	}
}

// Spans returns every span ended so far.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName finds a recorded span by name, or nil if not found.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	spans := t.Spans()
	i := slices.IndexFunc(spans, func(s trace.ReadOnlySpan) bool {
		return s.Name() == name
	})
	if i < 0 {
		return nil
	}
	return spans[i]
}

// AssertSpanExists fails the test when no ended span carries the name.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("span %q not recorded; have %v", name, t.spanNames())
	}
}

// AssertSpanAttribute verifies a span carries the expected attribute.
// Numeric expectations must use the widened attribute types, int64 and
// float64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName string, key string, expected any) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q never ended", spanName)
	}

	attrs := attribute.NewSet(span.Attributes()...)
	val, ok := attrs.Value(attribute.Key(key))
	if !ok {
		tb.Errorf("span %q missing attribute %q", spanName, key)
		return
	}
	if got := val.AsInterface(); got != expected {
		tb.Errorf("span %q attribute %q: got %v, want %v", spanName, key, got, expected)
	}
}

func (t *TestTelemetry) spanNames() []string {
	var names []string
	for _, span := range t.Spans() {
		names = append(names, span.Name())
	}
	return names
}

// testMetricReader pairs a ManualReader with storage for the collected
// snapshots, since Collect consumes the reader's state.
type testMetricReader struct {
	reader *sdkmetric.ManualReader

	mu        sync.Mutex
	collected []metricdata.ResourceMetrics
}

func newTestMetricReader() *testMetricReader {
	return &testMetricReader{reader: sdkmetric.NewManualReader()}
}

// ForceFlush collects current metric state and appends it to the stored
// snapshots.
func (r *testMetricReader) ForceFlush(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.collected = append(r.collected, rm)
	return nil
}

// Shutdown shuts down the underlying reader.
func (r *testMetricReader) Shutdown(ctx context.Context) error {
	return r.reader.Shutdown(ctx)
}

// Metrics returns all snapshots collected so far.
func (r *testMetricReader) Metrics() []metricdata.ResourceMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collected
}

package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// newTestMetrics binds Metrics to a manual reader so tests can collect
// what was recorded.
func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	m := &Metrics{
		meter:  mp.Meter(vectorstoreInstrumentationName),
		logger: zap.NewNop(),
	}
	m.init()
	return m, reader
}

// collectByName flattens the reader's current state into a name-keyed map.
func collectByName(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			byName[md.Name] = md
		}
	}
	return byName
}

// histogramCount sums datapoint counts across a histogram's attribute sets.
func histogramCount(t *testing.T, md metricdata.Metrics) uint64 {
	t.Helper()
	var total uint64
	switch hist := md.Data.(type) {
	case metricdata.Histogram[float64]:
		for _, dp := range hist.DataPoints {
			total += dp.Count
		}
	case metricdata.Histogram[int64]:
		for _, dp := range hist.DataPoints {
			total += dp.Count
		}
	default:
		t.Fatalf("%s is not a histogram", md.Name)
	}
	return total
}

// counterSum sums datapoint values across a counter's attribute sets.
func counterSum(t *testing.T, md metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is not an int64 sum", md.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOperation(ctx, "search", providerChromem, 100*time.Millisecond, nil)
	m.RecordOperation(ctx, "add", providerChromem, 50*time.Millisecond, errors.New("disk full"))

	byName := collectByName(t, reader)

	duration, ok := byName["docqd.vectorstore.operation_duration_seconds"]
	if !ok {
		t.Fatal("duration histogram not recorded")
	}
	if got := histogramCount(t, duration); got != 2 {
		t.Errorf("duration recordings = %d, want 2", got)
	}

	errTotal, ok := byName["docqd.vectorstore.errors_total"]
	if !ok {
		t.Fatal("errors counter not recorded")
	}
	if got := counterSum(t, errTotal); got != 1 {
		t.Errorf("errors recorded = %d, want 1", got)
	}
}

func TestMetrics_RecordEntries(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEntries(ctx, "add", providerChromem, 10)
	m.RecordEntries(ctx, "add", providerQdrant, 5)
	m.RecordEntries(ctx, "add", providerChromem, 0) // ignored

	byName := collectByName(t, reader)

	entries, ok := byName["docqd.vectorstore.entries_total"]
	if !ok {
		t.Fatal("entries counter not recorded")
	}
	if got := counterSum(t, entries); got != 15 {
		t.Errorf("entries recorded = %d, want 15", got)
	}
}

func TestMetrics_RecordSearchResults(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSearchResults(ctx, providerChromem, 5)
	m.RecordSearchResults(ctx, providerChromem, 0)

	byName := collectByName(t, reader)

	results, ok := byName["docqd.vectorstore.search_results"]
	if !ok {
		t.Fatal("search results histogram not recorded")
	}
	// Zero-result searches are recorded too; they are the signal for
	// threshold tuning.
	if got := histogramCount(t, results); got != 2 {
		t.Errorf("search recordings = %d, want 2", got)
	}
}

// Package telemetry provides OpenTelemetry instrumentation for docqd.
//
// It wires distributed tracing and metrics through the OpenTelemetry Go
// SDK and exports both over OTLP, speaking gRPC or HTTP/protobuf to a
// collector.
//
// # Usage
//
// Build one instance from the application config and shut it down with
// the daemon so buffered spans are flushed:
//
//	tel, err := telemetry.New(ctx, &cfg.Telemetry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Tracers and meters come from the instance:
//
//	tracer := tel.Tracer("docqd.ingest")
//	ctx, span := tracer.Start(ctx, "ingest.document")
//	defer span.End()
//
//	meter := tel.Meter("docqd.embeddings")
//	counter, _ := meter.Int64Counter("embeddings.batches")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  insecure: true           # localhost only
//	  sampling:
//	    rate: 1.0              # lower in production
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// A failed exporter never takes the service down. When a provider cannot
// be initialized the instance marks itself degraded and hands out no-op
// tracers and meters; Health reports the first failure reason.
//
// # Testing
//
// TestTelemetry records spans and metrics in memory so tests can assert
// on them without a collector:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("docqd.ingest")
//	_, span := tracer.Start(ctx, "chunk.document")
//	span.End()
//	tt.AssertSpanExists(t, "chunk.document")
package telemetry

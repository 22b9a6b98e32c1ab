// Package logging provides structured logging for docqd.
//
// It wraps Zap with:
//   - Dual output (stdout and OpenTelemetry)
//   - Automatic context field injection (trace_id, request.id, document.id)
//   - Encoder-level secret redaction
//   - Level-aware sampling (errors are never sampled)
//
// # Usage
//
// Build a logger from config and sync it on exit:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log through a context carrying correlation IDs:
//
//	ctx = logging.WithDocumentID(ctx, docID)
//	logger.Info(ctx, "document ingested", zap.Int("chunks", n))
//
// The emitted entry carries the IDs without the caller naming them:
//
//	{
//	  "ts": "2026-08-23T10:15:30Z",
//	  "level": "info",
//	  "msg": "document ingested",
//	  "trace_id": "abc123",
//	  "document.id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
//	  "chunks": 12
//	}
//
// # Secret Redaction
//
// Field names like password or api_key are masked at the encoder, and
// string values are matched against credential patterns. Use the helpers
// for values that are always sensitive:
//
//	logger.Info(ctx, "provider configured",
//	    logging.RedactedString("api_key", key))
//
// # Sampling
//
// With sampling enabled, entries below the error level pass through
// zap's sampler: an initial burst per tick, then every Nth entry.
// Errors and above always reach the sinks.
//
// # Testing
//
// TestLogger records entries in memory for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "hello", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "hello")
package logging

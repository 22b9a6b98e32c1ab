// internal/logging/otel.go
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// loggerScope is the instrumentation scope reported on OTEL log records.
const loggerScope = "github.com/fyrsmithlabs/docqd/internal/logging"

// newDualCore assembles the output cores enabled by config: a redacting
// stdout core, an OTEL bridge core, or both teed together. The result is
// always wrapped in the sampling core.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if cfg.Output.Stdout {
		stdout, err := stdoutCore(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, stdout)
	}

	// The OTEL core is skipped when no provider is wired, even if the
	// config asks for it; stdout then carries the logs alone.
	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore(loggerScope,
			otelzap.WithLoggerProvider(otelProvider),
		))
	}

	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("at least one output must be enabled and available")
	case 1:
		return newSampledCore(cores[0], cfg.Sampling), nil
	default:
		return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
	}
}

// stdoutCore builds the stdout core with secret redaction in front of the
// encoder.
func stdoutCore(cfg *Config) (zapcore.Core, error) {
	encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
	}
	return zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), cfg.Level), nil
}

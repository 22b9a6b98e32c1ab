package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// Telemetry manages the OpenTelemetry providers for docqd.
//
// Telemetry failures do not crash the application; the instance degrades to
// no-op providers instead.
type Telemetry struct {
	config *config.TelemetryConfig

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logProvider    log.LoggerProvider

	healthy  atomic.Bool
	degraded atomic.Bool
	// degradedReason is written only during New, before the instance is
	// shared, and read afterwards.
	degradedReason string
}

// New creates a Telemetry instance and initializes providers.
//
// If telemetry is disabled in config, returns a no-op instance. Provider
// initialization errors degrade the instance instead of failing it.
func New(ctx context.Context, cfg *config.TelemetryConfig) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	t.healthy.Store(true)

	if !cfg.Enabled {
		return t, nil
	}

	t.connect(ctx, newResource(cfg))

	// W3C trace context propagation
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return t, nil
}

// connect brings up the exporter-backed providers and registers them as
// the global defaults. A provider that fails to start degrades the
// instance and leaves the global no-op default in place.
func (t *Telemetry) connect(ctx context.Context, res *resource.Resource) {
	if tp, err := newTracerProvider(ctx, t.config, res); err != nil {
		t.setDegraded(fmt.Errorf("tracer provider: %w", err))
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, t.config, res); err != nil {
		t.setDegraded(fmt.Errorf("meter provider: %w", err))
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}
}

// Tracer hands out a tracer under the named instrumentation scope. With
// telemetry disabled or degraded, the global no-op provider answers.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t != nil && t.tracerProvider != nil {
		return t.tracerProvider.Tracer(name, opts...)
	}
	return otel.GetTracerProvider().Tracer(name, opts...)
}

// Meter hands out a meter under the named instrumentation scope, falling
// back to the global no-op provider like Tracer does.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t != nil && t.meterProvider != nil {
		return t.meterProvider.Meter(name, opts...)
	}
	return otel.GetMeterProvider().Meter(name, opts...)
}

// LoggerProvider exposes the provider backing the OTEL log bridge, or nil
// when none was attached.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil {
		return nil
	}
	return t.logProvider
}

// SetLoggerProvider attaches the provider the OTEL log bridge should use.
func (t *Telemetry) SetLoggerProvider(lp log.LoggerProvider) {
	if t != nil {
		t.logProvider = lp
	}
}

// sdkProvider is the lifecycle surface shared by the trace and metric
// providers.
type sdkProvider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

type labeledProvider struct {
	label string
	sdkProvider
}

// activeProviders returns the providers that were initialized, labeled
// for error messages. Nil providers are filtered out here so callers
// never see a typed nil behind the interface.
func (t *Telemetry) activeProviders() []labeledProvider {
	var out []labeledProvider
	if t.tracerProvider != nil {
		out = append(out, labeledProvider{"trace", t.tracerProvider})
	}
	if t.meterProvider != nil {
		out = append(out, labeledProvider{"meter", t.meterProvider})
	}
	return out
}

// Shutdown flushes and stops all telemetry providers.
// Uses the configured shutdown timeout when the context has no deadline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	for _, p := range t.activeProviders() {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s provider shutdown: %w", p.label, err))
		}
	}

	t.healthy.Store(false)
	return errors.Join(errs...)
}

// ForceFlush pushes buffered spans and metrics to the exporters now.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	for _, p := range t.activeProviders() {
		if err := p.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s provider flush: %w", p.label, err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus describes telemetry health.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Reason   string
}

// Health reports whether the providers are up and, if they degraded, why.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Healthy: false, Degraded: true, Reason: "telemetry not initialized"}
	}
	return HealthStatus{
		Healthy:  t.healthy.Load(),
		Degraded: t.degraded.Load(),
		Reason:   t.degradedReason,
	}
}

// IsEnabled reports whether telemetry is switched on and still healthy.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.config == nil {
		return false
	}
	return t.config.Enabled && t.healthy.Load()
}

// setDegraded marks telemetry as degraded, keeping the first reason.
func (t *Telemetry) setDegraded(err error) {
	if t.degraded.CompareAndSwap(false, true) {
		t.degradedReason = err.Error()
	}
}

// Package tracing sets up the OpenTelemetry tracer provider used by the
// dispatcher. Spans are exported over OTLP/HTTP when an endpoint is
// configured; otherwise a no-op provider is returned.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/sbot/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrSampleRatio is returned for a sample ratio outside [0, 1].
var ErrSampleRatio = errors.New("tracing: sample_ratio must be between 0 and 1")

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// Provider bundles a tracer provider with its shutdown function.
type Provider struct {
	trace.TracerProvider
	Shutdown ShutdownFunc
	Enabled  bool
}

// Setup builds the provider described by cfg. serviceName and version are
// attached to every span as resource attributes.
func Setup(ctx context.Context, cfg config.TracingConfig, serviceName, version string) (*Provider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return Disabled(), nil
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrSampleRatio, cfg.SampleRatio)
	}

	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}
	return NewProvider(exporter, cfg.SampleRatio, serviceName, version), nil
}

// NewProvider wraps exporter in a batching SDK provider. A zero ratio
// samples every trace.
func NewProvider(exporter sdktrace.SpanExporter, ratio float64, serviceName, version string) *Provider {
	if ratio <= 0 {
		ratio = 1
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	return &Provider{
		TracerProvider: tp,
		Shutdown:       tp.Shutdown,
		Enabled:        true,
	}
}

// Disabled returns a provider whose spans are discarded.
func Disabled() *Provider {
	return &Provider{
		TracerProvider: noop.NewTracerProvider(),
		Shutdown:       func(context.Context) error { return nil },
	}
}

func exporterOptions(cfg config.TracingConfig) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

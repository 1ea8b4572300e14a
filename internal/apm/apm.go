// Package apm configures OpenTelemetry tracing for the process.
package apm

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/simple-arbitrage/internal/logger"
)

// Exporter names a span exporter.
type Exporter string

const (
	ExporterNone     Exporter = "none"
	ExporterZipkin   Exporter = "zipkin"
	ExporterConsole  Exporter = "console"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
	ExporterOTLPHTTP Exporter = "otlp-http"
)

const shutdownTimeout = 5 * time.Second

// Config selects and configures the exporter.
type Config struct {
	ServiceName string
	Exporter    Exporter
	Endpoint    string            // collector URL; unused by console
	Headers     map[string]string // OTLP only
	SampleRatio float64           // 0 means always sample
	Writer      io.Writer         // console only, defaults to stdout
}

// TraceProvider flushes and stops tracing.
type TraceProvider interface {
	Stop() error
}

type noopProvider struct{}

func (noopProvider) Stop() error { return nil }

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

func (p *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// NewTraceProvider installs a global tracer provider for cfg.Exporter.
// ExporterNone leaves the otel no-op provider in place.
func NewTraceProvider(ctx context.Context, cfg Config, log logger.LoggerInterface) (TraceProvider, error) {
	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return noopProvider{}, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("otel.exporter", string(cfg.Exporter)),
		))
	if err != nil {
		// Schema URL conflicts between resource.Default and semconv are not fatal.
		log.Warn(ctx, "trace resource merge", "error", err)
		rsrc = resource.Default()
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing initialized", "exporter", string(cfg.Exporter), "endpoint", cfg.Endpoint)
	return &traceProvider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterConsole:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))

	case ExporterZipkin:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		return zipkin.New(endpoint)

	case ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithHeaders(cfg.Headers)}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(cfg.Headers)}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
}

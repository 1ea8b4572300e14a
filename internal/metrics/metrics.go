// Package metrics owns the OpenTelemetry meter provider and the
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// Config selects metric readers. Prometheus and OTLP may both be on.
type Config struct {
	ServiceName    string
	Prometheus     bool
	OTLPEndpoint   string
	OTLPInsecure   bool
	ExportInterval time.Duration
}

// Provider wraps the SDK meter provider and its private scrape registry.
type Provider struct {
	mp       *sdkmetric.MeterProvider
	registry *prometheus.Registry
	server   *http.Server
}

// NewProvider builds the readers in cfg and installs the result as the
// global meter provider so package-level otel.Meter calls pick it up.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}
	var opts []sdkmetric.Option

	if cfg.Prometheus {
		p.registry = prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exp))
	}

	if cfg.OTLPEndpoint != "" {
		grpcOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		var readerOpts []sdkmetric.PeriodicReaderOption
		if cfg.ExportInterval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...)))
	}

	if cfg.ServiceName != "" {
		opts = append(opts, sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
		)))
	}

	p.mp = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.mp)
	return p, nil
}

// Handler serves the Prometheus registry. It is nil-safe when Prometheus
// is disabled and answers 404.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics in the background. The bound
// address is returned so callers may pass ":0".
func (p *Provider) Serve(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			otel.Handle(err)
		}
	}()

	return ln.Addr().String(), nil
}

// Shutdown stops the scrape server and flushes pending exports.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.server != nil {
		errs = append(errs, p.server.Shutdown(ctx))
	}
	errs = append(errs, p.mp.Shutdown(ctx))
	return errors.Join(errs...)
}

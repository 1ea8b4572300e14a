// Package httpclient is a small traced HTTP client for JSON APIs.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxConnsPerHost = 4
	maxBodyBytes           = 8 << 20
	instrumentationName    = "httpclient"
)

// Option configures a Client.
type Option func(*Client)

// WithName labels spans and metrics with the remote service name.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithTimeout bounds each request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithTransport replaces the base transport. Instrumentation still wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// Client sends requests through an otelhttp transport and records a
// request counter labelled by service and status class.
type Client struct {
	http     *http.Client
	name     string
	tracer   trace.Tracer
	headers  http.Header
	requests metric.Int64Counter
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{KeepAlive: 15 * time.Second}).DialContext,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		name:    "default",
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}

	c.http.Transport = otelhttp.NewTransport(c.http.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request counter: %w", err)
	}
	c.requests = counter
	return c, nil
}

// RequestOption adjusts a single request.
type RequestOption func(*http.Request, *[]attribute.KeyValue)

// Header sets a per-request header.
func Header(key, value string) RequestOption {
	return func(r *http.Request, _ *[]attribute.KeyValue) { r.Header.Set(key, value) }
}

// Label adds a span and metric attribute.
func Label(key, value string) RequestOption {
	return func(_ *http.Request, attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, attribute.String(key, value))
	}
}

// Post sends body to url. A non-2xx status is not an error; callers
// inspect the Response.
func (c *Client) Post(ctx context.Context, url string, body []byte, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, body, opts)
}

// Get fetches url.
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, opts)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, opts []RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}

	attrs := []attribute.KeyValue{attribute.String("http.service", c.name)}
	for _, opt := range opts {
		opt(req, &attrs)
	}

	ctx, span := c.tracer.Start(ctx, c.name+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
	defer span.End()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.requests.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", "error"))...))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", statusClass(resp.StatusCode)))...))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, body: data}, nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// Body returns the raw body.
func (r *Response) Body() []byte { return r.body }

// String returns the body as text.
func (r *Response) String() string { return string(r.body) }

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

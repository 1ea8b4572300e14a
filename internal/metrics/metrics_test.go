package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestProvider_PrometheusScrape(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{ServiceName: "arb-test", Prometheus: true})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(ctx)

	counter, err := otel.Meter("metrics-test").Int64Counter("bundles_submitted")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(ctx, 3)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "bundles_submitted") {
		t.Errorf("scrape missing counter:\n%s", body)
	}
}

func TestProvider_HandlerWithoutPrometheus(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer p.Shutdown(ctx)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProvider_ServeAndShutdown(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{Prometheus: true})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	addr, err := p.Serve("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

package apm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

func TestNewTraceProvider_Console(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		ServiceName: "arb-test",
		Exporter:    ExporterConsole,
		Writer:      &buf,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewTraceProvider: %v", err)
	}

	_, span := otel.Tracer("apm-test").Start(context.Background(), "scan.cycle")
	span.End()

	if err := tp.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !strings.Contains(buf.String(), "scan.cycle") {
		t.Errorf("span not exported, got %q", buf.String())
	}
}

func TestNewTraceProvider_Selection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty_is_noop", cfg: Config{}},
		{name: "none", cfg: Config{Exporter: ExporterNone}},
		{name: "unknown", cfg: Config{Exporter: "jaeger"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTraceProvider(context.Background(), tt.cfg, &mockLogger{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if err := tp.Stop(); err != nil {
					t.Errorf("Stop: %v", err)
				}
			}
		})
	}
}

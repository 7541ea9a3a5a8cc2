package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/message"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tracer, err := newWithProcessor(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "yapas-test",
	}, sdktrace.NewSimpleSpanProcessor(exporter))
	if err != nil {
		t.Fatalf("newWithProcessor() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	return tracer, exporter
}

func mustParse(t *testing.T, raw string) *message.Message {
	t.Helper()
	m, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return m
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// TestNew tests the creation of a new tracer
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "disabled tracing",
			config: &config.TracingConfig{
				Enabled:     false,
				ServiceName: "test-service",
			},
			wantErr: false,
			enabled: false,
		},
		{
			name: "enabled with ratio sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "ratio",
				SampleRatio: 0.5,
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
				OTLP: config.OTLPConfig{
					Insecure: true,
					Timeout:  time.Second,
				},
			},
			wantErr: false,
			enabled: true,
		},
		{
			name: "invalid sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "invalid",
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestTracer_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.StartExchange(context.Background(), mustParse(t, "GET / HTTP/1.1\r\n\r\n"))
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("expected an invalid span context from a disabled tracer")
	}
	if TraceID(ctx) != "" {
		t.Error("expected no trace ID from a disabled tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTracer_StartExchange(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	req := mustParse(t, "GET /static/app.js HTTP/1.1\r\nHost: example.com\r\n\r\n")

	ctx, span := tracer.StartExchange(context.Background(), req)
	if TraceID(ctx) == "" {
		t.Error("expected a trace ID in the exchange context")
	}
	SetLocationAttributes(span, "static")
	SetCacheAttributes(span, true, "static")
	SetResponseAttributes(span, 200, true)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := spans[0]
	if got.Name != ExchangeSpanName {
		t.Errorf("span name = %q, want %q", got.Name, ExchangeSpanName)
	}
	if got.SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", got.SpanKind)
	}

	checks := map[string]string{
		AttrHTTPMethod:   "GET",
		AttrURLPath:      "/static/app.js",
		AttrLocationKind: "static",
		AttrCacheName:    "static",
	}
	for key, want := range checks {
		v, ok := attrValue(got.Attributes, key)
		if !ok || v.AsString() != want {
			t.Errorf("attribute %s = %v, want %q", key, v.Emit(), want)
		}
	}
	if v, ok := attrValue(got.Attributes, AttrHTTPStatusCode); !ok || v.AsInt64() != 200 {
		t.Errorf("status attribute = %v, want 200", v.Emit())
	}
}

func TestTracer_StartExchange_ContinuesInboundTrace(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	req := mustParse(t, "GET / HTTP/1.1\r\ntraceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01\r\n\r\n")

	_, span := tracer.StartExchange(context.Background(), req)
	span.End()

	got := exporter.GetSpans()[0]
	if got.SpanContext.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace ID = %s, want inbound trace", got.SpanContext.TraceID())
	}
	if got.Parent.SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("parent span = %s, want inbound span", got.Parent.SpanID())
	}
}

func TestSetErrorAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "op")
	SetErrorAttributes(span, errors.New("connection refused"), "upstream")
	SetErrorAttributes(span, nil, "ignored")
	span.End()

	got := exporter.GetSpans()[0]
	if got.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status.Code)
	}
	if v, _ := attrValue(got.Attributes, AttrErrorType); v.AsString() != "upstream" {
		t.Errorf("error type = %q, want upstream", v.AsString())
	}
	if len(got.Events) != 1 {
		t.Errorf("expected 1 recorded error event, got %d", len(got.Events))
	}
}

func TestSetConnectionAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "op")
	SetConnectionAttributes(span, "conn-1", "")
	span.End()

	got := exporter.GetSpans()[0]
	if v, ok := attrValue(got.Attributes, AttrConnID); !ok || v.AsString() != "conn-1" {
		t.Errorf("conn id = %v", v.Emit())
	}
	if _, ok := attrValue(got.Attributes, AttrRequestID); ok {
		t.Error("empty request id should not be recorded")
	}
}

func TestSetStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "op")
	SetStatus(span, nil)
	span.End()

	if got := exporter.GetSpans()[0].Status.Code; got != codes.Ok {
		t.Errorf("status = %v, want Ok", got)
	}
}

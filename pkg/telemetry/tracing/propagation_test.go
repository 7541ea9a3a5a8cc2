package tracing

import (
	"context"
	"strings"
	"testing"
)

func TestMessageCarrier(t *testing.T) {
	msg := mustParse(t, "GET / HTTP/1.1\r\nHost: example.com\r\nTraceParent: old\r\n\r\n")
	carrier := MessageCarrier{Msg: msg}

	t.Run("get ignores case", func(t *testing.T) {
		if got := carrier.Get("traceparent"); got != "old" {
			t.Errorf("Get() = %q, want %q", got, "old")
		}
		if got := carrier.Get("tracestate"); got != "" {
			t.Errorf("Get() = %q, want empty", got)
		}
	})

	t.Run("set replaces in place", func(t *testing.T) {
		carrier.Set("traceparent", "new")
		if got := msg.HeaderValue("TraceParent"); got != "new" {
			t.Errorf("header = %q, want %q", got, "new")
		}
		if len(msg.Headers()) != 2 {
			t.Errorf("expected 2 headers, got %d", len(msg.Headers()))
		}
	})

	t.Run("set adds missing", func(t *testing.T) {
		carrier.Set("tracestate", "k=v")
		if got := msg.HeaderValue("tracestate"); got != "k=v" {
			t.Errorf("header = %q, want %q", got, "k=v")
		}
	})

	t.Run("keys", func(t *testing.T) {
		keys := carrier.Keys()
		if len(keys) != 3 || keys[0] != "Host" {
			t.Errorf("Keys() = %v", keys)
		}
	})
}

func TestInjectExtract(t *testing.T) {
	tracer, _ := newTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "client")
	defer span.End()

	out := mustParse(t, "GET /api HTTP/1.1\r\nHost: upstream\r\n\r\n")
	Inject(ctx, out)

	header := out.HeaderValue("traceparent")
	if !strings.Contains(header, span.SpanContext().TraceID().String()) {
		t.Fatalf("traceparent %q does not carry trace %s", header, span.SpanContext().TraceID())
	}

	extracted := Extract(context.Background(), out)
	if got := TraceID(extracted); got != span.SpanContext().TraceID().String() {
		t.Errorf("extracted trace %q, want %s", got, span.SpanContext().TraceID())
	}
}

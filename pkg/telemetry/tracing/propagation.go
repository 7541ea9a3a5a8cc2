package tracing

import (
	"context"
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/message"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// W3C Trace Context propagation over raw messages.
//
// traceparent: version-trace_id-parent_id-trace_flags
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// An inbound traceparent becomes the parent of the exchange span; the proxy
// handler writes the current span's traceparent into the upstream request.
// Nothing is injected while tracing is disabled because the global
// propagator stays a noop.

// MessageCarrier adapts a message's headers to propagation.TextMapCarrier.
// Lookups ignore case; message headers are otherwise case-sensitive.
type MessageCarrier struct {
	Msg *message.Message
}

var _ propagation.TextMapCarrier = MessageCarrier{}

// Get returns the value of the first header matching key, ignoring case.
func (c MessageCarrier) Get(key string) string {
	for _, f := range c.Msg.Headers() {
		if strings.EqualFold(f.Name, key) {
			return f.Value
		}
	}
	return ""
}

// Set stores key, replacing a header of the same name in any case.
func (c MessageCarrier) Set(key, value string) {
	for _, f := range c.Msg.Headers() {
		if strings.EqualFold(f.Name, key) {
			c.Msg.UpdateHeader(f.Name, value)
			return
		}
	}
	c.Msg.AddHeader(key, value)
}

// Keys lists the header names.
func (c MessageCarrier) Keys() []string {
	fields := c.Msg.Headers()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Name)
	}
	return keys
}

// Propagator returns the configured text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying the trace context found in msg's headers.
// If there is none, the original context is returned.
func Extract(ctx context.Context, msg *message.Message) context.Context {
	return Propagator().Extract(ctx, MessageCarrier{Msg: msg})
}

// Inject writes the trace context of ctx into msg's headers.
func Inject(ctx context.Context, msg *message.Message) {
	Propagator().Inject(ctx, MessageCarrier{Msg: msg})
}

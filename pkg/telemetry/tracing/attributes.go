package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on exchange spans. HTTP keys follow the OpenTelemetry
// semantic conventions; proxy-specific keys use the "yapas.*" namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrURLPath        = "url.path"
	AttrHTTPStatusCode = "http.response.status_code"

	AttrConnID       = "yapas.conn_id"
	AttrRequestID    = "yapas.request_id"
	AttrLocationKind = "yapas.location.kind"
	AttrKeepAlive    = "yapas.keep_alive"
	AttrUpstreamAddr = "yapas.upstream.address"
	AttrCacheHit     = "yapas.cache.hit"
	AttrCacheName    = "yapas.cache.name"
	AttrErrorType    = "yapas.error.type"
	AttrErrorMessage = "error.message"
)

// SetConnectionAttributes sets the connection and request IDs.
func SetConnectionAttributes(span trace.Span, connID, requestID string) {
	attrs := make([]attribute.KeyValue, 0, 2)
	if connID != "" {
		attrs = append(attrs, attribute.String(AttrConnID, connID))
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetLocationAttributes records the handler kind the request was routed to.
func SetLocationAttributes(span trace.Span, kind string) {
	span.SetAttributes(attribute.String(AttrLocationKind, kind))
}

// SetResponseAttributes records the status code written to the client and
// whether the connection stays open.
func SetResponseAttributes(span trace.Span, status int, keepAlive bool) {
	span.SetAttributes(
		attribute.Int(AttrHTTPStatusCode, status),
		attribute.Bool(AttrKeepAlive, keepAlive),
	)
}

// SetUpstreamAttributes records the upstream a request was forwarded to.
func SetUpstreamAttributes(span trace.Span, address string) {
	span.SetAttributes(attribute.String(AttrUpstreamAddr, address))
}

// SetCacheAttributes records a response cache lookup.
//
// Example:
//
//	SetCacheAttributes(span, true, "static")
func SetCacheAttributes(span trace.Span, hit bool, cacheName string) {
	span.SetAttributes(
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheName, cacheName),
	)
}

// SetErrorAttributes records err with a classification such as "upstream"
// or "framing", and marks the span as failed.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
	SetError(span, err)
	SetStatus(span, err)
}

// Package tracing provides OpenTelemetry distributed tracing for yapas.
//
// # Overview
//
// Every request/response exchange on a client connection gets one server
// span ("yapas.exchange"). The span records the request method and path,
// the location kind the request was routed to, cache hits of the static
// handler, the status code written back and whether the connection stays
// open. Failures are recorded with an error type such as "upstream" or
// "framing".
//
// Spans are exported over OTLP gRPC. When tracing is disabled a noop tracer
// is used and nothing is propagated.
//
// # Propagation
//
// W3C Trace Context headers are read from inbound requests, so a client's
// trace continues through the proxy, and written into requests forwarded to
// the upstream:
//
//	ctx, span := tracer.StartExchange(ctx, req)
//	defer span.End()
//	...
//	tracing.Inject(ctx, req)
//	resp, err := client.Forward(ctx, req)
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    otlp:
//	      insecure: true
package tracing

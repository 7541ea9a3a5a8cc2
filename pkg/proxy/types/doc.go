// Package types holds the error kinds shared by every stage of the proxy:
// message framing, location dispatch, handlers, and the upstream client.
//
// Per-connection errors (FramingError, UnsupportedProtocolError, ProtocolError,
// NotFoundError, MethodNotAllowedError, UpstreamError) are converted into a
// status-line-only response at the connection boundary. ConfigurationError is
// only produced during startup and aborts it.
package types

package types

import "fmt"

// FramingError is returned when a message head is malformed: the status line
// does not have the expected tokens, a header line lacks a ':' separator, or
// the head exceeds the configured size limit.
type FramingError struct {
	// Line is the offending line, if one could be identified.
	Line string

	// Reason describes what was wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *FramingError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("framing error: %s", e.Reason)
	}
	return fmt.Sprintf("framing error: %s: %q", e.Reason, e.Line)
}

// UnsupportedProtocolError is returned when the protocol token of a status
// line is anything other than HTTP/1.1.
type UnsupportedProtocolError struct {
	Protocol string
}

// Error implements the error interface.
func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("unsupported protocol %q", e.Protocol)
}

// ProtocolError is returned when a well-framed message arrives where it is not
// allowed, e.g. a response on the inbound leg of a connection.
type ProtocolError struct {
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// NotFoundError is returned when no location matches a request path, or when
// a handler cannot find the resource the path names.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("page %s not found on this server", e.Path)
}

// MethodNotAllowedError is returned when a handler does not accept the request method.
type MethodNotAllowedError struct {
	Method  string
	Allowed []string
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed (allowed: %v)", e.Method, e.Allowed)
}

// UpstreamError represents a connect, write or read failure on the upstream leg.
type UpstreamError struct {
	// Address is the upstream host:port.
	Address string

	// Op is the failed operation: "dial", "write" or "read".
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Address, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// ConfigurationError is a startup-time error. It is never converted into a
// response; it prevents the server from starting.
type ConfigurationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

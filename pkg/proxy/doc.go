// Package proxy holds the per-exchange rules shared by the server and the
// handlers: how inbound requests are validated and rewritten before dispatch,
// how responses are adjusted before they are written, and how errors become
// status-line-only responses.
//
// # Error responses
//
// Every per-connection failure is converted by HandleError into a response of
// the form
//
//	HTTP/1.1 404 Not Found\r\n
//	\r\n
//
// with no headers and no body. See StatusFor for the mapping.
//
// # Header rewrite
//
// Before dispatch the server calls RewriteUpstreamIdentity, which sets Host,
// X-Forwarded-For and Referer to the configured upstream identity. The proxy
// presents one fixed virtual host to its backends; it is not a pass-through.
package proxy

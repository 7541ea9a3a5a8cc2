// Package server provides the raw TCP reverse proxy server.
//
// The server accepts TCP connections (optionally wrapped in TLS) and runs one
// goroutine per connection. Each connection moves through a fixed state
// machine:
//
//	LISTENING -> ACCEPTED -> PARSING -> DISPATCHING -> HANDLING -> RESPONDING
//
// after which it either loops back through KEEP_ALIVE to PARSING, when the
// response carries "Connection: keep-alive", or is CLOSED.
//
// # Exchange
//
// For every request the server:
//  1. Reads one message with message.ReadMessage (head size bounded by
//     server.max_header_bytes)
//  2. Checks that it is a request with an origin-form path
//  3. Rewrites Host, X-Forwarded-For and Referer to the upstream identity
//  4. Resolves the location and runs its handler, recovering from panics
//  5. Copies an inbound Set-Cookie onto the response as Cookie
//  6. Writes the response
//
// Any error is converted into a status-line-only response by
// proxy.HandleError. A failure never escapes its connection.
//
// # Lifecycle
//
//	srv, err := server.NewServer(cfg, server.Deps{Dispatcher: d, Collector: c})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//
// Restart closes the listener and binds a new one on the same address.
// Accepted connections keep running. Shutdown closes the listener and idle
// keep-alive connections, then waits for in-flight exchanges until its
// context ends. Server implements control.Target so both are normally driven
// by a control.Controller.
//
// # Timeouts
//
// server.idle_timeout bounds the wait for the next request on a keep-alive
// connection. A request in progress has no deadline; a hung upstream stalls
// only its own connection.
package server

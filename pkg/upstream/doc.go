// Package upstream implements the client the proxy handler uses to reach the
// backend server.
package upstream

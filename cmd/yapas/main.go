// Yapas is a minimal reverse proxy that speaks HTTP/1.1 directly over TCP.
//
// It routes each request by path prefix to one of a small set of handlers:
//   - proxy forwards the request to the configured upstream
//   - static serves files from a local directory through an in-memory cache
//   - restart rebinds the listener without dropping connections
//   - metrics reports request totals and Prometheus series
//
// Usage:
//
//	# Start with the default configuration file
//	yapas run
//
//	# Start with a custom configuration file
//	yapas run --config /etc/yapas/yapas.yaml
//
//	# Check a configuration and print its location table
//	yapas validate --format json
//
//	# Show version information
//	yapas version
package main

func main() {
	Execute()
}

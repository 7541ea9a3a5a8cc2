// Package telemetry groups the observability packages of yapas.
//
//   - logging: slog construction, per-connection context fields, header redaction
//   - metrics: Prometheus series and the running request totals
//   - tracing: one OpenTelemetry span per exchange, noop when disabled
//
// Each subpackage is configured from the matching section of
// config.TelemetryConfig and is safe for concurrent use.
package telemetry

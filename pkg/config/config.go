package config

import "time"

// Config is the root configuration structure for yapas.
// It contains the listener, the upstream, the ordered location table, the
// static file and cache settings, telemetry and security.
type Config struct {
	// Server contains listener configuration: address, keep-alive idle
	// timeout, header size limit and shutdown drain timeout.
	Server ServerConfig `yaml:"server"`

	// Upstream contains the backend address and the identity presented to it.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Locations is the ordered location table. The first location whose
	// pattern is a prefix of the request path handles the request.
	Locations []LocationConfig `yaml:"locations"`

	// Static contains configuration for the static file handler.
	Static StaticConfig `yaml:"static"`

	// Cache contains configuration for the response cache used by the static
	// file handler.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains transport security configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the raw TCP listener.
type ServerConfig struct {
	// Host is the interface to bind.
	// Default: "0.0.0.0"
	Host string `yaml:"host"`

	// Port is the TCP port to bind.
	// Default: 8079
	Port int `yaml:"port"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// on a keep-alive connection. A request in progress is never timed out.
	// Zero means wait indefinitely.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaxHeaderBytes limits the size of a request line plus headers.
	// A larger head is answered with 400.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// connections during a graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig contains configuration for the backend server.
type UpstreamConfig struct {
	// Address is the backend host:port the proxy handler forwards to.
	// Default: "localhost:8000"
	Address string `yaml:"address"`

	// Identity is written into the Host, X-Forwarded-For and Referer headers
	// of every inbound request before dispatch.
	// Default: the value of Address
	Identity string `yaml:"identity"`

	// DialTimeout bounds the connect to the upstream. Zero uses the platform
	// default.
	// Default: 0
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LocationConfig binds a path prefix to a handler kind.
type LocationConfig struct {
	// Pattern is the path prefix. A leading "/" is added if missing.
	Pattern string `yaml:"pattern"`

	// Kind is the handler kind.
	// Options: "proxy", "static", "restart", "metrics"
	Kind string `yaml:"kind"`
}

// StaticConfig contains configuration for the static file handler.
type StaticConfig struct {
	// Root is the directory files are served from.
	// Default: "./static"
	Root string `yaml:"root"`

	// Prefix is stripped from the request path before it is joined onto Root.
	// Default: "/static"
	Prefix string `yaml:"prefix"`

	// Watch drops cached files when they change on disk.
	// Default: true
	Watch *bool `yaml:"watch"`
}

// WatchEnabled reports whether file watching is on, treating unset as true.
func (s StaticConfig) WatchEnabled() bool {
	return s.Watch == nil || *s.Watch
}

// CacheConfig contains configuration for the response cache.
type CacheConfig struct {
	// TTL is how long a cached response stays fresh. Zero disables expiry.
	// Default: 60s
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the cache; the least recently used entry is evicted
	// when it is full. Zero means unbounded.
	// Default: 300
	MaxEntries int `yaml:"max_entries"`

	// RefreshOnHit extends an entry's expiry every time it is read.
	// Default: false
	RefreshOnHit bool `yaml:"refresh_on_hit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactHeaders lists extra header names whose values are masked when
	// messages are logged. Cookie, Set-Cookie, Authorization and
	// Proxy-Authorization are always masked.
	RedactHeaders []string `yaml:"redact_headers"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether Prometheus metrics are recorded. The
	// in-process request totals reported by the metrics handler are always
	// kept.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "yapas"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// ReportSchedule is a cron expression for periodic reports of the
	// running totals. Empty means reports are only produced on demand.
	// Example: "*/5 * * * *"
	ReportSchedule string `yaml:"report_schedule"`
}

// IsEnabled reports whether metrics are on, treating unset as true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1 (10%)
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "yapas"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS wraps the listener in TLS.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled controls whether the listener is wrapped in TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`
}

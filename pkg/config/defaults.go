package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8079
	DefaultIdleTimeout     = 120 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultShutdownTimeout = 30 * time.Second

	// Upstream defaults
	DefaultUpstreamAddress = "localhost:8000"

	// Location defaults
	DefaultLocationPattern = "/"
	DefaultLocationKind    = "proxy"

	// Static defaults
	DefaultStaticRoot   = "./static"
	DefaultStaticPrefix = "/static"

	// Cache defaults
	DefaultCacheTTL        = 60 * time.Second
	DefaultCacheMaxEntries = 300

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsNamespace   = "yapas"
	DefaultMetricsSubsystem   = "proxy"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "yapas"
	DefaultTracingOTLPTimeout = 10 * time.Second
)

// DefaultRequestDurationBuckets are sized for a local proxy: most exchanges
// finish in milliseconds.
func DefaultRequestDurationBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// An empty location table becomes a single catch-all proxy location.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Upstream defaults
	if cfg.Upstream.Address == "" {
		cfg.Upstream.Address = DefaultUpstreamAddress
	}
	if cfg.Upstream.Identity == "" {
		cfg.Upstream.Identity = cfg.Upstream.Address
	}

	// Location defaults
	if len(cfg.Locations) == 0 {
		cfg.Locations = []LocationConfig{{Pattern: DefaultLocationPattern, Kind: DefaultLocationKind}}
	}

	// Static defaults
	if cfg.Static.Root == "" {
		cfg.Static.Root = DefaultStaticRoot
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = DefaultStaticPrefix
	}

	// Cache defaults
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets()
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

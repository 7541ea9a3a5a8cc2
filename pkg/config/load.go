package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "YAPAS_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention YAPAS_SECTION_FIELD (e.g., YAPAS_SERVER_PORT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// A value that cannot be parsed is an error rather than being silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError
	env := envReader{errs: &errs}

	// An identity defaulted from the address follows an overridden address.
	identityFollows := cfg.Upstream.Identity == cfg.Upstream.Address

	// Server overrides
	env.str("SERVER_HOST", &cfg.Server.Host)
	env.integer("SERVER_PORT", &cfg.Server.Port)
	env.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	env.integer("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	env.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Upstream overrides
	env.str("UPSTREAM_ADDRESS", &cfg.Upstream.Address)
	env.str("UPSTREAM_IDENTITY", &cfg.Upstream.Identity)
	env.duration("UPSTREAM_DIAL_TIMEOUT", &cfg.Upstream.DialTimeout)
	if _, set := env.lookup("UPSTREAM_IDENTITY"); identityFollows && !set {
		cfg.Upstream.Identity = cfg.Upstream.Address
	}

	// Static overrides
	env.str("STATIC_ROOT", &cfg.Static.Root)
	env.str("STATIC_PREFIX", &cfg.Static.Prefix)
	env.boolPtr("STATIC_WATCH", &cfg.Static.Watch)

	// Cache overrides
	env.duration("CACHE_TTL", &cfg.Cache.TTL)
	env.integer("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	env.boolean("CACHE_REFRESH_ON_HIT", &cfg.Cache.RefreshOnHit)

	// Telemetry overrides
	env.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	env.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	env.boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	env.boolPtr("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	env.str("TELEMETRY_METRICS_REPORT_SCHEDULE", &cfg.Telemetry.Metrics.ReportSchedule)
	env.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	env.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	env.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	env.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	env.str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)

	// Security overrides
	env.boolean("SECURITY_TLS_ENABLED", &cfg.Security.TLS.Enabled)
	env.str("SECURITY_TLS_CERT_FILE", &cfg.Security.TLS.CertFile)
	env.str("SECURITY_TLS_KEY_FILE", &cfg.Security.TLS.KeyFile)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// envReader reads YAPAS_* variables into config fields, collecting parse errors.
type envReader struct {
	errs *[]FieldError
}

func (r envReader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func (r envReader) fail(key, msg string) {
	*r.errs = append(*r.errs, FieldError{Field: EnvPrefix + key, Message: msg})
}

func (r envReader) str(key string, dst *string) {
	if val, ok := r.lookup(key); ok {
		*dst = val
	}
}

func (r envReader) integer(key string, dst *int) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid integer %q", val))
		return
	}
	*dst = n
}

func (r envReader) float(key string, dst *float64) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid number %q", val))
		return
	}
	*dst = f
}

func (r envReader) duration(key string, dst *time.Duration) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid duration %q", val))
		return
	}
	*dst = d
}

func (r envReader) boolean(key string, dst *bool) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid boolean %q", val))
		return
	}
	*dst = b
}

func (r envReader) boolPtr(key string, dst **bool) {
	val, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid boolean %q", val))
		return
	}
	*dst = &b
}

package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Host != DefaultHost {
					t.Errorf("expected host %q, got %q", DefaultHost, cfg.Server.Host)
				}
				if cfg.Server.Port != DefaultPort {
					t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
				}
				if cfg.Server.IdleTimeout != DefaultIdleTimeout {
					t.Errorf("expected idle timeout %v, got %v", DefaultIdleTimeout, cfg.Server.IdleTimeout)
				}
				if cfg.Server.MaxHeaderBytes != DefaultMaxHeaderBytes {
					t.Errorf("expected max header bytes %d, got %d", DefaultMaxHeaderBytes, cfg.Server.MaxHeaderBytes)
				}
				if cfg.Upstream.Address != DefaultUpstreamAddress {
					t.Errorf("expected upstream address %q, got %q", DefaultUpstreamAddress, cfg.Upstream.Address)
				}
				if cfg.Upstream.Identity != DefaultUpstreamAddress {
					t.Errorf("expected identity %q, got %q", DefaultUpstreamAddress, cfg.Upstream.Identity)
				}
				if len(cfg.Locations) != 1 || cfg.Locations[0].Pattern != "/" || cfg.Locations[0].Kind != "proxy" {
					t.Errorf("expected a single catch-all proxy location, got %+v", cfg.Locations)
				}
				if cfg.Static.Root != DefaultStaticRoot || cfg.Static.Prefix != DefaultStaticPrefix {
					t.Errorf("expected static %q %q, got %q %q", DefaultStaticRoot, DefaultStaticPrefix, cfg.Static.Root, cfg.Static.Prefix)
				}
				if !cfg.Static.WatchEnabled() {
					t.Error("expected static watch enabled by default")
				}
				if cfg.Cache.TTL != DefaultCacheTTL {
					t.Errorf("expected cache ttl %v, got %v", DefaultCacheTTL, cfg.Cache.TTL)
				}
				if cfg.Cache.MaxEntries != DefaultCacheMaxEntries {
					t.Errorf("expected cache max entries %d, got %d", DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
				}
				if cfg.Cache.RefreshOnHit {
					t.Error("expected refresh on hit disabled by default")
				}
				if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
					t.Errorf("expected logging level %q, got %q", DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
				}
				if !cfg.Telemetry.Metrics.IsEnabled() {
					t.Error("expected metrics enabled by default")
				}
				if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
					t.Errorf("expected namespace %q, got %q", DefaultMetricsNamespace, cfg.Telemetry.Metrics.Namespace)
				}
				if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
					t.Error("expected default duration buckets")
				}
				if cfg.Telemetry.Tracing.Sampler != DefaultTracingSampler {
					t.Errorf("expected sampler %q, got %q", DefaultTracingSampler, cfg.Telemetry.Tracing.Sampler)
				}
			},
		},
		{
			name: "explicit values are preserved",
			input: Config{
				Server:    ServerConfig{Host: "127.0.0.1", Port: 9000, IdleTimeout: 5 * time.Second},
				Upstream:  UpstreamConfig{Address: "backend:80", Identity: "example.com"},
				Locations: []LocationConfig{{Pattern: "/api", Kind: "proxy"}},
				Cache:     CacheConfig{TTL: time.Second, MaxEntries: 10},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
					t.Errorf("expected 127.0.0.1:9000, got %s:%d", cfg.Server.Host, cfg.Server.Port)
				}
				if cfg.Server.IdleTimeout != 5*time.Second {
					t.Errorf("expected idle timeout 5s, got %v", cfg.Server.IdleTimeout)
				}
				if cfg.Upstream.Identity != "example.com" {
					t.Errorf("expected identity example.com, got %q", cfg.Upstream.Identity)
				}
				if len(cfg.Locations) != 1 || cfg.Locations[0].Pattern != "/api" {
					t.Errorf("expected locations to be preserved, got %+v", cfg.Locations)
				}
				if cfg.Cache.TTL != time.Second || cfg.Cache.MaxEntries != 10 {
					t.Errorf("expected cache 1s/10, got %v/%d", cfg.Cache.TTL, cfg.Cache.MaxEntries)
				}
			},
		},
		{
			name:  "identity follows address",
			input: Config{Upstream: UpstreamConfig{Address: "backend:80"}},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Upstream.Identity != "backend:80" {
					t.Errorf("expected identity backend:80, got %q", cfg.Upstream.Identity)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Default()
	before := *cfg
	ApplyDefaults(cfg)

	if cfg.Server != before.Server || cfg.Upstream != before.Upstream || cfg.Cache != before.Cache {
		t.Error("ApplyDefaults is not idempotent")
	}
	if len(cfg.Locations) != len(before.Locations) {
		t.Error("ApplyDefaults changed the location table on second call")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
}

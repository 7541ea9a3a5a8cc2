// Package config provides configuration management for yapas.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("yapas.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("yapas.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention YAPAS_SECTION_FIELD.
// For example:
//
//   - YAPAS_SERVER_PORT overrides server.port
//   - YAPAS_UPSTREAM_ADDRESS overrides upstream.address
//   - YAPAS_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
// The location table can only be set in the file.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	server:
//	  host: "0.0.0.0"
//	  port: 8079
//
//	upstream:
//	  address: "localhost:8000"
//
//	locations:
//	  - pattern: /static
//	    kind: static
//	  - pattern: /restart
//	    kind: restart
//	  - pattern: /metrics
//	    kind: metrics
//	  - pattern: /
//	    kind: proxy
//
//	cache:
//	  ttl: 60s
//	  max_entries: 300
//
// Locations are matched in order and the first prefix match wins, so the
// catch-all "/" goes last.
package config

// Package logging configures structured logging for yapas.
//
// # Overview
//
// The package builds a log/slog logger from the telemetry.logging section
// of the configuration and provides:
//   - JSON and text output at a configurable level
//   - Context helpers carrying connection, request and trace IDs
//   - Masking of credential-bearing header values
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithConnID(ctx, uuid.NewString())
//	logging.FromContext(ctx).Info("connection accepted")
//
// # Redaction
//
// Authorization, Proxy-Authorization, Cookie and Set-Cookie are always masked
// when a message's headers are logged; more names can be added with
// telemetry.logging.redact_headers:
//
//	r := logging.NewRedactor(cfg.Telemetry.Logging.RedactHeaders)
//	logger.Debug("request received", r.Headers(req.Headers()))
package logging

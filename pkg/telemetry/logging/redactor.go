package logging

import (
	"log/slog"
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/message"
)

// DefaultRedactedHeaders are always masked.
var DefaultRedactedHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
}

// Redactor masks credential-bearing header values before they reach the logs.
type Redactor struct {
	sensitive map[string]struct{}
}

// NewRedactor creates a Redactor for the default headers plus extra.
// Header names are matched case-insensitively.
func NewRedactor(extra []string) *Redactor {
	r := &Redactor{sensitive: make(map[string]struct{})}
	for _, name := range DefaultRedactedHeaders {
		r.sensitive[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			r.sensitive[strings.ToLower(name)] = struct{}{}
		}
	}
	return r
}

// IsSensitive reports whether values of the named header are masked.
func (r *Redactor) IsSensitive(name string) bool {
	_, ok := r.sensitive[strings.ToLower(name)]
	return ok
}

// Headers renders fields as a "headers" group with sensitive values masked.
func (r *Redactor) Headers(fields []message.Field) slog.Attr {
	attrs := make([]any, 0, len(fields))
	for _, f := range fields {
		value := f.Value
		if r.IsSensitive(f.Name) {
			value = redactValue(value)
		}
		attrs = append(attrs, slog.String(f.Name, value))
	}
	return slog.Group("headers", attrs...)
}

// RedactArgs masks the values of sensitive keys in variadic log arguments.
// Args are in the form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		key, ok := redacted[i-1].(string)
		if !ok || !r.IsSensitive(key) {
			continue
		}
		if s, ok := redacted[i].(string); ok {
			redacted[i] = redactValue(s)
		} else {
			redacted[i] = "***"
		}
	}

	return redacted
}

// redactValue keeps a short prefix so values can still be told apart.
func redactValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

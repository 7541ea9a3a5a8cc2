package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// Kind is the closed set of handler kinds a location can name.
type Kind int

const (
	// KindNotFound is the built-in handler used when nothing matches.
	// It cannot be configured.
	KindNotFound Kind = iota

	// KindProxy forwards the request to the upstream.
	KindProxy

	// KindStatic serves a file from the static root through the response cache.
	KindStatic

	// KindRestart asks the process to rebuild its listener.
	KindRestart

	// KindMetrics reports and exposes the collected metrics.
	KindMetrics
)

var kindNames = map[Kind]string{
	KindNotFound: "not_found",
	KindProxy:    "proxy",
	KindStatic:   "static",
	KindRestart:  "restart",
	KindMetrics:  "metrics",
}

// ConfigurableKinds lists the kind names accepted in configuration, in a
// stable order.
var ConfigurableKinds = []string{"proxy", "static", "restart", "metrics"}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a configured kind name into a Kind. An unknown name is a
// *types.ConfigurationError.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "proxy":
		return KindProxy, nil
	case "static":
		return KindStatic, nil
	case "restart":
		return KindRestart, nil
	case "metrics":
		return KindMetrics, nil
	default:
		return 0, &types.ConfigurationError{
			Message: fmt.Sprintf("unknown handler kind %q (valid: %s)", name, strings.Join(ConfigurableKinds, ", ")),
		}
	}
}

// Handler turns a request into a response.
//
// A returned error is converted into a status-line-only response by the
// server; handlers should return the typed errors from the types package.
type Handler interface {
	Handle(ctx context.Context, req *message.Message) (*message.Message, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *message.Message) (*message.Message, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *message.Message) (*message.Message, error) {
	return f(ctx, req)
}

// Location is a path-prefix pattern bound to a handler.
type Location struct {
	Pattern string
	Kind    Kind
	Handler Handler
}

// notFound is the built-in handler for unmatched paths.
var notFound = Location{
	Kind: KindNotFound,
	Handler: HandlerFunc(func(_ context.Context, req *message.Message) (*message.Message, error) {
		return nil, &types.NotFoundError{Path: req.StatusLine().Path}
	}),
}

// Dispatcher resolves request paths to locations.
//
// Resolution is first match in declaration order: the first location whose
// pattern is a byte prefix of the path wins, even if a later pattern is
// longer. With locations "/a" then "/ab", the path "/ab/x" resolves to "/a".
//
// Locations are added during startup only. After PerformChecks the dispatcher
// is read-only and safe for concurrent use without locking.
type Dispatcher struct {
	locations []Location
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// AddLocation appends a location with its pattern normalized.
func (d *Dispatcher) AddLocation(pattern string, kind Kind, h Handler) {
	d.locations = append(d.locations, Location{Pattern: NormalizePattern(pattern), Kind: kind, Handler: h})
}

// NormalizePattern prefixes pattern with "/" when it does not start with one.
func NormalizePattern(pattern string) string {
	if !strings.HasPrefix(pattern, "/") {
		return "/" + pattern
	}
	return pattern
}

// PerformChecks fails with a *types.ConfigurationError when no location was
// registered or a location has no handler.
func (d *Dispatcher) PerformChecks() error {
	if len(d.locations) == 0 {
		return &types.ConfigurationError{Message: "no locations registered"}
	}
	for _, loc := range d.locations {
		if loc.Handler == nil {
			return &types.ConfigurationError{Message: fmt.Sprintf("location %s has no handler", loc.Pattern)}
		}
	}
	return nil
}

// Resolve returns the location serving path. An empty path and a path that
// matches no pattern resolve to the built-in not-found location.
//
// Callers must pass either an empty path or one that starts with "/"; anything
// else is a programming error and panics.
func (d *Dispatcher) Resolve(path string) Location {
	if path == "" {
		return notFound
	}
	if path[0] != '/' {
		panic(fmt.Sprintf("dispatcher: path %q does not start with '/'", path))
	}

	for _, loc := range d.locations {
		if strings.HasPrefix(path, loc.Pattern) {
			return loc
		}
	}
	return notFound
}

// Locations returns a copy of the registered locations in declaration order.
func (d *Dispatcher) Locations() []Location {
	out := make([]Location, len(d.locations))
	copy(out, d.locations)
	return out
}

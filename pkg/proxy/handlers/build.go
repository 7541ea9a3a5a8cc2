package handlers

import (
	"fmt"

	"github.com/andrei-samofalov/yapas/pkg/cache"
	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/control"
	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/render"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/metrics"
	"github.com/andrei-samofalov/yapas/pkg/upstream"
)

// Deps holds what the handler kinds are built from. Only the fields a kind
// needs must be set.
type Deps struct {
	Upstream *upstream.Client
	Static   config.StaticConfig
	Cache    *cache.ResponseCache
	Control  control.Sender
	Metrics  *metrics.Collector
	Renderer *render.Renderer
}

// Build returns the handler for kind. A missing dependency is a
// *types.ConfigurationError.
func Build(kind dispatcher.Kind, deps Deps) (dispatcher.Handler, error) {
	switch kind {
	case dispatcher.KindProxy:
		if deps.Upstream == nil {
			return nil, missing(kind, "upstream client")
		}
		var rec UpstreamErrorRecorder
		if deps.Metrics != nil {
			rec = deps.Metrics
		}
		return NewProxyHandler(deps.Upstream, rec), nil

	case dispatcher.KindStatic:
		if deps.Cache == nil {
			return nil, missing(kind, "response cache")
		}
		if deps.Static.Root == "" {
			return nil, missing(kind, "static root")
		}
		h, err := NewStaticHandler(deps.Static.Root, deps.Static.Prefix, deps.Cache)
		if err != nil {
			return nil, &types.ConfigurationError{Message: err.Error()}
		}
		return h, nil

	case dispatcher.KindRestart:
		if deps.Control == nil {
			return nil, missing(kind, "control channel")
		}
		return NewRestartHandler(deps.Control, deps.Renderer), nil

	case dispatcher.KindMetrics:
		if deps.Metrics == nil {
			return nil, missing(kind, "metrics collector")
		}
		return NewMetricsHandler(deps.Metrics), nil

	default:
		return nil, &types.ConfigurationError{Message: fmt.Sprintf("handler kind %s cannot be configured", kind)}
	}
}

// BuildDispatcher registers one location per configured entry, in order, and
// runs the startup checks.
func BuildDispatcher(locations []config.LocationConfig, deps Deps) (*dispatcher.Dispatcher, error) {
	d := dispatcher.New()
	for _, loc := range locations {
		kind, err := dispatcher.ParseKind(loc.Kind)
		if err != nil {
			return nil, err
		}
		h, err := Build(kind, deps)
		if err != nil {
			return nil, err
		}
		d.AddLocation(loc.Pattern, kind, h)
	}
	if err := d.PerformChecks(); err != nil {
		return nil, err
	}
	return d, nil
}

func missing(kind dispatcher.Kind, what string) error {
	return &types.ConfigurationError{Message: fmt.Sprintf("%s handler needs a %s", kind, what)}
}

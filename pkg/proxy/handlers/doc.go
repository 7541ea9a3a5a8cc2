// Package handlers provides the handler kinds a location can be bound to.
//
// Every handler implements dispatcher.Handler: it takes the parsed request
// and returns a response or one of the typed errors from the types package.
// The server converts a returned error into a status-line-only response.
//
// # Handler Kinds
//
//   - ProxyHandler: forwards the request to the upstream and returns its reply
//   - StaticHandler: serves a file below the static root through the response cache
//   - RestartHandler: queues a Restart command on the control channel
//   - MetricsHandler: reports the running totals and exposes the registry
//
// # Building
//
// Handlers are built once at startup from the location table:
//
//	d, err := handlers.BuildDispatcher(cfg.Locations, handlers.Deps{
//	    Upstream: client,
//	    Static:   cfg.Static,
//	    Cache:    responseCache,
//	    Control:  controller,
//	    Metrics:  collector,
//	})
//
// A kind whose dependency is missing fails with a *types.ConfigurationError.
//
// # Methods
//
// Static accepts GET and HEAD, restart accepts GET and POST and metrics
// accepts GET. Anything else is a *types.MethodNotAllowedError (405). The
// proxy handler forwards every method.
package handlers

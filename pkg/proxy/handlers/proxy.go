package handlers

import (
	"context"
	"errors"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/tracing"
	"github.com/andrei-samofalov/yapas/pkg/upstream"
)

// UpstreamErrorRecorder receives the failed operation of every upstream error.
// *metrics.Collector satisfies it.
type UpstreamErrorRecorder interface {
	RecordUpstreamError(op string)
}

// ProxyHandler forwards requests to the configured upstream and returns its
// reply unchanged.
type ProxyHandler struct {
	client  *upstream.Client
	metrics UpstreamErrorRecorder
}

// NewProxyHandler creates a proxy handler. metrics may be nil.
func NewProxyHandler(client *upstream.Client, metrics UpstreamErrorRecorder) *ProxyHandler {
	return &ProxyHandler{client: client, metrics: metrics}
}

// Handle forwards req. The current trace context is injected into the
// outbound request when tracing is enabled.
func (h *ProxyHandler) Handle(ctx context.Context, req *message.Message) (*message.Message, error) {
	span := tracing.SpanFromContext(ctx)
	tracing.SetUpstreamAttributes(span, h.client.Address())
	tracing.Inject(ctx, req)

	resp, err := h.client.Forward(ctx, req)
	if err != nil {
		var ue *types.UpstreamError
		if errors.As(err, &ue) && h.metrics != nil {
			h.metrics.RecordUpstreamError(ue.Op)
		}
		logging.FromContext(ctx).Warn("upstream exchange failed",
			"upstream", h.client.Address(),
			"error", err,
		)
		return nil, err
	}

	return resp, nil
}

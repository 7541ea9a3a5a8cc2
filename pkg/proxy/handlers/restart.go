package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/andrei-samofalov/yapas/pkg/control"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/render"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
)

// RestartMessage is the text of the page returned by the restart handler.
const RestartMessage = "Restarting..."

const htmlContentType = "text/html; charset=utf-8"

var restartMethods = []string{http.MethodGet, http.MethodPost}

// RestartHandler asks the control loop to rebuild the listener. It never
// touches the listener itself.
type RestartHandler struct {
	control  control.Sender
	renderer *render.Renderer
}

// NewRestartHandler creates a restart handler. A nil renderer uses render.New().
func NewRestartHandler(sender control.Sender, renderer *render.Renderer) *RestartHandler {
	if renderer == nil {
		renderer = render.New()
	}
	return &RestartHandler{control: sender, renderer: renderer}
}

// Handle queues a Restart command and answers with a rendered page.
func (h *RestartHandler) Handle(ctx context.Context, req *message.Message) (*message.Message, error) {
	method := req.StatusLine().Method
	if method != http.MethodGet && method != http.MethodPost {
		return nil, &types.MethodNotAllowedError{Method: method, Allowed: restartMethods}
	}

	logger := logging.FromContext(ctx)
	if h.control.Send(control.Restart) {
		logger.Info("restart requested")
	} else {
		logger.Warn("restart not queued, control queue full")
	}

	body := h.renderer.Render(RestartMessage)
	resp := message.NewResponse(http.StatusOK, body)
	resp.AddHeader(message.HeaderContentType, htmlContentType)
	resp.AddHeader(message.HeaderContentLength, strconv.Itoa(len(body)))
	return resp, nil
}

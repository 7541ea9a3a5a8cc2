package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
)

// errNoResponse is returned when a handler reports neither a response nor an error.
var errNoResponse = errors.New("handler returned no response")

// invoke runs h and recovers from a panic inside it. The panic is logged with
// its stack trace and returned as an unclassified error (500).
func invoke(ctx context.Context, h dispatcher.Handler, req *message.Message) (resp *message.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic in handler",
				"error", r,
				"method", req.StatusLine().Method,
				"path", req.StatusLine().Path,
				"stack", string(debug.Stack()),
			)
			resp, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()

	resp, err = h.Handle(ctx, req)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	return resp, err
}

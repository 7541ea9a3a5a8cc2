package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/tracing"
)

// State is the position of a connection in the exchange state machine:
//
//	LISTENING -> ACCEPTED -> PARSING -> DISPATCHING -> HANDLING -> RESPONDING
//	RESPONDING -> KEEP_ALIVE -> PARSING | CLOSED
type State int32

const (
	StateListening State = iota
	StateAccepted
	StateParsing
	StateDispatching
	StateHandling
	StateResponding
	StateKeepAlive
	StateClosed
)

var stateNames = [...]string{
	StateListening:   "listening",
	StateAccepted:    "accepted",
	StateParsing:     "parsing",
	StateDispatching: "dispatching",
	StateHandling:    "handling",
	StateResponding:  "responding",
	StateKeepAlive:   "keep_alive",
	StateClosed:      "closed",
}

// String returns the state name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// idle reports whether no byte of a request has been read in this state.
func (s State) idle() bool {
	return s == StateAccepted || s == StateKeepAlive
}

// invalidKind labels exchanges whose request could not be parsed.
const invalidKind = "invalid"

// Bounds on how much of a rejected request is drained before closing.
const (
	rejectLingerTimeout = 500 * time.Millisecond
	rejectLingerBytes   = 256 << 10
)

// conn is one accepted client connection.
type conn struct {
	server *Server
	rwc    net.Conn
	id     string
	state  atomic.Int32
}

func newConn(s *Server, rwc net.Conn) *conn {
	c := &conn{server: s, rwc: rwc, id: uuid.NewString()}
	c.setState(StateAccepted)
	return c
}

func (c *conn) setState(st State) {
	c.state.Store(int32(st))
}

func (c *conn) getState() State {
	return State(c.state.Load())
}

// serve runs the exchange loop until the peer closes, a response is not
// keep-alive, or the server shuts down.
func (c *conn) serve(ctx context.Context) {
	defer c.server.untrack(c)
	defer func() {
		c.setState(StateClosed)
		_ = c.rwc.Close()
	}()

	ctx = logging.WithConnID(ctx, c.id)
	logger := logging.WithContext(c.server.logger, ctx)
	logger.Debug("connection accepted", "remote", c.rwc.RemoteAddr().String())

	br := bufio.NewReader(c.rwc)
	for {
		if !c.awaitRequest(br) {
			return
		}
		if !c.exchange(ctx, br) {
			return
		}
		if c.server.shuttingDown.Load() {
			logger.Debug("closing keep-alive connection for shutdown")
			return
		}
		c.setState(StateKeepAlive)
	}
}

// awaitRequest blocks until the first byte of the next request arrives. The
// idle timeout applies only to this wait.
func (c *conn) awaitRequest(br *bufio.Reader) bool {
	if c.server.shuttingDown.Load() {
		return false
	}

	if timeout := c.server.config.IdleTimeout; timeout > 0 {
		_ = c.rwc.SetReadDeadline(time.Now().Add(timeout))
	}
	if _, err := br.Peek(1); err != nil {
		return false
	}
	// A request has started; shutdown must let it finish.
	c.setState(StateParsing)
	_ = c.rwc.SetReadDeadline(time.Time{})
	return true
}

// exchange reads one request and writes one response. It reports whether the
// connection stays open.
func (c *conn) exchange(ctx context.Context, br *bufio.Reader) bool {
	start := time.Now()

	req, err := message.ReadMessage(br, message.ReadOptions{
		MaxHeaderBytes: c.server.config.MaxHeaderBytes,
		ExpectRequest:  true,
	})
	if err != nil {
		return c.rejectUnreadable(ctx, br, err, start)
	}

	ctx = logging.WithRequestID(ctx, requestIDFor(req))

	run := c.handle
	if c.server.collector != nil {
		run = c.server.collector.Wrap(run)
	}
	resp, _ := run(ctx, req)

	c.setState(StateResponding)
	if _, err := resp.WriteTo(c.rwc); err != nil {
		logging.WithContext(c.server.logger, ctx).Debug("failed to write response", "error", err)
		return false
	}

	return resp.IsKeepAlive()
}

// rejectUnreadable answers a malformed request with its status line. A broken
// stream is closed without a reply.
func (c *conn) rejectUnreadable(ctx context.Context, br *bufio.Reader, err error, start time.Time) bool {
	logger := logging.WithContext(c.server.logger, ctx)

	var ne net.Error
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &ne) || !proxy.IsClassified(err) {
		logger.Debug("connection closed while reading request", "error", err)
		return false
	}

	logger.Info("rejecting malformed request", "error", err)
	resp := proxy.HandleError(err)

	c.setState(StateResponding)
	if _, err := resp.WriteTo(c.rwc); err == nil {
		c.closeWriteAndWait(br)
	}

	if c.server.collector != nil {
		c.server.collector.RecordExchange(ctx, invalidKind, nil, resp, time.Since(start))
	}
	return false
}

// closeWriteAndWait half-closes the connection and discards what is left of
// the rejected request, so the peer reads the reply instead of a reset.
func (c *conn) closeWriteAndWait(br *bufio.Reader) {
	cw, ok := c.rwc.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	_ = c.rwc.SetReadDeadline(time.Now().Add(rejectLingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(br, rejectLingerBytes))
}

// handle validates, rewrites, dispatches and runs the handler for req. It
// always returns a response.
func (c *conn) handle(ctx context.Context, req *message.Message) (*message.Message, string) {
	ctx, span := c.server.tracer.StartExchange(ctx, req)
	defer span.End()

	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}
	tracing.SetConnectionAttributes(span, c.id, logging.GetRequestID(ctx))

	logger := logging.WithContext(c.server.logger, ctx)
	line := req.StatusLine()
	logger.Debug("request received",
		"request", line.String(),
		c.server.redactor.Headers(req.Headers()),
	)

	kind := dispatcher.KindNotFound.String()
	resp, err := func() (*message.Message, error) {
		if err := proxy.ValidateRequest(req); err != nil {
			return nil, err
		}
		proxy.RewriteUpstreamIdentity(req, c.server.identity)

		c.setState(StateDispatching)
		loc := c.server.dispatcher.Resolve(line.Path)
		kind = loc.Kind.String()
		tracing.SetLocationAttributes(span, kind)

		c.setState(StateHandling)
		return invoke(ctx, loc.Handler, req)
	}()

	if err != nil {
		resp = c.errorResponse(ctx, err)
		tracing.SetError(span, err)
	} else {
		proxy.TransplantCookie(req, resp)
	}
	tracing.SetStatus(span, err)

	tracing.SetResponseAttributes(span, resp.StatusLine().StatusCode(), resp.IsKeepAlive())

	return resp, kind
}

func (c *conn) errorResponse(ctx context.Context, err error) *message.Message {
	logger := logging.WithContext(c.server.logger, ctx)
	if proxy.IsClassified(err) {
		logger.Info("request failed", "error", err, "status", proxy.StatusFor(err))
	} else {
		logger.Error("unhandled error while serving request", "error", fmt.Sprintf("%+v", err))
	}
	return proxy.HandleError(err)
}

package upstream

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// Config configures a Client.
type Config struct {
	// Address is the upstream host:port.
	Address string

	// DialTimeout bounds the connect. Zero uses the platform default.
	DialTimeout time.Duration

	// MaxHeaderBytes limits the size of the upstream response head.
	// Zero means no limit.
	MaxHeaderBytes int
}

// Client forwards messages to one fixed upstream, one connection per message.
//
// There is no retry and no read deadline: a hung upstream stalls only the
// calling connection. Cancelling ctx aborts the exchange.
type Client struct {
	cfg    Config
	dialer net.Dialer
	logger *slog.Logger
}

// NewClient creates a client for cfg.Address.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
		logger: logger.With("component", "upstream", "upstream", cfg.Address),
	}
}

// Address returns the upstream host:port.
func (c *Client) Address() string {
	return c.cfg.Address
}

// Forward opens a connection, writes msg and reads one full response.
// Every failure is returned as a *types.UpstreamError.
func (c *Client) Forward(ctx context.Context, msg *message.Message) (*message.Message, error) {
	start := time.Now()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, c.fail("dial", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if _, err := msg.WriteTo(conn); err != nil {
		return nil, c.fail("write", c.cause(ctx, err))
	}
	// The upstream sees end of stream after the request.
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, c.fail("write", c.cause(ctx, err))
		}
	}

	opts := message.ReadOptions{
		MaxHeaderBytes: c.cfg.MaxHeaderBytes,
		NoBody:         msg.StatusLine().Method == http.MethodHead,
	}
	resp, err := message.ReadMessage(bufio.NewReader(conn), opts)
	if err != nil {
		return nil, c.fail("read", c.cause(ctx, err))
	}
	if resp.Kind() != message.KindResponse {
		return nil, c.fail("read", &types.ProtocolError{Message: "upstream replied with a request line"})
	}

	c.logger.Debug("Upstream exchange complete",
		"request", msg.StatusLine().String(),
		"response", resp.StatusLine().String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp, nil
}

func (c *Client) fail(op string, err error) error {
	return &types.UpstreamError{Address: c.cfg.Address, Op: op, Cause: err}
}

// cause prefers the context error when the connection was closed because ctx ended.
func (c *Client) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return errors.Join(ctxErr, err)
	}
	return err
}

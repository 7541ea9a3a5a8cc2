package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Command is a typed control message for the process.
type Command int

const (
	// Shutdown stops accepting connections and lets in-flight ones finish.
	Shutdown Command = iota + 1

	// Restart rebuilds the listener on the same address without exiting.
	Restart
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case Shutdown:
		return "shutdown"
	case Restart:
		return "restart"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Sender accepts control commands. Handlers and signal forwarders only need
// this side of a Controller.
type Sender interface {
	Send(cmd Command) bool
}

// Target is what the control loop drives; *server.Server implements it.
type Target interface {
	Restart(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Options configures a Controller.
type Options struct {
	// ShutdownTimeout bounds how long Shutdown may wait for in-flight
	// connections. Zero waits indefinitely.
	ShutdownTimeout time.Duration

	// Buffer is the capacity of the command queue (default 4).
	Buffer int
}

// Controller serializes process control. Signal handlers and handlers push
// commands with Send; Run applies them to the target one at a time.
type Controller struct {
	target   Target
	commands chan Command
	timeout  time.Duration
	logger   *slog.Logger
}

// NewController creates a controller for target.
func NewController(target Target, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 4
	}

	return &Controller{
		target:   target,
		commands: make(chan Command, opts.Buffer),
		timeout:  opts.ShutdownTimeout,
		logger:   logger.With("component", "control"),
	}
}

// Send queues cmd without blocking. It returns false when the queue is full
// and the command was dropped.
func (c *Controller) Send(cmd Command) bool {
	select {
	case c.commands <- cmd:
		c.logger.Debug("Control command queued", "command", cmd.String())
		return true
	default:
		c.logger.Warn("Control queue full, command dropped", "command", cmd.String())
		return false
	}
}

// Run applies queued commands until a Shutdown completes or ctx is cancelled.
// Cancelling ctx is treated as a Shutdown. The returned error is the target's
// shutdown error, if any.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Control loop cancelled, shutting down")
			return c.shutdown()

		case cmd := <-c.commands:
			switch cmd {
			case Restart:
				c.logger.Info("Restarting listener")
				if err := c.target.Restart(ctx); err != nil {
					c.logger.Error("Restart failed", "error", err)
				}
			case Shutdown:
				c.logger.Info("Shutdown requested")
				return c.shutdown()
			default:
				c.logger.Warn("Unknown control command", "command", cmd.String())
			}
		}
	}
}

func (c *Controller) shutdown() error {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.target.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	c.logger.Info("Shutdown complete")
	return nil
}

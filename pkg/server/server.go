package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/metrics"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/tracing"
)

// Deps are the collaborators a Server is built from. Dispatcher is required.
type Deps struct {
	Dispatcher *dispatcher.Dispatcher

	// Collector wraps every exchange. Nil disables request accounting.
	Collector *metrics.Collector

	// Tracer starts one span per exchange. Nil uses a noop tracer.
	Tracer *tracing.Tracer

	// Redactor masks sensitive header values in debug logs.
	Redactor *logging.Redactor
}

// Server is the raw TCP reverse proxy. It owns its listener and runs one
// goroutine per accepted connection.
type Server struct {
	config     config.ServerConfig
	identity   string
	tlsConfig  *tls.Config
	dispatcher *dispatcher.Dispatcher
	collector  *metrics.Collector
	tracer     *tracing.Tracer
	redactor   *logging.Redactor
	logger     *slog.Logger

	// baseCtx is the parent of every connection context. It is cancelled
	// when a shutdown gives up on draining.
	baseCtx context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	listener   net.Listener
	acceptDone chan struct{}
	addr       string
	restarts   int

	connsMu sync.Mutex
	conns   map[*conn]struct{}
	connWG  sync.WaitGroup

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewServer creates a server for cfg. The dispatcher must pass its startup
// checks; a server without locations refuses to be built.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Dispatcher == nil {
		return nil, &types.ConfigurationError{Message: "server needs a dispatcher"}
	}
	if err := deps.Dispatcher.PerformChecks(); err != nil {
		return nil, err
	}

	tracer := deps.Tracer
	if tracer == nil {
		var err error
		if tracer, err = tracing.New(&config.TracingConfig{}); err != nil {
			return nil, err
		}
	}

	redactor := deps.Redactor
	if redactor == nil {
		redactor = logging.NewRedactor(nil)
	}

	s := &Server{
		config:     cfg.Server,
		identity:   cfg.Upstream.Identity,
		dispatcher: deps.Dispatcher,
		collector:  deps.Collector,
		tracer:     tracer,
		redactor:   redactor,
		logger:     slog.Default().With("component", "server"),
		conns:      make(map[*conn]struct{}),
		done:       make(chan struct{}),
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	if cfg.Security.TLS.Enabled {
		tlsConfig, err := configureTLS(cfg.Security.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	return s, nil
}

// Start binds the listener and starts accepting connections. It returns once
// the listener is bound.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown.Load() {
		return errors.New("server is shut down")
	}
	if s.listener != nil {
		return errors.New("server is already running")
	}

	address := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	if err := s.bindLocked(address); err != nil {
		return err
	}

	s.logger.Info("starting proxy server",
		"address", s.addr,
		"tls_enabled", s.tlsConfig != nil,
		"locations", len(s.dispatcher.Locations()),
	)
	return nil
}

// Serve starts the server and blocks until it has shut down. Cancelling ctx
// triggers a graceful shutdown bounded by the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
	}

	shutdownCtx := context.Background()
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.Shutdown(shutdownCtx)
}

// Restart tears down the listener and binds a new one on the same address.
// Accepted connections are not affected.
func (s *Server) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown.Load() {
		return errors.New("server is shutting down")
	}
	if s.addr == "" {
		return errors.New("server is not running")
	}

	if s.listener != nil {
		_ = s.listener.Close()
		<-s.acceptDone
		s.listener = nil
	}

	if err := s.bindLocked(s.addr); err != nil {
		return fmt.Errorf("failed to rebind %s: %w", s.addr, err)
	}
	s.restarts++

	s.logger.Info("listener restarted",
		"address", s.addr,
		"restarts", s.restarts,
		"connections", s.ConnCount(),
	)
	return nil
}

// Shutdown stops accepting, closes idle connections and waits for the others
// to finish. When ctx ends first the remaining connections are closed and the
// context error is returned. Shutdown is idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.shuttingDown.Store(true)
		if s.listener != nil {
			_ = s.listener.Close()
			<-s.acceptDone
			s.listener = nil
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "connections", s.ConnCount())

		s.closeIdleConns()

		drained := make(chan struct{})
		go func() {
			s.connWG.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			s.logger.Warn("shutdown timed out, closing remaining connections", "connections", s.ConnCount())
			s.cancel()
			s.closeAllConns()
			<-drained
			shutdownErr = fmt.Errorf("server shutdown: %w", ctx.Err())
		}

		s.cancel()
		close(s.done)
		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Done is closed once Shutdown has completed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// IsRunning returns true while the server has a listener.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// ConnCount returns the number of open client connections.
func (s *Server) ConnCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

// ConnStates returns how many open connections are in each state.
func (s *Server) ConnStates() map[State]int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	out := make(map[State]int)
	for c := range s.conns {
		out[c.getState()]++
	}
	return out
}

// bindLocked listens on address and starts the accept loop. s.mu must be held.
func (s *Server) bindLocked(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.addr = ln.Addr().String()

	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	s.listener = ln
	s.acceptDone = make(chan struct{})
	go s.acceptLoop(ln, s.acceptDone)
	return nil
}

func (s *Server) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)

	var backoff time.Duration
	for {
		rwc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			s.logger.Error("accept failed, listener stopped", "error", err)
			return
		}
		backoff = 0

		c := newConn(s, rwc)
		s.track(c)
		go c.serve(s.baseCtx)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) track(c *conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	s.conns[c] = struct{}{}
	s.connWG.Add(1)
}

func (s *Server) untrack(c *conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		s.connWG.Done()
	}
}

// closeIdleConns closes connections waiting for their next request.
func (s *Server) closeIdleConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for c := range s.conns {
		if c.getState().idle() {
			_ = c.rwc.Close()
		}
	}
}

func (s *Server) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for c := range s.conns {
		_ = c.rwc.Close()
	}
}

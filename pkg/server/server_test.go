package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrei-samofalov/yapas/internal/upstreamtest"
	"github.com/andrei-samofalov/yapas/pkg/cache"
	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/control"
	"github.com/andrei-samofalov/yapas/pkg/dispatcher"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/handlers"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/metrics"
	"github.com/andrei-samofalov/yapas/pkg/upstream"
)

const testIdentity = "backend.internal"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.IdleTimeout = 5 * time.Second
	cfg.Upstream.Identity = testIdentity
	return cfg
}

type noopSender struct{}

func (noopSender) Send(control.Command) bool { return true }

// startServer builds a server whose locations are wired to the given upstream.
func startServer(t *testing.T, upstreamAddr string, locations []config.LocationConfig, collector *metrics.Collector) *Server {
	t.Helper()

	cfg := testConfig()
	cfg.Upstream.Address = upstreamAddr
	cfg.Locations = locations

	if collector == nil {
		collector = metrics.NewCollector(&config.MetricsConfig{}, nil)
	}
	d, err := handlers.BuildDispatcher(cfg.Locations, handlers.Deps{
		Upstream: upstream.NewClient(upstream.Config{Address: upstreamAddr}, nil),
		Static:   config.StaticConfig{Root: t.TempDir(), Prefix: "/static"},
		Cache:    cache.New(cache.Options{}),
		Control:  noopSender{},
		Metrics:  collector,
	})
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}

	return startWithDispatcher(t, cfg, d, collector)
}

func startWithDispatcher(t *testing.T, cfg *config.Config, d *dispatcher.Dispatcher, collector *metrics.Collector) *Server {
	t.Helper()

	srv, err := NewServer(cfg, Deps{Dispatcher: d, Collector: collector})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func startMock(t *testing.T) *upstreamtest.MockServer {
	t.Helper()

	mock, err := upstreamtest.NewMockServer()
	if err != nil {
		t.Fatalf("failed to start mock upstream: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// send writes raw and reads until the server closes the connection. It is
// safe to call from any goroutine.
func send(addr, raw string) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(conn, raw); err != nil {
		return "", err
	}

	out, err := io.ReadAll(conn)
	return string(out), err
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()

	out, err := send(addr, raw)
	if err != nil {
		t.Fatalf("round trip to %s failed: %v", addr, err)
	}
	return out
}

func TestNewServer_RequiresLocations(t *testing.T) {
	_, err := NewServer(testConfig(), Deps{Dispatcher: dispatcher.New()})

	var ce *types.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}

	_, err = NewServer(testConfig(), Deps{})
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError without dispatcher, got %v", err)
	}
}

func TestServer_NotFoundMakesNoUpstreamCall(t *testing.T) {
	mock := startMock(t)
	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/api", Kind: "proxy"}}, nil)

	got := roundTrip(t, srv.Addr(), "GET /missing HTTP/1.1\r\nHost: x\r\n\r\n")

	if got != "HTTP/1.1 404 Not Found\r\n\r\n" {
		t.Errorf("expected status-line-only 404, got %q", got)
	}
	if n := mock.GetRequestCount(); n != 0 {
		t.Errorf("expected no upstream call, got %d", n)
	}
}

func TestServer_ProxyReturnsUpstreamBytes(t *testing.T) {
	mock := startMock(t)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-Upstream: mock\r\nServer: backend\r\n\r\nhello"
	mock.SetResponse("/api/items", upstreamtest.MockResponse{Raw: []byte(raw)})

	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/", Kind: "proxy"}}, nil)

	got := roundTrip(t, srv.Addr(), "GET /api/items HTTP/1.1\r\n"+
		"Host: client.example\r\n"+
		"X-Forwarded-For: 10.0.0.1\r\n"+
		"Referer: http://client.example/\r\n"+
		"Accept: */*\r\n\r\n")

	if got != raw {
		t.Errorf("expected upstream bytes\n%q\ngot\n%q", raw, got)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 upstream request, got %d", len(reqs))
	}
	for _, h := range []string{message.HeaderHost, message.HeaderForwardedFor, message.HeaderReferer} {
		if v := reqs[0].HeaderValue(h); v != testIdentity {
			t.Errorf("expected upstream %s %q, got %q", h, testIdentity, v)
		}
	}
	if v := reqs[0].HeaderValue("Accept"); v != "*/*" {
		t.Errorf("expected other headers untouched, got Accept %q", v)
	}
}

func TestServer_ErrorResponses(t *testing.T) {
	down, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	downAddr := down.Addr().String()
	down.Close()

	srv := startServer(t, downAddr, []config.LocationConfig{
		{Pattern: "/metrics", Kind: "metrics"},
		{Pattern: "/", Kind: "proxy"},
	}, nil)

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{
			name:    "malformed status line",
			request: "GARBAGE\r\n\r\n",
			want:    "HTTP/1.1 400 Bad Request\r\n\r\n",
		},
		{
			name:    "header without separator",
			request: "GET / HTTP/1.1\r\nbroken header\r\n\r\n",
			want:    "HTTP/1.1 400 Bad Request\r\n\r\n",
		},
		{
			name:    "unsupported protocol",
			request: "GET / HTTP/1.0\r\n\r\n",
			want:    "HTTP/1.1 505 HTTP Version Not Supported\r\n\r\n",
		},
		{
			name:    "response sent as request",
			request: "HTTP/1.1 200 OK\r\n\r\n",
			want:    "HTTP/1.1 400 Bad Request\r\n\r\n",
		},
		{
			name:    "method not allowed",
			request: "DELETE /metrics HTTP/1.1\r\n\r\n",
			want:    "HTTP/1.1 405 Method Not Allowed\r\n\r\n",
		},
		{
			name:    "upstream unreachable",
			request: "GET /api HTTP/1.1\r\n\r\n",
			want:    "HTTP/1.1 502 Bad Gateway\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, srv.Addr(), tt.request); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestServer_HeaderLimit(t *testing.T) {
	mock := startMock(t)

	cfg := testConfig()
	cfg.Server.MaxHeaderBytes = 64
	d := dispatcher.New()
	d.AddLocation("/", dispatcher.KindProxy, handlers.NewProxyHandler(upstream.NewClient(upstream.Config{Address: mock.Addr()}, nil), nil))
	srv := startWithDispatcher(t, cfg, d, nil)

	got := roundTrip(t, srv.Addr(), "GET / HTTP/1.1\r\nX-Big: "+strings.Repeat("a", 200)+"\r\n\r\n")
	if got != "HTTP/1.1 400 Bad Request\r\n\r\n" {
		t.Errorf("expected 400 for oversized head, got %q", got)
	}
	if mock.GetRequestCount() != 0 {
		t.Error("oversized request reached the upstream")
	}
}

func TestServer_PanicRecovery(t *testing.T) {
	d := dispatcher.New()
	d.AddLocation("/boom", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		panic("handler exploded")
	}))
	d.AddLocation("/", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		return message.NewResponse(204, nil), nil
	}))
	srv := startWithDispatcher(t, testConfig(), d, nil)

	if got := roundTrip(t, srv.Addr(), "GET /boom HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 500 Internal Server Error\r\n\r\n" {
		t.Errorf("expected 500 after panic, got %q", got)
	}
	if got := roundTrip(t, srv.Addr(), "GET /ok HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 204 No Content\r\n\r\n" {
		t.Errorf("expected server to keep serving after a panic, got %q", got)
	}
}

func TestServer_CookieTransplant(t *testing.T) {
	d := dispatcher.New()
	d.AddLocation("/", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		return message.NewResponse(200, nil), nil
	}))
	srv := startWithDispatcher(t, testConfig(), d, nil)

	got := roundTrip(t, srv.Addr(), "GET / HTTP/1.1\r\nSet-Cookie: sid=abc\r\n\r\n")
	if got != "HTTP/1.1 200 OK\r\nCookie: sid=abc\r\n\r\n" {
		t.Errorf("expected transplanted cookie, got %q", got)
	}
}

func TestServer_CookieNotCopiedOntoErrors(t *testing.T) {
	d := dispatcher.New()
	d.AddLocation("/api", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		return message.NewResponse(200, nil), nil
	}))
	srv := startWithDispatcher(t, testConfig(), d, nil)

	got := roundTrip(t, srv.Addr(), "GET /missing HTTP/1.1\r\nSet-Cookie: sid=abc\r\n\r\n")
	if got != "HTTP/1.1 404 Not Found\r\n\r\n" {
		t.Errorf("expected bare status line, got %q", got)
	}
}

func TestServer_ShutdownKeepsPartialRequest(t *testing.T) {
	d := dispatcher.New()
	d.AddLocation("/", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		resp := message.NewResponse(200, []byte("ok"))
		resp.AddHeader(message.HeaderContentLength, "2")
		return resp, nil
	}))
	srv := startWithDispatcher(t, testConfig(), d, nil)

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, "GET /par"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return srv.ConnStates()[StateParsing] == 1 })

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- srv.Shutdown(context.Background()) }()
	waitFor(t, func() bool { return !srv.IsRunning() })

	if _, err := io.WriteString(conn, "tial HTTP/1.1\r\n\r\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok" {
		t.Errorf("expected the started request to be answered, got %q", got)
	}
	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestServer_KeepAlive(t *testing.T) {
	d := dispatcher.New()
	d.AddLocation("/", dispatcher.KindProxy, dispatcher.HandlerFunc(func(_ context.Context, req *message.Message) (*message.Message, error) {
		body := []byte(req.StatusLine().Path)
		resp := message.NewResponse(200, body)
		resp.AddHeader(message.HeaderContentLength, strconv.Itoa(len(body)))
		resp.AddHeader(message.HeaderConnection, message.KeepAlive)
		return resp, nil
	}))
	srv := startWithDispatcher(t, testConfig(), d, nil)

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	br := bufio.NewReader(conn)

	for _, path := range []string{"/first", "/second", "/third"} {
		if _, err := io.WriteString(conn, "GET "+path+" HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		resp, err := message.ReadMessage(br, message.ReadOptions{})
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(resp.Body()) != path {
			t.Errorf("expected body %q, got %q", path, resp.Body())
		}
	}

	if n := srv.ConnCount(); n != 1 {
		t.Errorf("expected one open connection, got %d", n)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.IdleTimeout = 50 * time.Millisecond
	d := dispatcher.New()
	d.AddLocation("/", dispatcher.KindProxy, dispatcher.HandlerFunc(func(context.Context, *message.Message) (*message.Message, error) {
		return message.NewResponse(200, nil), nil
	}))
	srv := startWithDispatcher(t, cfg, d, nil)

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no bytes from an idle close, got %q", out)
	}
}

func TestServer_RestartKeepsInFlightConnection(t *testing.T) {
	mock := startMock(t)
	release := make(chan struct{})
	mock.SetResponse("/slow", upstreamtest.MockResponse{
		Raw:     []byte("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nslow"),
		Release: release,
	})

	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/", Kind: "proxy"}}, nil)
	addr := srv.Addr()

	var (
		wg       sync.WaitGroup
		inFlight string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		inFlight, _ = send(addr, "GET /slow HTTP/1.1\r\n\r\n")
	}()

	waitFor(t, func() bool { return mock.GetRequestCount() == 1 })

	if err := srv.Restart(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if srv.Addr() != addr {
		t.Errorf("expected same address after restart, got %s want %s", srv.Addr(), addr)
	}

	if got := roundTrip(t, addr, "GET /fast HTTP/1.1\r\n\r\n"); !strings.HasSuffix(got, "upstream") {
		t.Errorf("expected new connection served after restart, got %q", got)
	}

	close(release)
	wg.Wait()

	if !strings.HasSuffix(inFlight, "slow") {
		t.Errorf("expected in-flight connection to complete, got %q", inFlight)
	}
}

func TestServer_RestartThroughController(t *testing.T) {
	mock := startMock(t)
	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/", Kind: "proxy"}}, nil)

	ctrl := control.NewController(srv, control.Options{ShutdownTimeout: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctrl.Run(ctx) }()

	ctrl.Send(control.Restart)
	ctrl.Send(control.Shutdown)

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("control loop failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("control loop did not stop")
	}
	cancel()

	select {
	case <-srv.Done():
	default:
		t.Error("expected server to be shut down")
	}
}

func TestServer_ShutdownDrainsInFlight(t *testing.T) {
	mock := startMock(t)
	release := make(chan struct{})
	mock.SetResponse("/slow", upstreamtest.MockResponse{
		Raw:     []byte("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nslow"),
		Release: release,
	})
	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/", Kind: "proxy"}}, nil)
	addr := srv.Addr()

	// An idle connection must not hold up the drain.
	idle, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer idle.Close()

	var inFlight string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		inFlight, _ = send(addr, "GET /slow HTTP/1.1\r\n\r\n")
	}()
	waitFor(t, func() bool { return mock.GetRequestCount() == 1 })

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- srv.Shutdown(context.Background()) }()

	waitFor(t, func() bool { return !srv.IsRunning() })
	if _, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		t.Error("expected new connections to be refused during shutdown")
	}

	close(release)
	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	wg.Wait()

	if !strings.HasSuffix(inFlight, "slow") {
		t.Errorf("expected in-flight exchange to finish, got %q", inFlight)
	}
}

func TestServer_ShutdownTimeout(t *testing.T) {
	mock := startMock(t)
	release := make(chan struct{})
	defer close(release)
	mock.SetResponse("/hang", upstreamtest.MockResponse{Raw: []byte("HTTP/1.1 200 OK\r\n\r\n"), Release: release})

	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/", Kind: "proxy"}}, nil)

	go func() {
		conn, err := net.Dial("tcp", srv.Addr())
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "GET /hang HTTP/1.1\r\n\r\n")
		_, _ = io.ReadAll(conn)
	}()
	waitFor(t, func() bool { return mock.GetRequestCount() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := srv.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if n := srv.ConnCount(); n != 0 {
		t.Errorf("expected all connections closed, got %d", n)
	}
}

func TestServer_CollectorRecordsExchanges(t *testing.T) {
	mock := startMock(t)
	collector := metrics.NewCollector(&config.MetricsConfig{Namespace: "test"}, nil)
	srv := startServer(t, mock.Addr(), []config.LocationConfig{{Pattern: "/api", Kind: "proxy"}}, collector)

	roundTrip(t, srv.Addr(), "GET /api HTTP/1.1\r\n\r\n")
	roundTrip(t, srv.Addr(), "GET /nope HTTP/1.1\r\n\r\n")
	roundTrip(t, srv.Addr(), "BROKEN\r\n\r\n")

	if s := collector.Snapshot(); s.Count != 3 {
		t.Errorf("expected 3 recorded exchanges, got %d", s.Count)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateListening, "listening"},
		{StateParsing, "parsing"},
		{StateKeepAlive, "keep_alive"},
		{StateClosed, "closed"},
		{State(42), "state(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}

	if !StateKeepAlive.idle() || StateHandling.idle() {
		t.Error("unexpected idle classification")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

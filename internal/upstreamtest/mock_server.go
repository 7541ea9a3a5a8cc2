// Package upstreamtest provides a raw TCP upstream for tests of the proxy path.
package upstreamtest

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/message"
)

// MockResponse defines the bytes written back for a path.
type MockResponse struct {
	// Raw is written verbatim, then the connection is closed.
	Raw []byte

	// Delay is applied before the response is written.
	Delay time.Duration

	// Release, when set, blocks the response until it is closed.
	Release <-chan struct{}
}

// MockServer is a single-exchange-per-connection upstream. It reads one
// request with message.ReadMessage, records it, writes the configured
// response and closes the connection.
type MockServer struct {
	listener  net.Listener
	responses map[string]MockResponse
	fallback  MockResponse
	requests  []*message.Message
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// DefaultResponse is served for paths without a configured response.
var DefaultResponse = []byte("HTTP/1.1 200 OK\r\nContent-Length: 8\r\nX-Upstream: mock\r\n\r\nupstream")

// NewMockServer starts a mock upstream on a loopback port.
func NewMockServer() (*MockServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	ms := &MockServer{
		listener:  ln,
		responses: make(map[string]MockResponse),
		fallback:  MockResponse{Raw: DefaultResponse},
	}

	ms.wg.Add(1)
	go ms.acceptLoop()
	return ms, nil
}

// Addr returns the host:port the server listens on.
func (ms *MockServer) Addr() string {
	return ms.listener.Addr().String()
}

// Close stops accepting and waits for in-flight connections.
func (ms *MockServer) Close() {
	_ = ms.listener.Close()
	ms.wg.Wait()
}

// SetResponse sets the response for a request path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// Requests returns the requests received so far.
func (ms *MockServer) Requests() []*message.Message {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]*message.Message, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return len(ms.requests)
}

func (ms *MockServer) acceptLoop() {
	defer ms.wg.Done()

	for {
		conn, err := ms.listener.Accept()
		if err != nil {
			return
		}
		ms.wg.Add(1)
		go ms.serve(conn)
	}
}

func (ms *MockServer) serve(conn net.Conn) {
	defer ms.wg.Done()
	defer conn.Close()

	req, err := message.ReadMessage(bufio.NewReader(conn), message.ReadOptions{})
	if err != nil {
		return
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, req)
	response, ok := ms.responses[req.StatusLine().Path]
	if !ok {
		response = ms.fallback
	}
	ms.mu.Unlock()

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}
	if response.Release != nil {
		<-response.Release
	}

	_, _ = conn.Write(response.Raw)
}

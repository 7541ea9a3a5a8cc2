package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrei-samofalov/yapas/pkg/cache"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

func newStaticFixture(t *testing.T) (*StaticHandler, *cache.ResponseCache, string) {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"index.html":   "<h1>hi</h1>",
		"css/site.css": "body{}",
		"blob":         "raw",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	c := cache.New(cache.Options{})
	h, err := NewStaticHandler(root, "/static", c)
	if err != nil {
		t.Fatalf("NewStaticHandler failed: %v", err)
	}
	return h, c, root
}

func TestStaticHandler_Serve(t *testing.T) {
	h, _, _ := newStaticFixture(t)

	tests := []struct {
		name        string
		request     string
		body        string
		contentType string
	}{
		{
			name:        "html file",
			request:     "GET /static/index.html HTTP/1.1\r\n\r\n",
			body:        "<h1>hi</h1>",
			contentType: "text/html; charset=utf-8",
		},
		{
			name:        "nested css with query",
			request:     "GET /static/css/site.css?v=3 HTTP/1.1\r\n\r\n",
			body:        "body{}",
			contentType: "text/css; charset=utf-8",
		},
		{
			name:        "unknown extension",
			request:     "GET /static/blob HTTP/1.1\r\n\r\n",
			body:        "raw",
			contentType: DefaultContentType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), mustParse(t, tt.request))
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if code := resp.StatusLine().StatusCode(); code != 200 {
				t.Errorf("expected 200, got %d", code)
			}
			if string(resp.Body()) != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, resp.Body())
			}
			if got := resp.HeaderValue(message.HeaderContentType); got != tt.contentType {
				t.Errorf("expected content type %q, got %q", tt.contentType, got)
			}
		})
	}
}

func TestStaticHandler_NotFound(t *testing.T) {
	h, _, _ := newStaticFixture(t)

	paths := []string{
		"/static/missing.txt",
		"/static/css",
		"/static/",
		"/static/../secret",
		"/static/css/../../etc/passwd",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			_, err := h.Handle(context.Background(), mustParse(t, "GET "+p+" HTTP/1.1\r\n\r\n"))

			var nf *types.NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected NotFoundError, got %v", err)
			}
		})
	}
}

func TestStaticHandler_MethodNotAllowed(t *testing.T) {
	h, _, _ := newStaticFixture(t)

	_, err := h.Handle(context.Background(), mustParse(t, "POST /static/index.html HTTP/1.1\r\n\r\n"))

	var mna *types.MethodNotAllowedError
	if !errors.As(err, &mna) {
		t.Fatalf("expected MethodNotAllowedError, got %v", err)
	}
	if len(mna.Allowed) != 2 {
		t.Errorf("expected GET and HEAD allowed, got %v", mna.Allowed)
	}
}

func TestStaticHandler_CachesFile(t *testing.T) {
	h, c, root := newStaticFixture(t)
	req := "GET /static/index.html HTTP/1.1\r\n\r\n"

	if _, err := h.Handle(context.Background(), mustParse(t, req)); err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", c.Len())
	}

	// Served from cache even after the file changed on disk.
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("changed"), 0644); err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}
	resp, err := h.Handle(context.Background(), mustParse(t, req))
	if err != nil {
		t.Fatalf("second Handle failed: %v", err)
	}
	if string(resp.Body()) != "<h1>hi</h1>" {
		t.Errorf("expected cached body, got %q", resp.Body())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
	}

	// A mutated response must not leak into the cache.
	resp.AddHeader(message.HeaderCookie, "a=b")
	again, _ := h.Handle(context.Background(), mustParse(t, req))
	if again.HasHeader(message.HeaderCookie) {
		t.Error("cached response was mutated through a returned message")
	}
}

func TestStaticHandler_Head(t *testing.T) {
	h, _, _ := newStaticFixture(t)

	resp, err := h.Handle(context.Background(), mustParse(t, "HEAD /static/index.html HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(resp.Body()) != 0 {
		t.Errorf("expected empty body for HEAD, got %q", resp.Body())
	}
	if got := resp.HeaderValue(message.HeaderContentLength); got != "11" {
		t.Errorf("expected Content-Length 11, got %q", got)
	}

	get, err := h.Handle(context.Background(), mustParse(t, "GET /static/index.html HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if string(get.Body()) != "<h1>hi</h1>" {
		t.Errorf("HEAD emptied the cached body, got %q", get.Body())
	}
}

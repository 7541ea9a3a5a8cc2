package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/cache"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/tracing"
)

// DefaultContentType is used when the file extension has no registered type.
const DefaultContentType = "application/octet-stream"

var staticMethods = []string{http.MethodGet, http.MethodHead}

// StaticHandler serves files below a root directory. Responses are kept in a
// ResponseCache keyed by the absolute file path.
type StaticHandler struct {
	root   string
	prefix string
	cache  *cache.ResponseCache
}

// NewStaticHandler creates a static handler for root. prefix is stripped from
// the request path before it is joined onto root.
func NewStaticHandler(root, prefix string, c *cache.ResponseCache) (*StaticHandler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static root %q: %w", root, err)
	}
	return &StaticHandler{root: abs, prefix: prefix, cache: c}, nil
}

// Root returns the absolute static root.
func (h *StaticHandler) Root() string {
	return h.root
}

// Handle serves the file named by the request path.
func (h *StaticHandler) Handle(ctx context.Context, req *message.Message) (*message.Message, error) {
	line := req.StatusLine()
	if line.Method != http.MethodGet && line.Method != http.MethodHead {
		return nil, &types.MethodNotAllowedError{Method: line.Method, Allowed: staticMethods}
	}

	file, ok := h.resolve(line.Path)
	if !ok {
		return nil, &types.NotFoundError{Path: line.Path}
	}

	span := tracing.SpanFromContext(ctx)

	resp, hit := h.cache.Get(file)
	if hit {
		resp = resp.Clone()
	} else {
		var err error
		if resp, err = h.load(file, line.Path); err != nil {
			return nil, err
		}
		h.cache.Set(file, resp)
		resp = resp.Clone()

		logging.FromContext(ctx).Debug("static file loaded",
			"file", file,
			"size", len(resp.Body()),
		)
	}
	tracing.SetCacheAttributes(span, hit, h.cache.Name())

	if line.Method == http.MethodHead {
		resp.SetBody(nil)
	}
	return resp, nil
}

// resolve maps a request path onto a file below root. A path that climbs out
// of root is rejected.
func (h *StaticHandler) resolve(reqPath string) (string, bool) {
	if i := strings.IndexByte(reqPath, '?'); i >= 0 {
		reqPath = reqPath[:i]
	}
	rel := strings.TrimPrefix(reqPath, h.prefix)

	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}

	cleaned := path.Clean("/" + rel)
	if cleaned == "/" {
		return "", false
	}

	file := filepath.Join(h.root, filepath.FromSlash(cleaned))
	if file != h.root && !strings.HasPrefix(file, h.root+string(filepath.Separator)) {
		return "", false
	}
	return file, true
}

func (h *StaticHandler) load(file, reqPath string) (*message.Message, error) {
	info, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.NotFoundError{Path: reqPath}
		}
		return nil, fmt.Errorf("failed to stat %q: %w", file, err)
	}
	if info.IsDir() {
		return nil, &types.NotFoundError{Path: reqPath}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", file, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = DefaultContentType
	}

	resp := message.NewResponse(http.StatusOK, data)
	resp.AddHeader(message.HeaderContentType, contentType)
	resp.AddHeader(message.HeaderContentLength, strconv.Itoa(len(data)))
	return resp, nil
}

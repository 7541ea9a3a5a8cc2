package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// ReadOptions controls how ReadMessage frames a message.
type ReadOptions struct {
	// MaxHeaderBytes limits the size of the status line plus headers.
	// Zero or negative means no limit.
	MaxHeaderBytes int

	// NoBody skips the body regardless of framing headers, e.g. for the
	// response to a HEAD request.
	NoBody bool

	// ExpectRequest rejects a response status line with a
	// *types.ProtocolError, and a request line that is not HTTP/1.1 with a
	// *types.UnsupportedProtocolError, before anything past it is read.
	ExpectRequest bool
}

// ReadMessage reads one message from r: the status line, header lines until a
// blank line or end of stream, then the body.
//
// The body is framed by Content-Length when present. Without it a request has
// no body and a response body runs to end of stream. Responses with status
// 1xx, 204 or 304 never have a body.
//
// io.EOF is returned only when the stream ends before any byte of a message,
// which is how a keep-alive peer closes cleanly.
func ReadMessage(r *bufio.Reader, opts ReadOptions) (*Message, error) {
	budget := opts.MaxHeaderBytes
	if budget <= 0 {
		budget = math.MaxInt
	}

	first, err := readLine(r, &budget)
	if err != nil && !(errors.Is(err, io.EOF) && len(first) > 0) {
		return nil, err
	}
	atEOF := errors.Is(err, io.EOF)

	line, err := ParseStatusLine(first)
	if err != nil {
		return nil, err
	}
	if opts.ExpectRequest {
		if line.Kind != KindRequest {
			return nil, &types.ProtocolError{Message: "expected a request, got a response status line"}
		}
		if err := line.CheckProtocol(); err != nil {
			return nil, err
		}
	}
	m := &Message{line: line}

	for !atEOF {
		l, err := readLine(r, &budget)
		if errors.Is(err, io.EOF) {
			atEOF = true
		} else if err != nil {
			return nil, err
		}

		l = bytes.TrimRight(l, "\r\n")
		if len(l) == 0 {
			break
		}
		if err := m.parseHeaderLine(l); err != nil {
			return nil, err
		}
	}

	if atEOF || opts.NoBody || !bodyAllowed(line) {
		return m, nil
	}

	n, err := m.contentLength()
	if err != nil {
		return nil, err
	}

	switch {
	case n > 0:
		m.body = make([]byte, n)
		if _, err := io.ReadFull(r, m.body); err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	case n < 0 && line.Kind == KindResponse:
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(body) > 0 {
			m.body = body
		}
	}

	return m, nil
}

func bodyAllowed(line StatusLine) bool {
	if line.Kind != KindResponse {
		return true
	}
	code := line.StatusCode()
	return code >= 200 && code != http.StatusNoContent && code != http.StatusNotModified
}

// readLine reads up to and including '\n', charging the bytes read against budget.
func readLine(r *bufio.Reader, budget *int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		*budget -= len(chunk)
		if *budget < 0 {
			return nil, &types.FramingError{Reason: "message head too large"}
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

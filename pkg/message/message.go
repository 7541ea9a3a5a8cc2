package message

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// Common header names and values used by the proxy.
const (
	HeaderConnection    = "Connection"
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderHost          = "Host"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderReferer       = "Referer"
	HeaderSetCookie     = "Set-Cookie"
	HeaderCookie        = "Cookie"

	KeepAlive = "keep-alive"
)

var crlf = []byte("\r\n")

// Message is one HTTP/1.1 request or response: a status line, an ordered
// header mapping and an opaque body.
//
// The wire form is cached after the first call to Bytes and dropped on every
// mutation. A Message is not safe for concurrent use; share it via Clone.
type Message struct {
	line   StatusLine
	header Header
	body   []byte

	raw []byte
}

// New builds a message from its parts. Header fields are inserted in order.
func New(line StatusLine, fields []Field, body []byte) *Message {
	m := &Message{line: line, body: body}
	for _, f := range fields {
		m.header.Set(f.Name, f.Value)
	}
	return m
}

// NewResponse builds "HTTP/1.1 <code> <reason>" with the standard reason
// phrase and the given body. No headers are set.
func NewResponse(code int, body []byte) *Message {
	reason := http.StatusText(code)
	if reason == "" {
		reason = "Unknown"
	}
	return &Message{line: ResponseLine(code, reason), body: body}
}

// Parse builds a message from a complete buffer: the status line, then
// "name: value" lines up to the first blank line, then the body.
func Parse(b []byte) (*Message, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, &types.FramingError{Reason: "empty message"}
	}

	head, body, found := bytes.Cut(b, []byte("\r\n\r\n"))
	if !found {
		head = bytes.TrimSuffix(b, crlf)
		body = nil
	}

	lines := bytes.Split(head, crlf)
	line, err := ParseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}

	m := &Message{line: line}
	for _, l := range lines[1:] {
		if err := m.parseHeaderLine(l); err != nil {
			return nil, err
		}
	}
	if len(body) > 0 {
		m.body = append([]byte(nil), body...)
	}
	return m, nil
}

func (m *Message) parseHeaderLine(l []byte) error {
	name, value, ok := bytes.Cut(l, []byte(":"))
	if !ok {
		return &types.FramingError{Line: string(l), Reason: "header line lacks ':' separator"}
	}
	m.header.Set(string(name), string(value))
	return nil
}

// StatusLine returns the classified first line.
func (m *Message) StatusLine() StatusLine {
	return m.line
}

// Kind reports whether the message is a request or a response.
func (m *Message) Kind() Kind {
	return m.line.Kind
}

// Body returns the message body. The caller must not modify it.
func (m *Message) Body() []byte {
	return m.body
}

// SetBody replaces the body.
func (m *Message) SetBody(body []byte) {
	m.body = body
	m.raw = nil
}

// AddHeader stores a header, overwriting an existing value of the same name.
func (m *Message) AddHeader(name, value string) {
	m.header.Set(name, value)
	m.raw = nil
}

// UpdateHeader stores a header, overwriting an existing value of the same name.
func (m *Message) UpdateHeader(name, value string) {
	m.header.Set(name, value)
	m.raw = nil
}

// RemoveHeader removes a header. Removing an absent header is a no-op.
func (m *Message) RemoveHeader(name string) {
	if !m.header.Has(name) {
		return
	}
	m.header.Del(name)
	m.raw = nil
}

// HasHeader reports whether the header is present.
func (m *Message) HasHeader(name string) bool {
	return m.header.Has(name)
}

// HeaderValue returns the header value, or "" when absent.
func (m *Message) HeaderValue(name string) string {
	v, _ := m.header.Get(name)
	return v
}

// Headers returns the header fields in wire order.
func (m *Message) Headers() []Field {
	return m.header.Fields()
}

// IsKeepAlive reports whether the message carries "Connection: keep-alive".
func (m *Message) IsKeepAlive() bool {
	v, ok := m.header.Get(HeaderConnection)
	return ok && v == KeepAlive
}

// Bytes returns the wire form: status line, CRLF, one "name: value" CRLF per
// header, CRLF, body. The result is cached until the next mutation; the
// caller must not modify it.
func (m *Message) Bytes() []byte {
	if m.raw != nil {
		return m.raw
	}

	var buf bytes.Buffer
	buf.Grow(len(m.line.raw) + 2 + 32*m.header.Len() + 2 + len(m.body))
	buf.WriteString(m.line.raw)
	buf.Write(crlf)
	for _, f := range m.header.fields {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.Write(crlf)
	}
	buf.Write(crlf)
	buf.Write(m.body)

	m.raw = buf.Bytes()
	return m.raw
}

// WriteTo writes the wire form to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Bytes())
	return int64(n), err
}

// Clone returns a deep copy that can be mutated independently.
func (m *Message) Clone() *Message {
	c := &Message{
		line:   m.line,
		header: m.header.clone(),
	}
	if m.body != nil {
		c.body = append([]byte(nil), m.body...)
	}
	return c
}

// contentLength returns the declared body length, or -1 when absent.
func (m *Message) contentLength() (int64, error) {
	v, ok := m.header.lookupFold(HeaderContentLength)
	if !ok {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &types.FramingError{Line: HeaderContentLength + ": " + v, Reason: "invalid content length"}
	}
	return n, nil
}

// String describes the message for logs: the status line and the body size.
func (m *Message) String() string {
	return fmt.Sprintf("%s (%d headers, %d bytes)", m.line.raw, m.header.Len(), len(m.body))
}

package message

import (
	"bytes"
	"strconv"

	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// Protocol is the only protocol token the proxy accepts.
const Protocol = "HTTP/1.1"

// responsePrefix marks a status line as a response line.
const responsePrefix = "HTTP/1."

// Kind classifies a message by its first line.
type Kind int

const (
	// KindRequest is a request line: METHOD PATH PROTOCOL.
	KindRequest Kind = iota

	// KindResponse is a response status line: PROTOCOL STATUS REASON.
	KindResponse
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// StatusLine is the classified first line of a message. Method and Path are
// set for requests; Status and Reason are set for responses.
type StatusLine struct {
	Kind     Kind
	Protocol string
	Method   string
	Path     string
	Status   string
	Reason   string

	// raw is the line as received, without surrounding whitespace.
	raw string
}

// ParseStatusLine classifies line as a request or response line.
//
// The line is split into three whitespace-separated fields. If the first one
// starts with "HTTP/1." the line is a response (PROTOCOL STATUS REASON) and the
// reason phrase may itself contain spaces. Otherwise it is a request
// (METHOD PATH PROTOCOL) and must have exactly three tokens. The protocol
// version is not checked here; see CheckProtocol.
func ParseStatusLine(line []byte) (StatusLine, error) {
	trimmed := bytes.TrimSpace(line)

	first, rest, ok := cutSpace(trimmed)
	if !ok {
		return StatusLine{}, &types.FramingError{Line: string(trimmed), Reason: "status line must have three tokens"}
	}
	second, third, ok := cutSpace(rest)
	if !ok || len(third) == 0 {
		return StatusLine{}, &types.FramingError{Line: string(trimmed), Reason: "status line must have three tokens"}
	}

	sl := StatusLine{raw: string(trimmed)}

	if bytes.HasPrefix(first, []byte(responsePrefix)) {
		sl.Kind = KindResponse
		sl.Protocol = string(first)
		sl.Status = string(second)
		sl.Reason = string(third)

		if _, err := strconv.Atoi(sl.Status); err != nil || len(sl.Status) != 3 {
			return StatusLine{}, &types.FramingError{Line: sl.raw, Reason: "malformed status code"}
		}
	} else {
		if bytes.ContainsAny(third, " \t") {
			return StatusLine{}, &types.FramingError{Line: sl.raw, Reason: "request line must have exactly three tokens"}
		}
		sl.Kind = KindRequest
		sl.Method = string(first)
		sl.Path = string(second)
		sl.Protocol = string(third)
	}

	return sl, nil
}

// CheckProtocol returns a *types.UnsupportedProtocolError unless the line
// carries exactly HTTP/1.1.
func (s StatusLine) CheckProtocol() error {
	if s.Protocol != Protocol {
		return &types.UnsupportedProtocolError{Protocol: s.Protocol}
	}
	return nil
}

// ResponseLine builds the status line "HTTP/1.1 <code> <reason>".
func ResponseLine(code int, reason string) StatusLine {
	status := strconv.Itoa(code)
	return StatusLine{
		Kind:     KindResponse,
		Protocol: Protocol,
		Status:   status,
		Reason:   reason,
		raw:      Protocol + " " + status + " " + reason,
	}
}

// StatusCode returns the numeric status of a response line, or 0 for requests.
func (s StatusLine) StatusCode() int {
	code, err := strconv.Atoi(s.Status)
	if err != nil {
		return 0
	}
	return code
}

// String returns the line exactly as it will be written on the wire.
func (s StatusLine) String() string {
	return s.raw
}

// cutSpace splits b around the first run of spaces or tabs.
func cutSpace(b []byte) (before, after []byte, found bool) {
	i := bytes.IndexAny(b, " \t")
	if i < 0 {
		return b, nil, false
	}
	return b[:i], bytes.TrimLeft(b[i:], " \t"), true
}

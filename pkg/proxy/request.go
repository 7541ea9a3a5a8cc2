package proxy

import (
	"strings"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// RewriteUpstreamIdentity overwrites Host, X-Forwarded-For and Referer with
// identity. Every backend sees the same virtual host whatever the client sent.
func RewriteUpstreamIdentity(req *message.Message, identity string) {
	req.UpdateHeader(message.HeaderHost, identity)
	req.UpdateHeader(message.HeaderForwardedFor, identity)
	req.UpdateHeader(message.HeaderReferer, identity)
}

// ValidateRequest checks that an inbound message can be dispatched: it must be
// an HTTP/1.1 request and its path must be origin-form ("/..." ).
func ValidateRequest(m *message.Message) error {
	if m.Kind() != message.KindRequest {
		return &types.ProtocolError{Message: "expected a request, got a response status line"}
	}
	if err := m.StatusLine().CheckProtocol(); err != nil {
		return err
	}
	if !strings.HasPrefix(m.StatusLine().Path, "/") {
		return &types.ProtocolError{Message: "request target must start with '/'"}
	}
	return nil
}

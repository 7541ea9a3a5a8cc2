package server

import (
	"github.com/google/uuid"

	"github.com/andrei-samofalov/yapas/pkg/message"
)

// RequestIDHeader carries a client-supplied request ID.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds a client-supplied ID before it reaches the logs.
const maxRequestIDLength = 128

// requestIDFor returns the request ID for req: the client's X-Request-ID when
// present and reasonably sized, otherwise a new UUID. The ID is only used for
// log and span correlation; it is never written to the wire.
func requestIDFor(req *message.Message) string {
	if id := req.HeaderValue(RequestIDHeader); id != "" && len(id) <= maxRequestIDLength {
		return id
	}
	return uuid.NewString()
}

package proxy

import (
	"errors"
	"net/http"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
)

// StatusFor maps an error to the status code written back to the client.
//
//	FramingError, ProtocolError  -> 400
//	NotFoundError                -> 404
//	MethodNotAllowedError        -> 405
//	UpstreamError                -> 502
//	UnsupportedProtocolError     -> 505
//	anything else                -> 500
func StatusFor(err error) int {
	var (
		framingErr  *types.FramingError
		protocolErr *types.ProtocolError
		notFoundErr *types.NotFoundError
		methodErr   *types.MethodNotAllowedError
		upstreamErr *types.UpstreamError
		versionErr  *types.UnsupportedProtocolError
	)

	// UpstreamError may wrap a framing error from the upstream reply; it wins.
	switch {
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.As(err, &versionErr):
		return http.StatusHTTPVersionNotSupported
	case errors.As(err, &framingErr), errors.As(err, &protocolErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &methodErr):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// HandleError converts err into a status-line-only response:
// "HTTP/1.1 <code> <reason>\r\n\r\n" with no headers and no body.
func HandleError(err error) *message.Message {
	return message.NewResponse(StatusFor(err), nil)
}

// IsClassified reports whether err is one of the per-connection error kinds.
// Unclassified errors are logged with full detail by the caller.
func IsClassified(err error) bool {
	return StatusFor(err) != http.StatusInternalServerError
}

package proxy

import "github.com/andrei-samofalov/yapas/pkg/message"

// TransplantCookie copies a Set-Cookie header found on the inbound request onto
// the outbound response as a Cookie header. It does nothing when the request
// carries no Set-Cookie.
func TransplantCookie(req, resp *message.Message) {
	if !req.HasHeader(message.HeaderSetCookie) {
		return
	}
	resp.AddHeader(message.HeaderCookie, req.HeaderValue(message.HeaderSetCookie))
}

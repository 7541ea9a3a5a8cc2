// Package message parses and serializes raw HTTP/1.1 messages without
// net/http's request and response machinery.
//
// A Message is the unit every other part of the proxy exchanges: the server
// reads one from the client, the dispatcher routes on its path, handlers
// return one, and the upstream client forwards and reads them.
//
// # Wire form
//
//	GET /static/app.js HTTP/1.1\r\n
//	Host: localhost:8000\r\n
//	\r\n
//	<body>
//
// Serialization reproduces this form byte for byte for an unmodified message
// whose lines use CRLF and "name: value" spacing.
//
// # Limitations
//
// Chunked transfer-encoding, pipelining and HTTP/2 are not supported. Only the
// HTTP/1.1 protocol token is accepted.
package message

package mongrel2

import "errors"

// Sentinel errors for the per-frame error kinds this package distinguishes.
// Use `errors.Is` to classify an error returned from `DecodeEnvelope`,
// `Connection.Receive`, or `Response.Bytes`.
var (
	// ErrBadRequest is returned when a frame lacks its sender_id, conn_id or
	// path, its conn_id is not decimal, its headers are neither a dictionary
	// nor a JSON object, or its body is not a tnetstring string.
	ErrBadRequest = errors.New("mongrel2: bad request")

	// ErrUnhandledMethod is returned when the METHOD header is not a bare
	// word, or has no registered request constructor and no default.
	ErrUnhandledMethod = errors.New("mongrel2: unhandled method")

	// ErrResponseError is returned when a response body exposes neither a
	// length nor a seek/tell pair, so Content-Length cannot be resolved.
	ErrResponseError = errors.New("mongrel2: response body has no length protocol")

	// ErrConnectionClosed is returned by Receive/Reply after Close.
	ErrConnectionClosed = errors.New("mongrel2: connection closed")
)

package mongrel2

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates a decoded Request's variant.
type Kind uint8

// Request kinds.
const (
	KindUnknown Kind = iota
	KindHTTP
	KindJSON
	KindXML
	KindWebSocket
)

// String implements the `fmt.Stringer`.
func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "HTTP"
	case KindJSON:
		return "JSON"
	case KindXML:
		return "XML"
	case KindWebSocket:
		return "WEBSOCKET"
	default:
		return "UNKNOWN"
	}
}

// Request is the tagged union of request variants: exactly one matches each
// decoded envelope.
type Request interface {
	// Envelope returns the decoded envelope this request was built from.
	Envelope() *Envelope

	// Kind returns the variant discriminant.
	Kind() Kind

	// IsDisconnect reports whether this request is the JSON disconnect
	// notice. Only a JSON request can ever report true.
	IsDisconnect() bool
}

// baseRequest is embedded by every concrete Request to share the Envelope
// and IsDisconnect bookkeeping.
type baseRequest struct {
	env        *Envelope
	disconnect bool
}

// Envelope implements the `Request`.
func (b *baseRequest) Envelope() *Envelope { return b.env }

// IsDisconnect implements the `Request`.
func (b *baseRequest) IsDisconnect() bool { return b.disconnect }

// HTTPRequest is an ordinary HTTP request: METHOD is a standard HTTP verb.
type HTTPRequest struct {
	baseRequest
}

// Kind implements the `Request`.
func (r *HTTPRequest) Kind() Kind { return KindHTTP }

// JSONRequest carries a JSON message body; METHOD == "JSON".
type JSONRequest struct {
	baseRequest

	// Value is the decoded JSON document, or nil if the body was empty or
	// failed to parse.
	Value interface{}
}

// Kind implements the `Request`.
func (r *JSONRequest) Kind() Kind { return KindJSON }

// XMLRequest carries an XML fragment body; METHOD == "XML".
type XMLRequest struct {
	baseRequest
}

// Kind implements the `Request`.
func (r *XMLRequest) Kind() Kind { return KindXML }

// WebSocketRequest carries a raw WebSocket frame; METHOD == "WEBSOCKET". The
// FLAGS header encodes the first frame byte (FIN|RSV1..3|opcode) as a
// 2-character hex string.
type WebSocketRequest struct {
	baseRequest

	Frame *WebSocketFrame
}

// Kind implements the `Request`.
func (r *WebSocketRequest) Kind() Kind { return KindWebSocket }

// unknownRequest is built when a METHOD token is well-formed but has no
// registered constructor and the registry has no default.
type unknownRequest struct {
	baseRequest
}

// Kind implements the `Request`.
func (r *unknownRequest) Kind() Kind { return KindUnknown }

// disconnectBody is the exact shape a JSON request's body must match to be
// recognised as a disconnect notice.
type disconnectBody struct {
	Type string `json:"type"`
}

// RequestConstructor builds a Request from a decoded Envelope. Constructors
// registered with a Registry must not mutate the Envelope.
type RequestConstructor func(env *Envelope) (Request, error)

// newHTTPRequest is the built-in constructor for KindHTTP.
func newHTTPRequest(env *Envelope) (Request, error) {
	return &HTTPRequest{baseRequest: baseRequest{env: env}}, nil
}

// newJSONRequest is the built-in constructor for KindJSON. It also
// recognises the disconnect notice shape: a single-key JSON object whose
// "type" field is "disconnect".
func newJSONRequest(env *Envelope) (Request, error) {
	req := &JSONRequest{baseRequest: baseRequest{env: env}}

	if len(env.Body) == 0 {
		return req, nil
	}

	var v interface{}
	if err := json.Unmarshal(env.Body, &v); err != nil {
		return req, nil
	}

	req.Value = v

	var d disconnectBody
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		if json.Unmarshal(env.Body, &d) == nil && d.Type == "disconnect" {
			req.disconnect = true
		}
	}

	return req, nil
}

// newXMLRequest is the built-in constructor for KindXML.
func newXMLRequest(env *Envelope) (Request, error) {
	return &XMLRequest{baseRequest: baseRequest{env: env}}, nil
}

// newWebSocketRequest is the built-in constructor for KindWebSocket.
func newWebSocketRequest(env *Envelope) (Request, error) {
	frame, err := ParseWebSocketFrame(env.Body)
	if err != nil {
		return nil, fmt.Errorf("mongrel2: invalid WEBSOCKET frame: %w", err)
	}

	return &WebSocketRequest{
		baseRequest: baseRequest{env: env},
		Frame:       frame,
	}, nil
}

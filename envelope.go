package mongrel2

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mongrel2/handler/tnetstring"
)

// methodToken validates the METHOD header: it must match ^\w+$.
var methodToken = regexp.MustCompile(`^\w+$`)

// Envelope is the decoded form of one inbound Mongrel2 frame.
//
// It is immutable after construction; `Raw` retains the original undecoded
// frame for diagnostics.
type Envelope struct {
	SenderID string
	ConnID   int
	Path     string
	Headers  *Headers
	Body     []byte
	Raw      []byte
}

// Header returns the first value of the named header, or "" if unset.
func (e *Envelope) Header(name string) string {
	return e.Headers.First(name)
}

// Method returns the METHOD header of the e.
func (e *Envelope) Method() string {
	return e.Header("METHOD")
}

// Dump returns a compact msgpack-encoded snapshot of the envelope, suitable
// for attaching to a structured log line when a frame fails to dispatch.
func (e *Envelope) Dump() ([]byte, error) {
	return msgpack.Marshal(map[string]interface{}{
		"sender_id": e.SenderID,
		"conn_id":   e.ConnID,
		"path":      e.Path,
		"method":    e.Method(),
	})
}

// DecodeEnvelope decodes one wire frame: sender_id, conn_id, and path are
// split off at the first three spaces, the remainder is parsed as a
// tnetstring to get the headers payload, and whatever follows that is parsed
// as a tnetstring to get the body. A dictionary headers payload is used
// directly; a string payload is decoded as JSON and must be an object.
// METHOD, if present, must match ^\w+$.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	senderID, rest, ok := cutSpace(frame)
	if !ok {
		return nil, fmt.Errorf("%w: missing sender_id", ErrBadRequest)
	}

	connIDRaw, rest, ok := cutSpace(rest)
	if !ok {
		return nil, fmt.Errorf("%w: missing conn_id", ErrBadRequest)
	}

	connID, err := parseConnID(connIDRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	path, rest, ok := cutSpace(rest)
	if !ok {
		return nil, fmt.Errorf("%w: missing path", ErrBadRequest)
	}

	headersRaw := rest

	headersPayload, rest, err := tnetstring.Decode(rest)
	if err != nil {
		return nil, err
	}

	headersFrame := headersRaw[:len(headersRaw)-len(rest)]

	body, _, err := tnetstring.Decode(rest)
	if err != nil {
		return nil, err
	}

	headers, err := decodeHeaders(headersFrame, headersPayload)
	if err != nil {
		return nil, err
	}

	method := headers.First("METHOD")
	if method != "" && !methodToken.MatchString(method) {
		return nil, fmt.Errorf("%w: METHOD %q is not a bare word", ErrUnhandledMethod, method)
	}

	bodyBytes, err := bodyToBytes(body)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		SenderID: string(senderID),
		ConnID:   connID,
		Path:     string(path),
		Headers:  headers,
		Body:     bodyBytes,
		Raw:      append([]byte(nil), frame...),
	}, nil
}

// cutSpace splits b at the first space byte, returning the piece before it,
// the remainder after it, and whether a space was found.
func cutSpace(b []byte) (before, after []byte, found bool) {
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return nil, nil, false
	}

	return b[:i], b[i+1:], true
}

func parseConnID(b []byte) (int, error) {
	n := 0
	if len(b) == 0 {
		return 0, fmt.Errorf("empty conn_id")
	}

	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("conn_id %q is not decimal", b)
		}

		n = n*10 + int(c-'0')
	}

	return n, nil
}

// decodeHeaders normalises a decoded tnetstring headers payload (either
// already a dictionary, or a JSON-encoded string) into Headers, preserving
// the order the keys appeared on the wire. raw is the tnetstring bytes that
// decoded to v, re-parsed here to recover the key order that Decode's plain
// map discards.
func decodeHeaders(raw []byte, v interface{}) (*Headers, error) {
	switch x := v.(type) {
	case map[string]interface{}:
		order, m, _, err := tnetstring.DecodeDictionary(raw)
		if err != nil {
			return headersFromMap(x), nil
		}

		return headersFromOrderedMap(order, m), nil
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(x), &m); err != nil {
			return nil, fmt.Errorf("%w: headers string is not a JSON object: %v", ErrBadRequest, err)
		}

		if m == nil {
			return nil, fmt.Errorf("%w: headers string is not a JSON object", ErrBadRequest)
		}

		order, err := orderedJSONKeys([]byte(x))
		if err != nil {
			return headersFromMap(m), nil
		}

		return headersFromOrderedMap(order, m), nil
	default:
		return nil, fmt.Errorf("%w: headers is neither a dictionary nor a string", ErrBadRequest)
	}
}

func headersFromMap(m map[string]interface{}) *Headers {
	hs := NewHeaders()
	for k, v := range m {
		hs.Set(k, stringifyHeaderValue(v))
	}

	return hs
}

// headersFromOrderedMap builds Headers from m, visiting keys in order so the
// wire's delivered order survives into Envelope.Headers.
func headersFromOrderedMap(order []string, m map[string]interface{}) *Headers {
	hs := NewHeaders()
	for _, k := range order {
		hs.Set(k, stringifyHeaderValue(m[k]))
	}

	return hs
}

// orderedJSONKeys walks raw (a JSON object) with a token-level decoder to
// recover its top-level key order, which json.Unmarshal into a map discards.
// Each key is reported once, at the position of its first occurrence.
func orderedJSONKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("headers JSON is not an object")
	}

	var order []string
	seen := make(map[string]bool)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("headers JSON key is not a string")
		}

		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}

		if !seen[key] {
			order = append(order, key)
			seen[key] = true
		}
	}

	return order, nil
}

// stringifyHeaderValue renders a decoded tnetstring/JSON value as the single
// string the rest of the package's header-handling code expects. Structured
// values (lists, nested dicts) are rendered back to JSON so no information is
// lost.
func stringifyHeaderValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}

		return string(b)
	}
}

func bodyToBytes(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: body must be a tnetstring string", ErrBadRequest)
	}
}

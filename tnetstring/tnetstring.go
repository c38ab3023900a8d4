// Package tnetstring implements the tagged netstring encoding Mongrel2 uses
// for request headers and bodies: a decimal length, a colon, a payload, and
// a single type-tag byte.
package tnetstring

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// ErrorKind classifies why a decode or encode failed.
type ErrorKind uint8

// Error kinds.
const (
	ErrLength ErrorKind = iota
	ErrTerminator
	ErrTag
	ErrTrailing
	ErrKey
	ErrValue
)

// Error is returned by Decode and Encode on malformed input.
type Error struct {
	Kind ErrorKind
	Msg  string
}

// Error implements the `error`.
func (e *Error) Error() string {
	return fmt.Sprint("tnetstring: ", e.Msg)
}

func newError(k ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, a...)}
}

// Type tags, per the tnetstring grammar.
const (
	tagString     = ','
	tagInteger    = '#'
	tagFloat      = '^'
	tagBoolean    = '!'
	tagNull       = '~'
	tagDictionary = '}'
	tagList       = ']'
)

// decodeFrame splits the leading tnetstring of b into its type tag and
// length-validated payload, returning whatever bytes follow it.
func decodeFrame(b []byte) (tag byte, payload []byte, rest []byte, err error) {
	colon := -1
	for i, c := range b {
		if c == ':' {
			colon = i
			break
		}

		if c < '0' || c > '9' {
			break
		}
	}

	if colon <= 0 {
		return 0, nil, nil, newError(ErrLength, "missing or empty length prefix")
	}

	length, err := strconv.Atoi(string(b[:colon]))
	if err != nil {
		return 0, nil, nil, newError(ErrLength, "invalid length prefix: %v", err)
	}

	payloadStart := colon + 1
	payloadEnd := payloadStart + length
	if payloadEnd+1 > len(b) {
		return 0, nil, nil, newError(ErrLength, "length prefix exceeds available data")
	}

	return b[payloadEnd], b[payloadStart:payloadEnd], b[payloadEnd+1:], nil
}

// Decode parses the leading tnetstring of b and returns its decoded value
// along with whatever bytes follow it.
//
// Values decode as: string -> string, integer -> *big.Int, float -> float64,
// boolean -> bool, null -> nil, dictionary -> map[string]interface{}, list ->
// []interface{}. A dictionary's key order is not preserved by this call; use
// DecodeDictionary when the caller needs the on-wire order.
func Decode(b []byte) (value interface{}, rest []byte, err error) {
	tag, payload, rest, err := decodeFrame(b)
	if err != nil {
		return nil, nil, err
	}

	switch tag {
	case tagString:
		return string(payload), rest, nil
	case tagInteger:
		n, ok := new(big.Int).SetString(string(payload), 10)
		if !ok {
			return nil, nil, newError(ErrValue, "invalid integer payload: %q", payload)
		}

		return n, rest, nil
	case tagFloat:
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, nil, newError(ErrValue, "invalid float payload: %v", err)
		}

		return f, rest, nil
	case tagBoolean:
		switch string(payload) {
		case "true":
			return true, rest, nil
		case "false":
			return false, rest, nil
		default:
			return nil, nil, newError(ErrValue, "invalid boolean payload: %q", payload)
		}
	case tagNull:
		if len(payload) != 0 {
			return nil, nil, newError(ErrValue, "null payload must be empty")
		}

		return nil, rest, nil
	case tagDictionary:
		m, _, err := decodeDictionary(payload)
		if err != nil {
			return nil, nil, err
		}

		return m, rest, nil
	case tagList:
		list, err := decodeList(payload)
		if err != nil {
			return nil, nil, err
		}

		return list, rest, nil
	default:
		return nil, nil, newError(ErrTag, "unknown type tag: %q", tag)
	}
}

// DecodeDictionary decodes a single top-level tnetstring dictionary value,
// returning its keys in on-wire order (each key once, at the position of its
// first occurrence) alongside the usual map. Go's map iteration order is
// randomized, so a caller that needs to preserve a dictionary's delivered
// order (such as an HTTP header block) must use this instead of inspecting
// the map returned by Decode.
func DecodeDictionary(b []byte) (order []string, values map[string]interface{}, rest []byte, err error) {
	tag, payload, rest, err := decodeFrame(b)
	if err != nil {
		return nil, nil, nil, err
	}

	if tag != tagDictionary {
		return nil, nil, nil, newError(ErrTag, "expected dictionary type tag, got %q", tag)
	}

	values, order, err = decodeDictionary(payload)
	if err != nil {
		return nil, nil, nil, err
	}

	return order, values, rest, nil
}

// decodeDictionary decodes the concatenated key/value tnetstrings of payload,
// returning the resulting map along with its keys in the order they first
// appeared on the wire. Duplicate keys take the last occurrence's value but
// keep their first occurrence's position in order.
func decodeDictionary(payload []byte) (map[string]interface{}, []string, error) {
	m := make(map[string]interface{})
	var order []string
	seen := make(map[string]bool)

	for len(payload) > 0 {
		k, rest, err := Decode(payload)
		if err != nil {
			return nil, nil, err
		}

		key, ok := k.(string)
		if !ok {
			return nil, nil, newError(ErrKey, "dictionary key must be a string, got %T", k)
		}

		if len(rest) == 0 {
			return nil, nil, newError(ErrValue, "dictionary key %q has no value", key)
		}

		v, rest2, err := Decode(rest)
		if err != nil {
			return nil, nil, err
		}

		if !seen[key] {
			order = append(order, key)
			seen[key] = true
		}

		m[key] = v
		payload = rest2
	}

	return m, order, nil
}

// decodeList decodes the concatenated element tnetstrings of payload.
func decodeList(payload []byte) ([]interface{}, error) {
	var list []interface{}

	for len(payload) > 0 {
		v, rest, err := Decode(payload)
		if err != nil {
			return nil, err
		}

		list = append(list, v)
		payload = rest
	}

	return list, nil
}

// Encode serialises v as a tnetstring.
//
// Supported inputs: string, []byte, bool, nil, *big.Int, int, int64, uint64,
// float32/float64, map[string]interface{} (keys sorted for deterministic
// output), []interface{}. Other integer types are rejected with ErrValue.
func Encode(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return wrap(nil, tagNull), nil
	case string:
		return wrap([]byte(x), tagString), nil
	case []byte:
		return wrap(x, tagString), nil
	case bool:
		if x {
			return wrap([]byte("true"), tagBoolean), nil
		}

		return wrap([]byte("false"), tagBoolean), nil
	case *big.Int:
		return wrap([]byte(x.String()), tagInteger), nil
	case int:
		return wrap([]byte(strconv.Itoa(x)), tagInteger), nil
	case int64:
		return wrap([]byte(strconv.FormatInt(x, 10)), tagInteger), nil
	case uint64:
		return wrap([]byte(strconv.FormatUint(x, 10)), tagInteger), nil
	case float64:
		return wrap([]byte(strconv.FormatFloat(x, 'g', -1, 64)), tagFloat), nil
	case float32:
		return wrap([]byte(strconv.FormatFloat(float64(x), 'g', -1, 32)), tagFloat), nil
	case map[string]interface{}:
		return encodeDictionary(x)
	case []interface{}:
		return encodeList(x)
	default:
		return nil, newError(ErrValue, "unsupported value type: %T", v)
	}
}

func wrap(payload []byte, tag byte) []byte {
	out := make([]byte, 0, len(payload)+12)
	out = strconv.AppendInt(out, int64(len(payload)), 10)
	out = append(out, ':')
	out = append(out, payload...)
	out = append(out, tag)
	return out
}

func encodeDictionary(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var payload []byte
	for _, k := range keys {
		kb, err := Encode(k)
		if err != nil {
			return nil, err
		}

		vb, err := Encode(m[k])
		if err != nil {
			return nil, err
		}

		payload = append(payload, kb...)
		payload = append(payload, vb...)
	}

	return wrap(payload, tagDictionary), nil
}

func encodeList(list []interface{}) ([]byte, error) {
	var payload []byte
	for _, v := range list {
		vb, err := Encode(v)
		if err != nil {
			return nil, err
		}

		payload = append(payload, vb...)
	}

	return wrap(payload, tagList), nil
}

package mongrel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ts encodes s as a tnetstring string value: <len>:<s>,
func ts(s string) string {
	return itoa(len(s)) + ":" + s + ","
}

// dictOf builds a tnetstring dictionary from ordered key/value string pairs.
func dictOf(pairs [][2]string) string {
	payload := ""
	for _, p := range pairs {
		payload += ts(p[0]) + ts(p[1])
	}

	return itoa(len(payload)) + ":" + payload + "}"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	return string(digits)
}

func TestDecodeEnvelopeHTTPGet(t *testing.T) {
	headers := dictOf([][2]string{{"PATH", "/"}})
	frame := []byte("abc 42 / " + headers + ts(""))

	env, err := DecodeEnvelope(frame)
	assert.NoError(t, err)
	assert.Equal(t, "abc", env.SenderID)
	assert.Equal(t, 42, env.ConnID)
	assert.Equal(t, "/", env.Path)
	assert.Equal(t, "/", env.Header("PATH"))
	assert.Empty(t, env.Body)
	assert.Equal(t, frame, env.Raw)
}

func TestDecodeEnvelopeJSONDisconnect(t *testing.T) {
	headers := dictOf([][2]string{{"METHOD", "JSON"}})
	body := ts(`{"type":"disconnect"}`)
	frame := []byte("abc 7 /ws " + headers + body)

	env, err := DecodeEnvelope(frame)
	assert.NoError(t, err)
	assert.Equal(t, "JSON", env.Method())
	assert.JSONEq(t, `{"type":"disconnect"}`, string(env.Body))
}

func TestDecodeEnvelopeHeadersAsJSONString(t *testing.T) {
	headersJSON := `{"METHOD":"GET","PATH":"/x"}`
	headers := ts(headersJSON)
	frame := []byte("abc 1 /x " + headers + ts(""))

	env, err := DecodeEnvelope(frame)
	assert.NoError(t, err)
	assert.Equal(t, "GET", env.Method())
	assert.Equal(t, "/x", env.Header("PATH"))
}

func TestDecodeEnvelopeBadHeadersShape(t *testing.T) {
	// headers payload is an integer, not a dict or string.
	frame := []byte("abc 1 / 1:5#" + ts(""))

	_, err := DecodeEnvelope(frame)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestDecodeEnvelopeUnhandledMethod(t *testing.T) {
	headers := dictOf([][2]string{{"METHOD", "FOO BAR"}})
	frame := []byte("abc 1 / " + headers + ts(""))

	_, err := DecodeEnvelope(frame)
	assert.ErrorIs(t, err, ErrUnhandledMethod)
}

func TestDecodeEnvelopeHeadersPreserveWireOrder(t *testing.T) {
	headers := dictOf([][2]string{
		{"Z-FIRST", "1"},
		{"A-SECOND", "2"},
		{"M-THIRD", "3"},
	})
	frame := []byte("abc 1 / " + headers + ts(""))

	env, err := DecodeEnvelope(frame)
	assert.NoError(t, err)

	var got []string
	env.Headers.Each(func(name string, _ []string) {
		got = append(got, name)
	})
	assert.Equal(t, []string{"Z-FIRST", "A-SECOND", "M-THIRD"}, got)
}

func TestDecodeEnvelopeHeadersAsJSONStringPreserveWireOrder(t *testing.T) {
	headersJSON := `{"Z-FIRST":"1","A-SECOND":"2","M-THIRD":"3"}`
	headers := ts(headersJSON)
	frame := []byte("abc 1 / " + headers + ts(""))

	env, err := DecodeEnvelope(frame)
	assert.NoError(t, err)

	var got []string
	env.Headers.Each(func(name string, _ []string) {
		got = append(got, name)
	})
	assert.Equal(t, []string{"Z-FIRST", "A-SECOND", "M-THIRD"}, got)
}

func TestDecodeEnvelopeMalformedTnetstring(t *testing.T) {
	frame := []byte("abc 1 / not-a-tnetstring")

	_, err := DecodeEnvelope(frame)
	assert.Error(t, err)
}

package mongrel2

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewResponseSeedsServerHeader(t *testing.T) {
	r := NewResponse("abc", 42)
	assert.Equal(t, serverIdent, r.Header.First("Server"))
	assert.False(t, r.Handled())
}

func TestStatusLineDefaultsTo200(t *testing.T) {
	r := NewResponse("abc", 42)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", r.StatusLine())
}

func TestStatusLineFormat(t *testing.T) {
	r := NewResponse("abc", 42)
	r.Status = http.StatusNoContent
	assert.Equal(t, "HTTP/1.1 204 No Content\r\n", r.StatusLine())
}

func TestStatusCategoryAccessors(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{100, "informational"},
		{200, "successful"},
		{301, "redirect"},
		{404, "clienterror"},
		{503, "servererror"},
	}

	for _, c := range cases {
		r := NewResponse("abc", 1)
		r.Status = c.status

		got := map[string]bool{
			"informational": r.IsInformational(),
			"successful":    r.IsSuccessful(),
			"redirect":      r.IsRedirect(),
			"clienterror":   r.IsClientError(),
			"servererror":   r.IsServerError(),
		}

		for k, v := range got {
			if k == c.want {
				assert.True(t, v, "status %d: expected %s true", c.status, k)
			} else {
				assert.False(t, v, "status %d: expected %s false", c.status, k)
			}
		}
	}
}

func TestUnsetStatusHasNoCategory(t *testing.T) {
	r := NewResponse("abc", 1)
	assert.False(t, r.IsInformational())
	assert.False(t, r.IsSuccessful())
	assert.False(t, r.IsRedirect())
	assert.False(t, r.IsClientError())
	assert.False(t, r.IsServerError())
}

func TestContentLengthFromBytesReader(t *testing.T) {
	r := NewResponse("abc", 1)
	r.Status = http.StatusOK
	r.Body = bytes.NewReader([]byte("hello"))

	b, err := r.Bytes()
	assert.NoError(t, err)
	assert.Contains(t, string(b), "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(string(b), "hello"))
}

func TestContentLengthFromSeekTell(t *testing.T) {
	data := make([]byte, 1034)
	r := NewResponse("abc", 1)
	r.Status = http.StatusOK

	stream := bytes.NewReader(data)
	_, err := stream.Seek(10, 0)
	assert.NoError(t, err)

	seeker := &noLenSeeker{r: stream}
	r.Body = seeker

	b, err := r.Bytes()
	assert.NoError(t, err)
	assert.Contains(t, string(b), "Content-Length: 1024\r\n")

	pos, _ := stream.Seek(0, 1)
	assert.Equal(t, int64(10), pos)
}

func TestResponseErrorWithoutLengthProtocol(t *testing.T) {
	r := NewResponse("abc", 1)
	r.Status = http.StatusOK
	r.Body = noLenNoSeekReader{}

	_, err := r.Bytes()
	assert.ErrorIs(t, err, ErrResponseError)
}

func TestKeepAliveToggle(t *testing.T) {
	r := NewResponse("abc", 1)

	r.SetKeepAlive(true)
	assert.True(t, r.KeepAlive())
	assert.Equal(t, "keep-alive", r.Header.First("Connection"))

	r.SetKeepAlive(false)
	assert.False(t, r.KeepAlive())
	assert.Equal(t, "close", r.Header.First("Connection"))
}

func TestResponseReset(t *testing.T) {
	r := NewResponse("abc", 1)
	r.Status = http.StatusOK
	r.Header.Set("X-Custom", "1")
	r.Body = bytes.NewReader([]byte("x"))

	r.Reset("abc", 1)

	assert.False(t, r.Handled())
	assert.False(t, r.Header.Has("X-Custom"))
	assert.Equal(t, serverIdent, r.Header.First("Server"))
	assert.Nil(t, r.Body)
}

func TestResponseRoundTripParsesAsHTTP(t *testing.T) {
	r := NewResponse("abc", 1)
	r.Status = http.StatusOK
	r.Header.Set("Content-Type", "text/plain")
	r.Body = bytes.NewReader([]byte("hi"))

	b, err := r.Bytes()
	assert.NoError(t, err)

	parts := strings.SplitN(string(b), "\r\n\r\n", 2)
	assert.Len(t, parts, 2)
	assert.Equal(t, "hi", parts[1])

	lines := strings.Split(parts[0], "\r\n")
	assert.Equal(t, "HTTP/1.1 200 OK", lines[0])
}

// noLenSeeker wraps an io.ReadSeeker but deliberately hides any Len() method
// so contentLength must fall back to the seek/tell protocol.
type noLenSeeker struct {
	r *bytes.Reader
}

func (s *noLenSeeker) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *noLenSeeker) Seek(offset int64, whence int) (int64, error) {
	return s.r.Seek(offset, whence)
}

type noLenNoSeekReader struct{}

func (noLenNoSeekReader) Read(p []byte) (int, error) { return 0, nil }

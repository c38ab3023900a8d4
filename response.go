package mongrel2

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/http/httpguts"
)

// serverIdent is the Server header value this package seeds every fresh
// Response with.
const serverIdent = "mongrel2-handler"

// sizedLen is satisfied by anything that can report its own byte length
// without being consumed, such as `*bytes.Reader` or `*bytes.Buffer`.
type sizedLen interface {
	Len() int
}

// Response is an HTTP response.
//
// It is created lazily by a request's handling code and is reusable via
// Reset for pool-friendly allocation.
type Response struct {
	SenderID string
	ConnID   int

	// Status is the status code. Zero means unset; `Handled` reports
	// whether it has been assigned.
	Status int

	Header *Headers

	// Body is the response body. It may be nil (no body), an io.Reader
	// that also implements `Len() int` (e.g. `*bytes.Reader`,
	// `*bytes.Buffer`), or an `io.ReadSeeker`. Anything else fails
	// Content-Length resolution with `ErrResponseError`.
	Body io.Reader
}

// NewResponse returns a Response for the given sender/conn, seeded with the
// Server header.
func NewResponse(senderID string, connID int) *Response {
	r := &Response{SenderID: senderID, ConnID: connID}
	r.Header = NewHeaders()
	r.Header.Set("Server", serverIdent)
	return r
}

// Handled reports whether Status has been assigned.
func (r *Response) Handled() bool {
	return r.Status != 0
}

// ConnIDs implements the `Reply` interface Connection.Reply consumes.
func (r *Response) ConnIDs() []int { return []int{r.ConnID} }

// Payload implements the `Reply` interface: the full serialised response is
// the HTTP reply payload.
func (r *Response) Payload() ([]byte, error) { return r.Bytes() }

// category is floor(Status / 100), or 0 if Status is unset.
func (r *Response) category() int {
	if r.Status == 0 {
		return 0
	}

	return r.Status / 100
}

// IsInformational reports whether the status is 1xx.
func (r *Response) IsInformational() bool { return r.category() == 1 }

// IsSuccessful reports whether the status is 2xx.
func (r *Response) IsSuccessful() bool { return r.category() == 2 }

// IsRedirect reports whether the status is 3xx.
func (r *Response) IsRedirect() bool { return r.category() == 3 }

// IsClientError reports whether the status is 4xx.
func (r *Response) IsClientError() bool { return r.category() == 4 }

// IsServerError reports whether the status is 5xx.
func (r *Response) IsServerError() bool { return r.category() == 5 }

// SetKeepAlive sets or clears the Connection header to reflect the keep-alive
// state of the r.
func (r *Response) SetKeepAlive(keepAlive bool) {
	if keepAlive {
		r.Header.Set("Connection", "keep-alive")
		return
	}

	r.Header.Set("Connection", "close")
}

// KeepAlive reports whether the current Connection header asks for
// keep-alive.
func (r *Response) KeepAlive() bool {
	return httpguts.HeaderValuesContainsToken(
		[]string{r.Header.First("Connection")},
		"keep-alive",
	)
}

// StatusLine returns the exact `HTTP/1.1 SSS REASON\r\n` status line. If
// Status is unset, it defaults to 200.
func (r *Response) StatusLine() string {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	return fmt.Sprintf("HTTP/1.1 %03d %s\r\n", status, reasonPhrase(status))
}

// contentLength resolves Content-Length:
//
//  1. if Body exposes a length, use it.
//  2. else if Body is a seek/tell-capable stream, measure the remaining
//     bytes from the current position without disturbing it.
//  3. else fail with ErrResponseError.
func (r *Response) contentLength() (int64, error) {
	if r.Body == nil {
		return 0, nil
	}

	if sl, ok := r.Body.(sizedLen); ok {
		return int64(sl.Len()), nil
	}

	if seeker, ok := r.Body.(io.Seeker); ok {
		p, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}

		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}

		if _, err := seeker.Seek(p, io.SeekStart); err != nil {
			return 0, err
		}

		return end - p, nil
	}

	return 0, ErrResponseError
}

// WriteHeaders writes the Date/Content-Length-completed header block,
// terminated by a bare CRLF, to w. Date and Content-Length are populated if
// absent.
func (r *Response) WriteHeaders(w io.Writer) error {
	if !r.Header.Has("Date") {
		r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}

	if !r.Header.Has("Content-Length") {
		cl, err := r.contentLength()
		if err != nil {
			return err
		}

		r.Header.Set("Content-Length", strconv.FormatInt(cl, 10))
	}

	var writeErr error
	r.Header.Each(func(name string, values []string) {
		if writeErr != nil {
			return
		}

		for _, v := range values {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", name, v); err != nil {
				writeErr = err
				return
			}
		}
	})
	if writeErr != nil {
		return writeErr
	}

	_, err := io.WriteString(w, "\r\n")
	return err
}

// Bytes serialises the full response: status line, header block, body. A
// seekable Body is left at the position it had before Bytes was called.
func (r *Response) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}

	if _, err := io.WriteString(buf, r.StatusLine()); err != nil {
		return nil, err
	}

	if err := r.WriteHeaders(buf); err != nil {
		return nil, err
	}

	if r.Body != nil {
		seeker, seekable := r.Body.(io.Seeker)
		var pos int64
		if seekable {
			p, err := seeker.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, err
			}
			pos = p
		}

		if _, err := io.Copy(buf, r.Body); err != nil {
			return nil, err
		}

		if seekable {
			if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// Reset returns the r to its initial state: headers cleared and re-seeded
// with Server, status cleared, body emptied. SenderID/ConnID are set to the
// given values.
func (r *Response) Reset(senderID string, connID int) {
	r.SenderID = senderID
	r.ConnID = connID
	r.Status = 0
	r.Body = nil
	r.Header.Reset()
	r.Header.Set("Server", serverIdent)
}

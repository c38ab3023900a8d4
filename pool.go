package mongrel2

import "sync"

// ResponsePool recycles `Response` and `Headers` values across the
// receive-dispatch-reply loop to avoid an allocation per request on the hot
// path.
type ResponsePool struct {
	responsePool *sync.Pool
	headersPool  *sync.Pool
}

// NewResponsePool returns a new, empty ResponsePool.
func NewResponsePool() *ResponsePool {
	return &ResponsePool{
		responsePool: &sync.Pool{
			New: func() interface{} {
				return &Response{Header: NewHeaders()}
			},
		},
		headersPool: &sync.Pool{
			New: func() interface{} {
				return NewHeaders()
			},
		},
	}
}

// Response returns a Response from p, addressed to (senderID, connID) and
// ready to have its Status/Header/Body set.
func (p *ResponsePool) Response(senderID string, connID int) *Response {
	r := p.responsePool.Get().(*Response)
	r.Reset(senderID, connID)
	return r
}

// PutResponse returns r to p for reuse. r must not be touched again by the
// caller afterward.
func (p *ResponsePool) PutResponse(r *Response) {
	if r == nil {
		return
	}
	p.responsePool.Put(r)
}

// Headers returns an empty Headers value from p.
func (p *ResponsePool) Headers() *Headers {
	h := p.headersPool.Get().(*Headers)
	h.Reset()
	return h
}

// PutHeaders returns h to p for reuse.
func (p *ResponsePool) PutHeaders(h *Headers) {
	if h == nil {
		return
	}
	p.headersPool.Put(h)
}

package mongrel2

import (
	"context"
	"errors"
	"sync"
)

// Socket is the abstract message-transport the core depends on. Binding it
// to real ZeroMQ PULL/PUB sockets is explicitly out of scope for this
// package; callers supply their own implementation (e.g. wrapping `zmq4` or
// `goczmq`).
type Socket interface {
	// Recv blocks until one message is available, or ctx is done.
	Recv(ctx context.Context) ([]byte, error)

	// Send sends one message, blocking only on the transport's own
	// backpressure semantics.
	Send(ctx context.Context, b []byte) error

	// Close closes the socket. Subsequent Recv/Send fail.
	Close() error
}

// errSocketClosed is returned by a ChannelSocket's Recv/Send after Close.
var errSocketClosed = errors.New("mongrel2: socket closed")

// ChannelSocket is an in-memory Socket backed by a Go channel, used for
// tests and for the package's runnable example in place of a real ZeroMQ
// binding.
type ChannelSocket struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// NewChannelSocket returns a ChannelSocket with the given buffer size.
func NewChannelSocket(buffer int) *ChannelSocket {
	return &ChannelSocket{ch: make(chan []byte, buffer)}
}

// Recv implements the `Socket`.
func (s *ChannelSocket) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-s.ch:
		if !ok {
			return nil, errSocketClosed
		}

		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implements the `Socket`.
func (s *ChannelSocket) Send(ctx context.Context, b []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSocketClosed
	}
	s.mu.Unlock()

	select {
	case s.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the `Socket`.
func (s *ChannelSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.ch)

	return nil
}

// Inject pushes a raw frame onto the socket as if it had arrived over the
// wire, for use by tests driving a Connection's Receive.
func (s *ChannelSocket) Inject(b []byte) {
	s.ch <- b
}

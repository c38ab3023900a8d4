package mongrel2

import (
	"context"
	"sync/atomic"
)

// Reply is anything Connection.Reply can serialise and send: an HTTP
// `Response` or a `WebSocketResponse`.
type Reply interface {
	// ConnIDs returns the connection IDs this reply targets. A handler
	// reply always targets one; broadcasting to several is done by
	// calling Connection.ReplyMulti directly.
	ConnIDs() []int

	// Payload returns the serialised reply body.
	Payload() ([]byte, error)
}

// Transport opens the two sockets a Connection needs: a reply (pub) socket
// bound with the given identity, and a request (pull) socket. Binding these
// to a real ZeroMQ context is the caller's responsibility; see `Socket` for
// the seam.
type Transport interface {
	OpenReply(spec, identity string) (Socket, error)
	OpenRequest(spec string) (Socket, error)
}

// Connection owns the two transport endpoints a handler process uses to
// talk to Mongrel2.
type Connection struct {
	AppID    string
	SendSpec string
	RecvSpec string

	transport Transport
	registry  *Registry

	reqSocket Socket
	repSocket Socket
	closed    atomic.Bool
}

// Open creates a Connection by opening a reply socket bound to sendSpec with
// identity appID, and a request socket connected to recvSpec. If registry is
// nil, DefaultRegistry is used.
func Open(t Transport, appID, sendSpec, recvSpec string, registry *Registry) (*Connection, error) {
	if registry == nil {
		registry = DefaultRegistry
	}

	repSocket, err := t.OpenReply(sendSpec, appID)
	if err != nil {
		return nil, err
	}

	reqSocket, err := t.OpenRequest(recvSpec)
	if err != nil {
		repSocket.Close()
		return nil, err
	}

	return &Connection{
		AppID:     appID,
		SendSpec:  sendSpec,
		RecvSpec:  recvSpec,
		transport: t,
		registry:  registry,
		reqSocket: reqSocket,
		repSocket: repSocket,
	}, nil
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Receive blocks until one request frame arrives, decodes it, and returns
// the typed Request. It fails with ErrConnectionClosed if Close has already
// been called.
func (c *Connection) Receive(ctx context.Context) (Request, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	frame, err := c.reqSocket.Recv(ctx)
	if err != nil {
		if c.closed.Load() {
			return nil, ErrConnectionClosed
		}

		return nil, err
	}

	env, err := DecodeEnvelope(frame)
	if err != nil {
		return nil, err
	}

	return c.registry.build(env)
}

// Reply serialises and sends r on the reply socket.
func (c *Connection) Reply(ctx context.Context, senderID string, r Reply) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	payload, err := r.Payload()
	if err != nil {
		return err
	}

	return c.repSocket.Send(ctx, EncodeReply(senderID, r.ConnIDs(), payload))
}

// ReplyMulti broadcasts payload to every connection in connIDs as a single
// transport write.
func (c *Connection) ReplyMulti(ctx context.Context, senderID string, connIDs []int, payload []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	return c.repSocket.Send(ctx, EncodeReply(senderID, connIDs, payload))
}

// CloseConnections sends the "close these connections" command: the same
// envelope shape as a reply, with an empty payload.
func (c *Connection) CloseConnections(ctx context.Context, senderID string, connIDs []int) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	return c.repSocket.Send(ctx, EncodeClose(senderID, connIDs))
}

// Dup returns a new Connection with the same identity and specs, opened on
// fresh sockets, leaving the original closable independently. Used by
// restart so the old socket can be drained/closed without disturbing the
// new one.
func (c *Connection) Dup() (*Connection, error) {
	return Open(c.transport, c.AppID, c.SendSpec, c.RecvSpec, c.registry)
}

// Close is idempotent; subsequent Receive/Reply calls fail with
// ErrConnectionClosed.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	reqErr := c.reqSocket.Close()
	repErr := c.repSocket.Close()

	if reqErr != nil {
		return reqErr
	}

	return repErr
}

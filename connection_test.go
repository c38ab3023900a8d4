package mongrel2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// memTransport is a Transport backed by ChannelSockets, keyed by spec so a
// test can reach into either side of a Connection.
type memTransport struct {
	reply   map[string]*ChannelSocket
	request map[string]*ChannelSocket
}

func newMemTransport() *memTransport {
	return &memTransport{
		reply:   make(map[string]*ChannelSocket),
		request: make(map[string]*ChannelSocket),
	}
}

func (t *memTransport) OpenReply(spec, identity string) (Socket, error) {
	s := NewChannelSocket(8)
	t.reply[spec] = s
	return s, nil
}

func (t *memTransport) OpenRequest(spec string) (Socket, error) {
	s := NewChannelSocket(8)
	t.request[spec] = s
	return s, nil
}

func TestConnectionReceiveDecodesEnvelope(t *testing.T) {
	tr := newMemTransport()
	conn, err := Open(tr, "app", "tcp://send", "tcp://recv", nil)
	assert.NoError(t, err)

	headers := dictOf([][2]string{{"PATH", "/"}})
	frame := []byte("abc 42 / " + headers + ts(""))
	tr.request["tcp://recv"].Inject(frame)

	req, err := conn.Receive(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, KindHTTP, req.Kind())
	assert.Equal(t, "abc", req.Envelope().SenderID)
}

func TestConnectionReplySendsEncodedEnvelope(t *testing.T) {
	tr := newMemTransport()
	conn, err := Open(tr, "app", "tcp://send", "tcp://recv", nil)
	assert.NoError(t, err)

	resp := NewResponse("abc", 42)
	resp.Status = 204
	resp.Body = nil

	err = conn.Reply(context.Background(), "abc", resp)
	assert.NoError(t, err)

	out, err := tr.reply["tcp://send"].Recv(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, string(out), "abc 2:42, HTTP/1.1 204 No Content\r\n")
}

func TestConnectionCloseIsIdempotentAndBlocksFurtherIO(t *testing.T) {
	tr := newMemTransport()
	conn, err := Open(tr, "app", "tcp://send", "tcp://recv", nil)
	assert.NoError(t, err)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	_, err = conn.Receive(context.Background())
	assert.ErrorIs(t, err, ErrConnectionClosed)

	err = conn.CloseConnections(context.Background(), "abc", []int{1})
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnectionDupOpensFreshSocketsSameIdentity(t *testing.T) {
	tr := newMemTransport()
	conn, err := Open(tr, "app", "tcp://send", "tcp://recv", nil)
	assert.NoError(t, err)

	dup, err := conn.Dup()
	assert.NoError(t, err)
	assert.Equal(t, conn.AppID, dup.AppID)
	assert.Equal(t, conn.SendSpec, dup.SendSpec)
	assert.Equal(t, conn.RecvSpec, dup.RecvSpec)
	assert.NotSame(t, conn.reqSocket, dup.reqSocket)

	assert.NoError(t, conn.Close())
	assert.False(t, dup.Closed())
}

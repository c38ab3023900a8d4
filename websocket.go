package mongrel2

import (
	"encoding/binary"
	"fmt"

	"github.com/gorilla/websocket"
)

// WebSocket opcodes, mirrored from `gorilla/websocket`'s message-type
// constants so the two stay numerically identical.
const (
	OpContinuation = 0x0
	OpText         = websocket.TextMessage
	OpBinary       = websocket.BinaryMessage
	OpClose        = websocket.CloseMessage
	OpPing         = websocket.PingMessage
	OpPong         = websocket.PongMessage
)

// CloseNormalClosure, CloseInvalidFramePayload, ClosePolicyViolation and
// CloseMessageTooBig are RFC 6455 close-status codes.
const (
	CloseNormalClosure       = 1000
	CloseInvalidFramePayload = 1007
	ClosePolicyViolation     = 1008
	CloseMessageTooBig       = 1009
)

// WebSocketFrame is a parsed WebSocket frame: FIN/RSV/opcode byte,
// masked-bit and 7-bit length, optional extended length, optional 4-byte
// mask, payload.
type WebSocketFrame struct {
	FIN     bool
	RSV1    bool
	RSV2    bool
	RSV3    bool
	Opcode  int
	Masked  bool
	Payload []byte
}

// Flags returns the 2-character hex string Mongrel2 delivers in the FLAGS
// header: the encoded first frame byte (FIN|RSV1..3|opcode).
func (f *WebSocketFrame) Flags() string {
	b := byte(f.Opcode & 0x0f)
	if f.FIN {
		b |= 0x80
	}
	if f.RSV1 {
		b |= 0x40
	}
	if f.RSV2 {
		b |= 0x20
	}
	if f.RSV3 {
		b |= 0x10
	}

	return fmt.Sprintf("%02x", b)
}

// ParseWebSocketFrame parses b as a single WebSocket frame. The payload is
// copied out of b and a masked payload is unmasked in that copy; b itself is
// not modified.
func ParseWebSocketFrame(b []byte) (*WebSocketFrame, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("mongrel2: websocket frame too short")
	}

	first := b[0]
	f := &WebSocketFrame{
		FIN:    first&0x80 != 0,
		RSV1:   first&0x40 != 0,
		RSV2:   first&0x20 != 0,
		RSV3:   first&0x10 != 0,
		Opcode: int(first & 0x0f),
	}

	second := b[1]
	f.Masked = second&0x80 != 0
	length := uint64(second & 0x7f)
	offset := 2

	switch length {
	case 126:
		if len(b) < offset+2 {
			return nil, fmt.Errorf("mongrel2: websocket frame truncated 16-bit length")
		}

		length = uint64(binary.BigEndian.Uint16(b[offset : offset+2]))
		offset += 2
	case 127:
		if len(b) < offset+8 {
			return nil, fmt.Errorf("mongrel2: websocket frame truncated 64-bit length")
		}

		length = binary.BigEndian.Uint64(b[offset : offset+8])
		offset += 8
	}

	var mask [4]byte
	if f.Masked {
		if len(b) < offset+4 {
			return nil, fmt.Errorf("mongrel2: websocket frame truncated mask")
		}

		copy(mask[:], b[offset:offset+4])
		offset += 4
	}

	if uint64(len(b)-offset) < length {
		return nil, fmt.Errorf("mongrel2: websocket frame truncated payload")
	}

	payload := make([]byte, length)
	copy(payload, b[offset:offset+int(length)])

	if f.Masked {
		for i := range payload {
			payload[i] ^= mask[i%4]
		}
	}

	f.Payload = payload

	return f, nil
}

// Encode serialises the f back into wire form. Server-to-client frames
// (produced by this package) are always unmasked.
func (f *WebSocketFrame) Encode() []byte {
	out := make([]byte, 0, len(f.Payload)+10)

	first := byte(f.Opcode & 0x0f)
	if f.FIN {
		first |= 0x80
	}
	if f.RSV1 {
		first |= 0x40
	}
	if f.RSV2 {
		first |= 0x20
	}
	if f.RSV3 {
		first |= 0x10
	}

	out = append(out, first)

	n := len(f.Payload)
	switch {
	case n < 126:
		out = append(out, byte(n))
	case n <= 0xffff:
		out = append(out, 126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		out = append(out, ext[:]...)
	default:
		out = append(out, 127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		out = append(out, ext[:]...)
	}

	return append(out, f.Payload...)
}

// MakeCloseFrame constructs an unmasked, FIN=1 CLOSE frame whose payload is
// the 2-byte big-endian encoding of status. The encoding itself is produced
// by `gorilla/websocket.FormatCloseMessage`, which this package reuses
// rather than re-implementing.
func MakeCloseFrame(status int) *WebSocketFrame {
	return &WebSocketFrame{
		FIN:     true,
		Opcode:  OpClose,
		Payload: websocket.FormatCloseMessage(status, ""),
	}
}

// WebSocketResponse is the reply variant for a WebSocket exchange: either a
// data frame or a close frame.
type WebSocketResponse struct {
	SenderID string
	ConnID   int
	Frame    *WebSocketFrame
}

// NewWebSocketDataResponse builds a data (text or binary) frame response.
func NewWebSocketDataResponse(senderID string, connID int, opcode int, payload []byte) *WebSocketResponse {
	return &WebSocketResponse{
		SenderID: senderID,
		ConnID:   connID,
		Frame: &WebSocketFrame{
			FIN:     true,
			Opcode:  opcode,
			Payload: payload,
		},
	}
}

// NewWebSocketCloseResponse builds a close-frame response with the given
// RFC 6455 status code.
func NewWebSocketCloseResponse(senderID string, connID int, status int) *WebSocketResponse {
	return &WebSocketResponse{
		SenderID: senderID,
		ConnID:   connID,
		Frame:    MakeCloseFrame(status),
	}
}

// Bytes returns the encoded frame, ready to send as a reply payload.
func (r *WebSocketResponse) Bytes() []byte {
	return r.Frame.Encode()
}

// ConnIDs implements the `Reply` interface Connection.Reply consumes.
func (r *WebSocketResponse) ConnIDs() []int { return []int{r.ConnID} }

// Payload implements the `Reply` interface: the encoded frame is the
// WebSocket reply payload.
func (r *WebSocketResponse) Payload() ([]byte, error) { return r.Bytes(), nil }

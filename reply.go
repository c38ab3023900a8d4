package mongrel2

import (
	"strconv"
	"strings"
)

// EncodeReply builds the asymmetric reply envelope Mongrel2 expects:
//
//	sender_id SPACE <netstring of space-separated conn_ids> SPACE <payload>
//
// where the netstring is `<decimal-length>":"<ids>","`. It never fragments:
// one logical reply is one encoded message.
func EncodeReply(senderID string, connIDs []int, payload []byte) []byte {
	ids := idList(connIDs)

	out := make([]byte, 0, len(senderID)+len(ids)+len(payload)+16)
	out = append(out, senderID...)
	out = append(out, ' ')
	out = strconv.AppendInt(out, int64(len(ids)), 10)
	out = append(out, ':')
	out = append(out, ids...)
	out = append(out, ',', ' ')
	out = append(out, payload...)

	return out
}

// EncodeClose builds a "close these connections" reply: the same envelope
// shape as EncodeReply, with an empty payload.
func EncodeClose(senderID string, connIDs []int) []byte {
	return EncodeReply(senderID, connIDs, nil)
}

// idList renders conn IDs as the space-separated decimal list the reply
// envelope's netstring wraps.
func idList(connIDs []int) string {
	parts := make([]string, len(connIDs))
	for i, id := range connIDs {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, " ")
}

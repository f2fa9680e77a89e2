package natsrelay

import (
	"strings"

	"github.com/mcdev12/connectfour/go/internal/relay"
)

const subjectRoot = "connectfour"

// hostKey is the Session Store key holding the current host's peer id. It
// lives in the same bucket as game state.
const hostKey = "_host"

// sanitize maps a room id onto the characters allowed in both NATS subject
// tokens and KV bucket names
func sanitize(room string) string {
	var b strings.Builder
	for _, r := range room {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func roomSubject(room string) string {
	return subjectRoot + "." + sanitize(room)
}

func rpcSubject(room string, mode relay.Mode) string {
	return roomSubject(room) + ".rpc." + mode.String()
}

func presenceSubject(room string) string {
	return roomSubject(room) + ".presence"
}

// wildcardSubject matches every subject of one room, so a single
// subscription delivers RPC and presence traffic in order
func wildcardSubject(room string) string {
	return roomSubject(room) + ".>"
}

func bucketName(prefix, room string) string {
	return sanitize(prefix) + "_" + sanitize(room)
}

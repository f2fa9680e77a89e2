// Package relay defines the message-relay substrate a game session runs on:
// a replicated key/value Session Store written by the host, an RPC
// primitive that delivers named events to the host or to every peer, and
// presence callbacks for peers joining and quitting a room.
//
// Implementations must deliver handlers, join and quit callbacks for one
// peer serially and in delivery order. Exactly one
// peer per room is host; when the host leaves, the longest-present
// remaining peer is promoted before quit callbacks are delivered.
package relay

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by GetState when a key has never been written
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotConnected is returned when the relay is used before Connect or after Close
	ErrNotConnected = errors.New("relay not connected")

	// ErrNoHost is returned by ModeHost calls when the room has no host
	ErrNoHost = errors.New("room has no host")
)

// PeerID is the stable identifier of a peer within a room
type PeerID string

// Mode selects the recipients of an RPC call
type Mode int

const (
	// ModeAll delivers to every peer in the room, including the sender
	ModeAll Mode = iota
	// ModeHost delivers to the host only
	ModeHost
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeHost:
		return "host"
	default:
		return "unknown"
	}
}

// Message is an RPC event as delivered to a handler
type Message struct {
	ID      string
	Event   string
	From    PeerID
	Payload []byte
}

// Handler processes an RPC event
type Handler func(ctx context.Context, msg Message)

// Peer is the handle a relay hands out for every peer in the room
type Peer interface {
	ID() PeerID
	// OnQuit registers a callback invoked once when the peer leaves
	OnQuit(func(Peer))
}

// RoomOptions configure how a peer enters a room
type RoomOptions struct {
	// DefaultStates are written to the Session Store only when the room is created
	DefaultStates map[string][]byte
	// MaxPlayers is advertised to the substrate; it does not reject joins
	MaxPlayers int
}

// Relay is the substrate a Coordinator consumes
type Relay interface {
	// Connect joins the room. Handlers and join callbacks should be
	// registered before calling Connect so no early event is missed.
	Connect(ctx context.Context, opts RoomOptions) error
	Self() PeerID
	IsHost() bool

	GetState(ctx context.Context, key string) ([]byte, error)
	SetState(ctx context.Context, key string, value []byte) error

	Call(ctx context.Context, event string, payload []byte, mode Mode) error
	Register(event string, handler Handler)
	OnPeerJoin(func(Peer))

	// Close leaves the room
	Close() error
}

// Package memory provides an in-process relay substrate. A Hub hosts any
// number of rooms; each Client is one peer's view of a room. Deliveries to
// a peer run on that peer's own goroutine in the order the hub accepted
// them, which gives every peer the same total order of events.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/rs/zerolog/log"
)

// Hub owns the rooms of an in-process relay
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room

	sentMu sync.Mutex
	sent   []relay.Envelope
}

type room struct {
	id      string
	state   map[string][]byte
	members []*Client // join order; members[0] is host
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
	}
}

// Client creates a peer handle for a room. The peer is not part of the
// room until Connect is called.
func (h *Hub) Client(roomID string, id relay.PeerID) *Client {
	return newClient(h, roomID, id)
}

// Sent returns every envelope accepted by the hub, in order
func (h *Hub) Sent() []relay.Envelope {
	h.sentMu.Lock()
	defer h.sentMu.Unlock()
	out := make([]relay.Envelope, len(h.sent))
	copy(out, h.sent)
	return out
}

// RoomState returns a copy of a room's Session Store, or nil when the room
// does not exist
func (h *Hub) RoomState(roomID string) map[string][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make(map[string][]byte, len(r.state))
	for k, v := range r.state {
		out[k] = cloneBytes(v)
	}
	return out
}

// Members returns the peer ids of a room in join order
func (h *Hub) Members(roomID string) []relay.PeerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]relay.PeerID, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.id)
	}
	return ids
}

// WaitIdle blocks until no peer has pending deliveries, or ctx is done
func (h *Hub) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if h.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (h *Hub) idle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		for _, m := range r.members {
			if !m.inbox.idle() {
				return false
			}
		}
	}
	return true
}

func (h *Hub) record(env relay.Envelope) {
	h.sentMu.Lock()
	h.sent = append(h.sent, env)
	h.sentMu.Unlock()
}

// join adds c to its room, creating the room with defaults if needed, and
// queues presence callbacks for every member
func (h *Hub) join(c *Client, defaults map[string][]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.roomID]
	if !ok {
		r = &room{
			id:    c.roomID,
			state: make(map[string][]byte, len(defaults)),
		}
		for k, v := range defaults {
			r.state[k] = cloneBytes(v)
		}
		h.rooms[c.roomID] = r
		log.Debug().Str("room_id", c.roomID).Msg("room created")
	}

	for _, m := range r.members {
		if m == c {
			return
		}
	}

	existing := append([]*Client(nil), r.members...)
	r.members = append(r.members, c)

	// The newcomer learns about everyone already present, then itself.
	for _, m := range existing {
		c.queueJoin(m.id)
	}
	c.queueJoin(c.id)

	for _, m := range existing {
		m.queueJoin(c.id)
	}

	log.Debug().
		Str("room_id", c.roomID).
		Str("peer_id", string(c.id)).
		Int("members", len(r.members)).
		Msg("peer joined room")
}

// leave removes c from its room. The host role passes to the next member
// before quit callbacks are queued.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.roomID]
	if !ok {
		return
	}

	idx := -1
	for i, m := range r.members {
		if m == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	for _, m := range r.members {
		m.queueQuit(c.id)
	}

	log.Debug().
		Str("room_id", c.roomID).
		Str("peer_id", string(c.id)).
		Int("members", len(r.members)).
		Msg("peer left room")

	if len(r.members) == 0 {
		delete(h.rooms, r.id)
		log.Debug().Str("room_id", r.id).Msg("room torn down")
	}
}

func (h *Hub) isHost(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.roomID]
	if !ok || len(r.members) == 0 {
		return false
	}
	return r.members[0] == c
}

func (h *Hub) getState(c *Client, key string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.roomID]
	if !ok {
		return nil, relay.ErrNotConnected
	}
	v, ok := r.state[key]
	if !ok {
		return nil, relay.ErrKeyNotFound
	}
	return cloneBytes(v), nil
}

func (h *Hub) setState(c *Client, key string, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.roomID]
	if !ok {
		return relay.ErrNotConnected
	}
	r.state[key] = cloneBytes(value)
	return nil
}

// dispatch queues an envelope on its recipients while holding the hub lock,
// so all peers observe broadcasts in the same order
func (h *Hub) dispatch(c *Client, env relay.Envelope, mode relay.Mode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.roomID]
	if !ok {
		return relay.ErrNotConnected
	}

	var targets []*Client
	switch mode {
	case relay.ModeHost:
		if len(r.members) == 0 {
			return relay.ErrNoHost
		}
		targets = r.members[:1]
	default:
		targets = r.members
	}

	h.record(env)
	for _, t := range targets {
		t.queueMessage(env.Message())
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

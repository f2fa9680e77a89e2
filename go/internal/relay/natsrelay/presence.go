package natsrelay

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// presence event names carried on the presence subject
const (
	presenceHeartbeat = "heartbeat"
	presenceLeave     = "leave"
)

// heartbeatPayload is published by every peer each heartbeat interval
type heartbeatPayload struct {
	JoinedAt time.Time `json:"joined_at"`
}

type member struct {
	joinedAt time.Time
	lastSeen time.Time
}

// presenceTracker keeps the set of peers heard from recently. Peers are
// ordered by the join time they announce, so every peer agrees on who is
// longest present.
type presenceTracker struct {
	clock   clockwork.Clock
	timeout time.Duration

	mu      sync.Mutex
	members map[relay.PeerID]*member
}

func newPresenceTracker(clock clockwork.Clock, timeout time.Duration) *presenceTracker {
	return &presenceTracker{
		clock:   clock,
		timeout: timeout,
		members: make(map[relay.PeerID]*member),
	}
}

// seen refreshes a peer and reports whether it was unknown
func (t *presenceTracker) seen(id relay.PeerID, joinedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if m, ok := t.members[id]; ok {
		m.lastSeen = now
		if !joinedAt.IsZero() {
			m.joinedAt = joinedAt
		}
		return false
	}
	t.members[id] = &member{joinedAt: joinedAt, lastSeen: now}
	return true
}

// leave drops a peer and reports whether it was known
func (t *presenceTracker) leave(id relay.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[id]; !ok {
		return false
	}
	delete(t.members, id)
	return true
}

// expire drops every peer other than self that has been silent for longer
// than the timeout and returns them, longest present first
func (t *presenceTracker) expire(self relay.PeerID) []relay.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	var gone []relay.PeerID
	for id, m := range t.members {
		if id == self {
			continue
		}
		if now.Sub(m.lastSeen) > t.timeout {
			gone = append(gone, id)
		}
	}
	t.sortLocked(gone)
	for _, id := range gone {
		delete(t.members, id)
	}
	return gone
}

func (t *presenceTracker) contains(id relay.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.members[id]
	return ok
}

// ordered returns known peers, longest present first
func (t *presenceTracker) ordered() []relay.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]relay.PeerID, 0, len(t.members))
	for id := range t.members {
		ids = append(ids, id)
	}
	t.sortLocked(ids)
	return ids
}

func (t *presenceTracker) sortLocked(ids []relay.PeerID) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.members[ids[i]], t.members[ids[j]]
		if !a.joinedAt.Equal(b.joinedAt) {
			return a.joinedAt.Before(b.joinedAt)
		}
		return ids[i] < ids[j]
	})
}

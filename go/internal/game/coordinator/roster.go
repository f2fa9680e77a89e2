package coordinator

import "github.com/mcdev12/connectfour/go/internal/relay"

// roster is the set of peers currently connected to the room, rebuilt from
// relay join and quit callbacks. It is local to one coordinator and never
// persisted.
type roster struct {
	order []relay.PeerID
	peers map[relay.PeerID]relay.Peer
}

func newRoster() *roster {
	return &roster{peers: make(map[relay.PeerID]relay.Peer)}
}

// add records a peer and reports whether it was new
func (r *roster) add(p relay.Peer) bool {
	if _, ok := r.peers[p.ID()]; ok {
		return false
	}
	r.peers[p.ID()] = p
	r.order = append(r.order, p.ID())
	return true
}

func (r *roster) remove(id relay.PeerID) bool {
	if _, ok := r.peers[id]; !ok {
		return false
	}
	delete(r.peers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *roster) len() int { return len(r.order) }

func (r *roster) ids() []relay.PeerID {
	return append([]relay.PeerID(nil), r.order...)
}

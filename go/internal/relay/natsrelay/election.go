package natsrelay

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/nats-io/nats.go/jetstream"
)

// claimHost creates the host key, or learns the current holder when it
// already exists
func (r *Relay) claimHost(ctx context.Context) error {
	rev, err := r.kv.Create(ctx, hostKey, []byte(r.self))
	if err == nil {
		r.setHost(r.self, rev)
		r.logger.Info().Uint64("revision", rev).Msg("claimed host")
		return nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		return fmt.Errorf("create %s: %w", hostKey, err)
	}

	entry, err := r.kv.Get(ctx, hostKey)
	if err != nil {
		return fmt.Errorf("get %s: %w", hostKey, err)
	}
	r.setHost(relay.PeerID(entry.Value()), entry.Revision())
	r.logger.Debug().Str("host", string(entry.Value())).Msg("room already has a host")
	return nil
}

func (r *Relay) setHost(id relay.PeerID, rev uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = id
	r.hostRev = rev
}

// watchHost mirrors every change of the host key
func (r *Relay) watchHost(w jetstream.KeyWatcher) {
	defer r.wg.Done()
	defer func() {
		if err := w.Stop(); err != nil {
			r.logger.Debug().Err(err).Msg("stopping host watcher")
		}
	}()

	for {
		select {
		case <-r.ctx.Done():
			return
		case entry, ok := <-w.Updates():
			if !ok {
				return
			}
			if entry == nil {
				continue
			}
			id := relay.PeerID(entry.Value())
			if entry.Operation() != jetstream.KeyValuePut {
				id = ""
			}
			r.setHost(id, entry.Revision())
			r.logger.Debug().
				Str("host", string(id)).
				Uint64("revision", entry.Revision()).
				Msg("host changed")
		}
	}
}

// reconcileHost takes over the host key when its holder is gone and this
// peer is the longest present. With grace set, a holder that has not been
// heard from is only presumed gone once this peer has been in the room for
// a full peer timeout.
func (r *Relay) reconcileHost(ctx context.Context, grace bool) {
	r.mu.Lock()
	host, rev, joinedAt := r.host, r.hostRev, r.joinedAt
	r.mu.Unlock()

	if host == r.self {
		return
	}
	if host != "" && r.presence.contains(host) {
		return
	}
	if grace && r.clock.Since(joinedAt) < r.cfg.PeerTimeout {
		return
	}

	ordered := r.presence.ordered()
	if len(ordered) == 0 || ordered[0] != r.self {
		return
	}

	newRev, err := r.updateHost(ctx, rev)
	if err != nil {
		r.logger.Debug().Err(err).Str("previous_host", string(host)).Msg("lost host election")
		return
	}
	r.setHost(r.self, newRev)
	r.logger.Info().
		Str("previous_host", string(host)).
		Uint64("revision", newRev).
		Msg("took over as host")
}

func (r *Relay) updateHost(ctx context.Context, rev uint64) (uint64, error) {
	if rev == 0 {
		return r.kv.Create(ctx, hostKey, []byte(r.self))
	}
	return r.kv.Update(ctx, hostKey, []byte(r.self), rev)
}

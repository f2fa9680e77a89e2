// Package natsrelay runs a game room over NATS. RPC calls and presence
// heartbeats travel on core NATS subjects under connectfour.<room>; the
// Session Store and the host lease live in a JetStream KeyValue bucket.
//
// Host election uses the bucket's compare-and-set: the first peer to Create
// the _host key is host. When the host leaves or stops heartbeating, the
// longest-present remaining peer Updates the key against the last revision
// it saw, so at most one successor wins.
package natsrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const closeTimeout = 5 * time.Second

// Relay is one peer's connection to a NATS-backed room. It implements
// relay.Relay.
type Relay struct {
	cfg      Config
	room     string
	self     relay.PeerID
	clock    clockwork.Clock
	presence *presenceTracker
	logger   zerolog.Logger

	nc  *nats.Conn
	js  jetstream.JetStream
	kv  jetstream.KeyValue
	sub *nats.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// deliverMu serializes handler, join and quit callbacks, which arrive
	// from the subscription and from the heartbeat loop
	deliverMu sync.Mutex

	mu           sync.Mutex
	connected    bool
	joinedAt     time.Time
	host         relay.PeerID
	hostRev      uint64
	handlers     map[string]relay.Handler
	joinHandlers []func(relay.Peer)
	peers        map[relay.PeerID]*peer
}

var _ relay.Relay = (*Relay)(nil)

// Option customizes a Relay
type Option func(*Relay)

// WithClock replaces the wall clock used for heartbeats and peer timeouts
func WithClock(clock clockwork.Clock) Option {
	return func(r *Relay) { r.clock = clock }
}

// New creates a relay for one peer in room. Nothing touches the network
// until Connect.
func New(cfg Config, room string, self relay.PeerID, opts ...Option) *Relay {
	cfg = cfg.withDefaults()
	r := &Relay{
		cfg:      cfg,
		room:     room,
		self:     self,
		clock:    clockwork.NewRealClock(),
		logger:   log.With().Str("room_id", room).Str("peer_id", string(self)).Logger(),
		handlers: make(map[string]relay.Handler),
		peers:    make(map[relay.PeerID]*peer),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.presence = newPresenceTracker(r.clock, cfg.PeerTimeout)
	return r
}

type peer struct {
	id    relay.PeerID
	relay *Relay
	quit  []func(relay.Peer)
}

func (p *peer) ID() relay.PeerID { return p.id }

func (p *peer) OnQuit(fn func(relay.Peer)) {
	p.relay.mu.Lock()
	defer p.relay.mu.Unlock()
	p.quit = append(p.quit, fn)
}

func (r *Relay) natsOptions() []nats.Option {
	return []nats.Option{
		nats.Name("connectfour-" + string(r.self)),
		nats.MaxReconnects(r.cfg.MaxReconnects),
		nats.ReconnectWait(r.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			r.logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			r.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			r.logger.Error().Err(err).Msg("NATS error")
		}),
	}
}

// Connect joins the room: it opens the Session Store bucket, writes any
// missing defaults, subscribes to room traffic, claims or learns the host
// and announces this peer.
func (r *Relay) Connect(ctx context.Context, opts relay.RoomOptions) error {
	r.mu.Lock()
	if r.connected {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	nc, err := nats.Connect(r.cfg.URL, r.natsOptions()...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	bucket := bucketName(r.cfg.BucketPrefix, r.room)
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "connect four session " + r.room,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	for key, value := range opts.DefaultStates {
		if _, err := kv.Create(ctx, key, value); err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
			nc.Close()
			return fmt.Errorf("write default %s: %w", key, err)
		}
	}

	r.nc, r.js, r.kv = nc, js, kv
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.mu.Lock()
	r.joinedAt = r.clock.Now().UTC()
	r.mu.Unlock()

	sub, err := nc.Subscribe(wildcardSubject(r.room), r.onMsg)
	if err != nil {
		r.abort()
		return fmt.Errorf("subscribe %s: %w", wildcardSubject(r.room), err)
	}
	r.sub = sub
	if err := nc.Flush(); err != nil {
		r.abort()
		return fmt.Errorf("flush subscription: %w", err)
	}

	if err := r.claimHost(ctx); err != nil {
		r.abort()
		return err
	}

	watcher, err := kv.Watch(r.ctx, hostKey)
	if err != nil {
		r.abort()
		return fmt.Errorf("watch %s: %w", hostKey, err)
	}

	r.mu.Lock()
	r.connected = true
	r.mu.Unlock()

	r.wg.Add(2)
	go r.watchHost(watcher)
	go r.heartbeatLoop()

	r.publishPresence(presenceHeartbeat)

	r.logger.Info().
		Str("bucket", bucket).
		Bool("host", r.IsHost()).
		Int("max_players", opts.MaxPlayers).
		Msg("joined room")
	return nil
}

func (r *Relay) abort() {
	r.cancel()
	r.nc.Close()
}

func (r *Relay) Self() relay.PeerID { return r.self }

func (r *Relay) IsHost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected && r.host == r.self
}

func (r *Relay) GetState(ctx context.Context, key string) ([]byte, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	entry, err := r.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, relay.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (r *Relay) SetState(ctx context.Context, key string, value []byte) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if _, err := r.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *Relay) Call(ctx context.Context, event string, payload []byte, mode relay.Mode) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	env := relay.NewEnvelope(r.room, r.self, event, payload)
	data, err := env.Encode()
	if err != nil {
		return err
	}
	subject := rpcSubject(r.room, mode)
	if err := r.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (r *Relay) Register(event string, handler relay.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = handler
}

func (r *Relay) OnPeerJoin(fn func(relay.Peer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinHandlers = append(r.joinHandlers, fn)
}

// Close announces the departure and leaves the room. The last peer out
// deletes the room's bucket.
func (r *Relay) Close() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return nil
	}
	r.connected = false
	r.mu.Unlock()

	r.publishPresence(presenceLeave)

	alone := true
	for _, id := range r.presence.ordered() {
		if id != r.self {
			alone = false
			break
		}
	}
	if alone {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		bucket := bucketName(r.cfg.BucketPrefix, r.room)
		if err := r.js.DeleteKeyValue(ctx, bucket); err != nil {
			r.logger.Warn().Err(err).Str("bucket", bucket).Msg("failed to delete room bucket")
		}
		cancel()
	}

	r.cancel()
	if err := r.sub.Unsubscribe(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to unsubscribe")
	}
	r.wg.Wait()

	if err := r.nc.Drain(); err != nil {
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	r.logger.Info().Msg("left room")
	return nil
}

func (r *Relay) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return relay.ErrNotConnected
	}
	return nil
}

// onMsg receives every subject of the room on the subscription's single
// delivery goroutine
func (r *Relay) onMsg(m *nats.Msg) {
	env, err := relay.DecodeEnvelope(m.Data)
	if err != nil {
		r.logger.Warn().Err(err).Str("subject", m.Subject).Msg("dropping malformed message")
		return
	}

	switch m.Subject {
	case presenceSubject(r.room):
		r.handlePresence(env)
	case rpcSubject(r.room, relay.ModeHost):
		if !r.IsHost() {
			return
		}
		r.deliverMessage(env.Message())
	case rpcSubject(r.room, relay.ModeAll):
		r.deliverMessage(env.Message())
	default:
		r.logger.Debug().Str("subject", m.Subject).Msg("ignoring message on unknown subject")
	}
}

func (r *Relay) handlePresence(env relay.Envelope) {
	switch env.Event {
	case presenceHeartbeat:
		var hb heartbeatPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &hb); err != nil {
				r.logger.Warn().Err(err).Str("from", string(env.From)).Msg("malformed heartbeat")
			}
		}
		if !r.presence.seen(env.From, hb.JoinedAt) {
			return
		}
		r.logger.Debug().Str("from", string(env.From)).Msg("peer joined")
		r.deliverJoin(env.From)
		if env.From != r.self {
			// answer right away so the newcomer does not wait a full interval
			r.publishPresence(presenceHeartbeat)
		}
	case presenceLeave:
		if env.From == r.self || !r.presence.leave(env.From) {
			return
		}
		r.logger.Debug().Str("from", string(env.From)).Msg("peer left")
		r.departed(env.From)
	}
}

// departed settles the host role before quit callbacks run
func (r *Relay) departed(id relay.PeerID) {
	r.reconcileHost(r.ctx, false)
	r.deliverQuit(id)
}

func (r *Relay) deliverMessage(msg relay.Message) {
	r.mu.Lock()
	handler, ok := r.handlers[msg.Event]
	r.mu.Unlock()
	if !ok {
		r.logger.Debug().Str("event", msg.Event).Msg("no handler registered for event")
		return
	}

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()
	handler(r.ctx, msg)
}

func (r *Relay) deliverJoin(id relay.PeerID) {
	r.mu.Lock()
	if _, exists := r.peers[id]; exists {
		r.mu.Unlock()
		return
	}
	p := &peer{id: id, relay: r}
	r.peers[id] = p
	handlers := append([]func(relay.Peer){}, r.joinHandlers...)
	r.mu.Unlock()

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()
	for _, fn := range handlers {
		fn(p)
	}
}

func (r *Relay) deliverQuit(id relay.PeerID) {
	r.mu.Lock()
	p, exists := r.peers[id]
	if !exists {
		r.mu.Unlock()
		return
	}
	delete(r.peers, id)
	callbacks := append([]func(relay.Peer){}, p.quit...)
	r.mu.Unlock()

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()
	for _, fn := range callbacks {
		fn(p)
	}
}

func (r *Relay) publishPresence(event string) {
	var payload []byte
	if event == presenceHeartbeat {
		r.mu.Lock()
		hb := heartbeatPayload{JoinedAt: r.joinedAt}
		r.mu.Unlock()
		data, err := json.Marshal(hb)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to encode heartbeat")
			return
		}
		payload = data
	}

	data, err := relay.NewEnvelope(r.room, r.self, event, payload).Encode()
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("failed to encode presence")
		return
	}
	if err := r.nc.Publish(presenceSubject(r.room), data); err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("failed to publish presence")
	}
}

func (r *Relay) heartbeatLoop() {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.Chan():
			r.publishPresence(presenceHeartbeat)
			r.sweep()
		}
	}
}

// sweep expires silent peers and takes over a host lease nobody holds
func (r *Relay) sweep() {
	for _, id := range r.presence.expire(r.self) {
		r.logger.Warn().Str("from", string(id)).Msg("peer timed out")
		r.departed(id)
	}
	r.reconcileHost(r.ctx, true)
}

package memory

import (
	"context"
	"sync"

	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/rs/zerolog/log"
)

// Client is one peer's connection to a hub room. It implements relay.Relay.
type Client struct {
	hub    *Hub
	roomID string
	id     relay.PeerID
	inbox  *inbox

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	connected    bool
	handlers     map[string]relay.Handler
	joinHandlers []func(relay.Peer)
	peers        map[relay.PeerID]*peer

	// fault injection
	callErr      error
	writeErr     error
	dropIncoming bool
}

var _ relay.Relay = (*Client)(nil)

type peer struct {
	id     relay.PeerID
	client *Client
	quit   []func(relay.Peer)
}

func (p *peer) ID() relay.PeerID { return p.id }

func (p *peer) OnQuit(fn func(relay.Peer)) {
	p.client.mu.Lock()
	defer p.client.mu.Unlock()
	p.quit = append(p.quit, fn)
}

func newClient(h *Hub, roomID string, id relay.PeerID) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:      h,
		roomID:   roomID,
		id:       id,
		inbox:    newInbox(),
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]relay.Handler),
		peers:    make(map[relay.PeerID]*peer),
	}
}

// Connect joins the room
func (c *Client) Connect(ctx context.Context, opts relay.RoomOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = true
	c.mu.Unlock()

	c.hub.join(c, opts.DefaultStates)
	return nil
}

func (c *Client) Self() relay.PeerID { return c.id }

func (c *Client) IsHost() bool { return c.hub.isHost(c) }

func (c *Client) GetState(ctx context.Context, key string) ([]byte, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	return c.hub.getState(c, key)
}

func (c *Client) SetState(ctx context.Context, key string, value []byte) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	writeErr := c.writeErr
	c.mu.Unlock()
	if writeErr != nil {
		return writeErr
	}
	return c.hub.setState(c, key, value)
}

func (c *Client) Call(ctx context.Context, event string, payload []byte, mode relay.Mode) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	callErr := c.callErr
	c.mu.Unlock()
	if callErr != nil {
		return callErr
	}
	env := relay.NewEnvelope(c.roomID, c.id, event, payload)
	return c.hub.dispatch(c, env, mode)
}

func (c *Client) Register(event string, handler relay.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

func (c *Client) OnPeerJoin(fn func(relay.Peer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinHandlers = append(c.joinHandlers, fn)
}

// Close leaves the room and stops deliveries to this client
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.hub.leave(c)
	c.cancel()
	c.inbox.close()
	return nil
}

// FailCalls makes every subsequent Call return err; nil restores delivery
func (c *Client) FailCalls(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callErr = err
}

// FailWrites makes every subsequent SetState return err; nil restores writes
func (c *Client) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// DropIncoming discards RPC messages addressed to this client while set
func (c *Client) DropIncoming(drop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropIncoming = drop
}

func (c *Client) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return relay.ErrNotConnected
	}
	return nil
}

func (c *Client) queueMessage(msg relay.Message) {
	c.inbox.push(func() {
		c.mu.Lock()
		handler, ok := c.handlers[msg.Event]
		drop := c.dropIncoming
		c.mu.Unlock()

		if drop {
			log.Debug().
				Str("peer_id", string(c.id)).
				Str("event", msg.Event).
				Msg("dropping incoming message")
			return
		}
		if !ok {
			log.Debug().
				Str("peer_id", string(c.id)).
				Str("event", msg.Event).
				Msg("no handler registered for event")
			return
		}
		handler(c.ctx, msg)
	})
}

func (c *Client) queueJoin(id relay.PeerID) {
	c.inbox.push(func() {
		c.mu.Lock()
		if _, exists := c.peers[id]; exists {
			c.mu.Unlock()
			return
		}
		p := &peer{id: id, client: c}
		c.peers[id] = p
		handlers := append([]func(relay.Peer){}, c.joinHandlers...)
		c.mu.Unlock()

		for _, fn := range handlers {
			fn(p)
		}
	})
}

func (c *Client) queueQuit(id relay.PeerID) {
	c.inbox.push(func() {
		c.mu.Lock()
		p, exists := c.peers[id]
		if !exists {
			c.mu.Unlock()
			return
		}
		delete(c.peers, id)
		callbacks := append([]func(relay.Peer){}, p.quit...)
		c.mu.Unlock()

		for _, fn := range callbacks {
			fn(p)
		}
	})
}

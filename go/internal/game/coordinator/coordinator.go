package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxPlayersPerRoom = 2

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// Options tune a Coordinator
type Options struct {
	// Rand picks which peer becomes Player One. Nil seeds a math/rand
	// source from crypto/rand.
	Rand Picker
}

// Coordinator is the relay-backed Service. The host applies every move to
// its engine, appends it to MOVES_MADE and broadcasts it; guests forward
// moves to the host and mirror the broadcasts.
type Coordinator struct {
	relay   relay.Relay
	store   sessionStore
	emitter *emitter
	logger  zerolog.Logger

	mu     sync.Mutex
	rng    Picker
	game   *connectfour.Game
	state  State
	roster *roster
}

var _ Service = (*Coordinator)(nil)

// New creates a Coordinator bound to one relay session. The relay must not
// be connected yet; Connect registers the protocol handlers first.
func New(r relay.Relay, opts Options) (*Coordinator, error) {
	rng := opts.Rand
	if rng == nil {
		seed, err := newSeed()
		if err != nil {
			return nil, err
		}
		rng = rand.New(rand.NewSource(seed))
	}

	return &Coordinator{
		relay:   r,
		store:   sessionStore{relay: r},
		emitter: newEmitter(),
		logger:  log.With().Str("peer_id", string(r.Self())).Logger(),
		rng:     rng,
		game:    connectfour.New(),
		state:   StateWaitingForPlayers,
		roster:  newRoster(),
	}, nil
}

// Connect registers protocol handlers, joins the room and announces this peer
func (c *Coordinator) Connect(ctx context.Context) error {
	c.registerHandlers()

	if err := c.relay.Connect(ctx, relay.RoomOptions{
		DefaultStates: defaultStates(),
		MaxPlayers:    maxPlayersPerRoom,
	}); err != nil {
		c.logger.Error().Err(err).Msg("failed to connect to relay")
		return fmt.Errorf("connect relay: %w", err)
	}

	c.logger.Info().Bool("host", c.relay.IsHost()).Msg("connected to room")

	payload := mustJSON(events.PlayerConnectedPayload{PlayerID: c.relay.Self()})
	if err := c.relay.Call(ctx, events.PlayerConnected, payload, relay.ModeAll); err != nil {
		c.logger.Error().Err(err).Str("event", events.PlayerConnected).Msg("failed to broadcast")
	}
	return nil
}

func (c *Coordinator) registerHandlers() {
	c.relay.Register(events.PlayerConnected, c.handlePlayerConnected)
	c.relay.Register(events.NewGameStarted, c.handleNewGameStarted)
	c.relay.Register(events.ExistingGame, c.handleExistingGame)
	c.relay.Register(events.MoveMade, c.handleMoveMade)
	c.relay.Register(events.GamePieceAdded, c.handleGamePieceAdded)
	c.relay.OnPeerJoin(c.handlePeerJoined)
}

// Close leaves the room
func (c *Coordinator) Close() error {
	if err := c.relay.Close(); err != nil {
		return fmt.Errorf("close relay: %w", err)
	}
	return nil
}

func (c *Coordinator) Subscribe(fn func(events.Event)) func() {
	return c.emitter.subscribe(fn)
}

// IsMyTurn reports whether the rules engine's current turn belongs to the
// slot this peer occupies
func (c *Coordinator) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isMyTurnLocked(context.Background())
}

func (c *Coordinator) isMyTurnLocked(ctx context.Context) bool {
	if c.state != StatePlaying || c.game.IsTerminal() {
		return false
	}
	slot, err := c.slotOf(ctx, c.relay.Self())
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read player slots")
		return false
	}
	return slot != 0 && slot == c.game.CurrentTurn()
}

// slotOf returns the player slot held by id, or 0 when it holds none
func (c *Coordinator) slotOf(ctx context.Context, id relay.PeerID) (connectfour.Player, error) {
	one, two, err := c.store.playerIDs(ctx)
	if err != nil {
		return 0, err
	}
	switch id {
	case "":
		return 0, nil
	case one:
		return connectfour.PlayerOne, nil
	case two:
		return connectfour.PlayerTwo, nil
	default:
		return 0, nil
	}
}

func (c *Coordinator) IsGameOver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.IsTerminal()
}

func (c *Coordinator) CurrentPlayer() connectfour.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.CurrentTurn()
}

// GameState returns the locally tracked lifecycle. FINISHED is derived from
// the local engine and never written to the Session Store.
func (c *Coordinator) GameState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameStateLocked()
}

func (c *Coordinator) gameStateLocked() State {
	if c.game.IsTerminal() {
		return StateFinished
	}
	return c.state
}

func (c *Coordinator) TurnStatusText() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.gameStateLocked() == StateFinished:
		return "Game over"
	case c.state != StatePlaying:
		return waitingText
	}

	slot, err := c.slotOf(context.Background(), c.relay.Self())
	switch {
	case err != nil:
		c.logger.Error().Err(err).Msg("failed to read player slots")
		return waitingText
	case slot == 0:
		return waitingText
	case slot == c.game.CurrentTurn():
		return "Your turn"
	default:
		return "Opponents turn"
	}
}

func (c *Coordinator) ResultText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return resultText(c.game)
}

func (c *Coordinator) Board() []connectfour.Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.BoardSnapshot()
}

// MoveCount returns the number of moves applied to the local engine
func (c *Coordinator) MoveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.MoveCount()
}

// Moves returns the local engine's move log
func (c *Coordinator) Moves() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.MoveHistory()
}

// Winner returns the winning player once the game is over
func (c *Coordinator) Winner() (connectfour.Player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Winner()
}

// IsHost reports whether this peer is the room's authoritative writer
func (c *Coordinator) IsHost() bool {
	return c.relay.IsHost()
}

// Self returns this peer's id
func (c *Coordinator) Self() relay.PeerID {
	return c.relay.Self()
}

// Slots returns the peers holding Player One and Player Two
func (c *Coordinator) Slots(ctx context.Context) (relay.PeerID, relay.PeerID, error) {
	return c.store.playerIDs(ctx)
}

// Roster returns the ids of the peers this coordinator knows are connected
func (c *Coordinator) Roster() []relay.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster.ids()
}

func decode(msg relay.Message, out any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", msg.Event)
	}
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", msg.Event, err)
	}
	return nil
}

func (c *Coordinator) broadcast(ctx context.Context, event string, payload any, mode relay.Mode) {
	var data []byte
	if payload != nil {
		data = mustJSON(payload)
	}
	if err := c.relay.Call(ctx, event, data, mode); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", event).
			Str("mode", mode.String()).
			Msg("failed to call relay")
	}
}

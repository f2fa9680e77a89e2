package coordinator

import (
	"context"

	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// handlePlayerConnected runs on every peer. Everyone caches GAME_STATE;
// only the host writes slots, and only once exactly two peers are present.
func (c *Coordinator) handlePlayerConnected(ctx context.Context, msg relay.Message) {
	var payload events.PlayerConnectedPayload
	if err := decode(msg, &payload); err != nil {
		c.logger.Error().Err(err).Msg("dropping malformed PLAYER_CONNECTED")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.gameState(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read game state")
		return
	}
	// A guest joining a game in progress stays WAITING until NEW_GAME_STARTED
	// or its EXISTING_GAME replay; its engine is still empty until then.
	if state != StatePlaying || c.state == StatePlaying || c.relay.IsHost() {
		c.state = state
	}

	if !c.relay.IsHost() || c.roster.len() != 2 {
		return
	}

	c.logger.Info().
		Str("player_id", string(payload.PlayerID)).
		Str("state", string(state)).
		Msg("host handling player connected")

	switch state {
	case StateWaitingForPlayers:
		c.startNewGameLocked(ctx)
	case StatePlaying:
		c.fillSlotLocked(ctx, payload.PlayerID)
	}
}

// startNewGameLocked assigns the two roster peers to the slots at random
// and announces the game
func (c *Coordinator) startNewGameLocked(ctx context.Context) {
	ids := c.roster.ids()
	first := ids[c.rng.Intn(len(ids))]
	other := ids[0]
	if other == first {
		other = ids[1]
	}

	c.logger.Info().
		Str("player_one_id", string(first)).
		Str("player_two_id", string(other)).
		Msg("starting new game")

	if err := c.store.setPlayerID(ctx, events.KeyPlayerOneID, first); err != nil {
		c.logger.Error().Err(err).Msg("failed to write player one")
	}
	if err := c.store.setPlayerID(ctx, events.KeyPlayerTwoID, other); err != nil {
		c.logger.Error().Err(err).Msg("failed to write player two")
	}
	if err := c.store.setGameState(ctx, StatePlaying); err != nil {
		c.logger.Error().Err(err).Msg("failed to write game state")
	}

	c.broadcast(ctx, events.NewGameStarted, nil, relay.ModeAll)
}

// fillSlotLocked gives the first empty slot to a peer joining a game in
// progress. A peer that still holds its slot is replayed the game again; a
// full pair of slots held by others means the notification is ignored.
func (c *Coordinator) fillSlotLocked(ctx context.Context, id relay.PeerID) {
	one, two, err := c.store.playerIDs(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read player slots")
		return
	}

	if id == one || id == two {
		c.logger.Info().Str("player_id", string(id)).Msg("player rejoined its slot")
		c.broadcast(ctx, events.ExistingGame, events.ExistingGamePayload{PlayerID: id}, relay.ModeAll)
		return
	}

	var key string
	switch {
	case one == "":
		key = events.KeyPlayerOneID
	case two == "":
		key = events.KeyPlayerTwoID
	default:
		c.logger.Debug().Str("player_id", string(id)).Msg("no empty slot, ignoring player connected")
		return
	}

	if err := c.store.setPlayerID(ctx, key, id); err != nil {
		c.logger.Error().Err(err).Str("slot", key).Msg("failed to write player slot")
	}

	c.logger.Info().
		Str("player_id", string(id)).
		Str("slot", key).
		Msg("player joined existing game")

	c.broadcast(ctx, events.ExistingGame, events.ExistingGamePayload{PlayerID: id}, relay.ModeAll)
}

func (c *Coordinator) handleNewGameStarted(ctx context.Context, msg relay.Message) {
	c.mu.Lock()
	c.state = StatePlaying
	c.mu.Unlock()

	c.logger.Info().Msg("new game started")
	c.emitter.emit(events.GameStarted())
}

// handlePeerJoined adds a peer to the roster. Duplicate notifications for a
// known peer are ignored.
func (c *Coordinator) handlePeerJoined(p relay.Peer) {
	c.mu.Lock()
	added := c.roster.add(p)
	size := c.roster.len()
	c.mu.Unlock()

	if !added {
		return
	}

	c.logger.Info().
		Str("player_id", string(p.ID())).
		Int("roster_size", size).
		Msg("player joined")

	p.OnQuit(c.handlePeerQuit)
}

// handlePeerQuit removes a peer from the roster and, on the host, frees the
// slot it held. GAME_STATE stays as it is; the next PLAYER_CONNECTED refills
// the slot.
func (c *Coordinator) handlePeerQuit(p relay.Peer) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.roster.remove(p.ID()) {
		return
	}

	c.logger.Info().
		Str("player_id", string(p.ID())).
		Int("roster_size", c.roster.len()).
		Msg("player left")

	if !c.relay.IsHost() {
		return
	}

	one, two, err := c.store.playerIDs(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read player slots")
		return
	}

	var key string
	switch p.ID() {
	case one:
		key = events.KeyPlayerOneID
	case two:
		key = events.KeyPlayerTwoID
	default:
		return
	}

	if err := c.store.setPlayerID(ctx, key, ""); err != nil {
		c.logger.Error().Err(err).Str("slot", key).Msg("failed to clear player slot")
		return
	}
	c.logger.Info().Str("slot", key).Msg("cleared slot of departed player")
}

package coordinator

import (
	"context"
	"fmt"

	"github.com/mcdev12/connectfour/go/internal/connectfour"
	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// handleExistingGame hydrates a peer that joined a game in progress. Only
// the named peer acts; everyone else ignores the broadcast.
func (c *Coordinator) handleExistingGame(ctx context.Context, msg relay.Message) {
	var payload events.ExistingGamePayload
	if err := decode(msg, &payload); err != nil {
		c.logger.Error().Err(err).Msg("dropping malformed EXISTING_GAME")
		return
	}
	if payload.PlayerID != c.relay.Self() {
		return
	}

	c.mu.Lock()
	evt, err := c.resyncLocked(ctx)
	if err == nil {
		c.state = StatePlaying
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("failed to replay existing game")
		return
	}

	c.logger.Info().Int("moves", evt.ExistingGame.Moves).Msg("joined existing game")
	c.emitter.emit(evt)
}

// resyncLocked replaces the local engine with one rebuilt from MOVES_MADE.
// Replaying the same log twice yields the same engine.
func (c *Coordinator) resyncLocked(ctx context.Context) (events.Event, error) {
	moves, err := c.store.moves(ctx)
	if err != nil {
		return events.Event{}, err
	}

	g, err := connectfour.Replay(moves)
	if err != nil {
		return events.Event{}, err
	}
	c.game = g

	return events.ExistingGameEvent(g.BoardSnapshot(), g.MoveCount()), nil
}

// CheckConsistency compares the local engine's move log with MOVES_MADE and
// returns ErrDesync when they differ
func (c *Coordinator) CheckConsistency(ctx context.Context) error {
	c.mu.Lock()
	local := c.game.MoveHistory()
	c.mu.Unlock()

	stored, err := c.store.moves(ctx)
	if err != nil {
		return err
	}

	if len(local) != len(stored) {
		return fmt.Errorf("%w: local has %d moves, session has %d", ErrDesync, len(local), len(stored))
	}
	for i := range local {
		if local[i] != stored[i] {
			return fmt.Errorf("%w: move %d is column %d locally, column %d in session",
				ErrDesync, i+1, local[i], stored[i])
		}
	}
	return nil
}
